package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

// Kiosk owns the full-screen presentation state and the fixed-interval
// refresh of today's recent check-ins. The refresh is purely timer-driven
// (no push); Start and Stop bound the timer deterministically, and a poll
// completing after Stop is discarded rather than applied.
type Kiosk struct {
	attSvc *attendance.Service
	ckSvc  *Service
	logger core.Logger

	nowFunc func() time.Time // mockable

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}
	feed   []attendance.Record
}

func NewKiosk(attSvc *attendance.Service, ckSvc *Service, logger core.Logger) *Kiosk {
	return &Kiosk{
		attSvc:  attSvc,
		ckSvc:   ckSvc,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Active reports whether kiosk mode is on.
func (k *Kiosk) Active() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.active
}

// Feed returns the last polled check-ins, newest created first.
func (k *Kiosk) Feed() []attendance.Record {
	k.mu.Lock()
	defer k.mu.Unlock()
	feed := make([]attendance.Record, len(k.feed))
	copy(feed, k.feed)
	return feed
}

// Start enables kiosk mode and begins polling at the policy's kiosk refresh
// interval. Starting an active kiosk is a no-op.
func (k *Kiosk) Start(ctx context.Context) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.active {
		return
	}

	pollCtx, cancel := context.WithCancel(ctx)
	k.active = true
	k.cancel = cancel
	k.done = make(chan struct{})

	go k.poll(pollCtx, k.done)
}

// Stop disables kiosk mode, cancels the refresh timer and waits for the poll
// loop to exit so no stale response lands after teardown.
func (k *Kiosk) Stop() {
	k.mu.Lock()
	if !k.active {
		k.mu.Unlock()
		return
	}
	k.active = false
	cancel, done := k.cancel, k.done
	k.cancel, k.done = nil, nil
	k.mu.Unlock()

	cancel()
	<-done
}

func (k *Kiosk) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	k.refresh(ctx)

	ticker := time.NewTicker(k.ckSvc.Policy().KioskRefreshInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.refresh(ctx)
		}
	}
}

func (k *Kiosk) refresh(ctx context.Context) {
	policy := k.ckSvc.Policy()
	now := k.nowFunc()

	recent, err := k.attSvc.RecentCheckIns(ctx, now, policy.RecentFeedSize)
	if err != nil {
		if ctx.Err() == nil {
			k.logger.Warn("kiosk feed refresh failed", err)
		}
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.active { // stopped while the fetch was in flight
		return
	}
	k.feed = recent
}
