package checkin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trezcool/mahudhurio/core"
)

// DefaultSweepInterval is how often the sweeper looks for overdue sessions.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper periodically auto-checks-out sessions left open past the policy's
// AutoCheckoutHours. Start and Stop bound its lifetime deterministically.
type Sweeper struct {
	ckSvc    *Service
	logger   core.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(ckSvc *Service, logger core.Logger) *Sweeper {
	return &Sweeper{ckSvc: ckSvc, logger: logger, interval: DefaultSweepInterval}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx, s.done)
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed, err := s.ckSvc.SweepAutoCheckout(ctx, time.Now())
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("auto-checkout sweep failed", err)
				}
				continue
			}
			if closed > 0 {
				s.logger.Info(fmt.Sprintf("auto-checkout closed %d session(s)", closed))
			}
		}
	}
}
