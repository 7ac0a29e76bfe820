package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// SessionState tracks the transient open/closed kiosk session, deliberately
// separate from the daily attendance.Status enum: a student has exactly one
// daily status per (class, date) key but a session opens and closes within
// the day. The daily status is the canonical record for reporting.
type SessionState string

const (
	StateCheckedIn    SessionState = "checked_in"
	StateCheckedOut   SessionState = "checked_out"
	StateAutoCheckout SessionState = "auto_checkout"
)

var (
	ErrNoOpenSession = errors.New("no open check-in session")
)

// Session is one kiosk check-in lifecycle:
// checked_in -> checked_out | auto_checkout.
// Date is normalized to midnight UTC; timestamps are UTC.
type Session struct {
	ID           string       `json:"id" db:"id"`
	StudentID    string       `json:"student_id" db:"student_id"`
	ClassID      string       `json:"class_id" db:"class_id"`
	Date         time.Time    `json:"date" db:"date"`
	State        SessionState `json:"state" db:"state"`
	CheckedInAt  time.Time    `json:"checked_in_at" db:"checked_in_at"`
	CheckedOutAt null.Time    `json:"checked_out_at" db:"checked_out_at"`
}

func (s Session) Open() bool { return s.State == StateCheckedIn }

// OpenSession opens a checked_in session for a successful gate check-in. An
// already-open session for the day is returned as-is (double check-in is a
// no-op at the session layer, mirroring the ledger's idempotent upsert).
func (svc *Service) OpenSession(ctx context.Context, studentID, classID string, date, at time.Time) (Session, error) {
	if open, err := svc.repo.GetOpenSession(ctx, studentID, date); err == nil {
		return open, nil
	} else if !errors.Is(err, ErrNoOpenSession) {
		return Session{}, err
	}

	return svc.repo.CreateSession(ctx, Session{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		ClassID:     classID,
		Date:        date,
		State:       StateCheckedIn,
		CheckedInAt: at.UTC(),
	})
}

// CheckOut closes the student's open session for the date.
func (svc *Service) CheckOut(ctx context.Context, studentID string, date, at time.Time) (Session, error) {
	open, err := svc.repo.GetOpenSession(ctx, studentID, date)
	if err != nil {
		return Session{}, err
	}
	return svc.repo.CloseSession(ctx, open.ID, StateCheckedOut, at.UTC())
}

// SweepAutoCheckout closes every session still open past the policy's
// AutoCheckoutHours by transitioning it to auto_checkout; returns how many
// were closed.
func (svc *Service) SweepAutoCheckout(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-svc.Policy().AutoCheckoutAfter())

	stale, err := svc.repo.OpenSessionsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	var closed int
	for _, sess := range stale {
		if _, err = svc.repo.CloseSession(ctx, sess.ID, StateAutoCheckout, now.UTC()); err != nil {
			return closed, err
		}
		closed++
	}
	return closed, nil
}
