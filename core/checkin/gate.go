package checkin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
)

// GateState is the kiosk flow state machine:
// Idle -> PinEntry -> Validating -> Success|Failure -> Idle.
type GateState string

const (
	GateIdle       GateState = "idle"
	GatePinEntry   GateState = "pin_entry"
	GateValidating GateState = "validating"
	GateSuccess    GateState = "success"
	GateFailure    GateState = "failure"
)

// DefaultIdleTimeout resets an abandoned gate back to Idle.
const DefaultIdleTimeout = 30 * time.Second

var (
	// ErrInvalidPin and ErrAmbiguousPin share one public message so a failed
	// attempt never reveals whether a PIN exists (anti-enumeration); window
	// and location rejections are explicit since identity already resolved.
	ErrInvalidPin    = errors.New("check-in failed")
	ErrAmbiguousPin  = errors.New("check-in failed")
	ErrOutsideWindow = errors.New("check-in is closed for this class right now")
	ErrTooFarAway    = errors.New("you appear to be too far from the academy")
	ErrLockedOut     = errors.New("too many failed attempts, please try again later")
)

type (
	// Attempt is one kiosk submission. ClassID is required only when the
	// policy demands explicit class selection. StudentID is honored only when
	// the policy waives PIN verification (staff-assisted kiosk).
	Attempt struct {
		PIN       string       `json:"pin"`
		ClassID   string       `json:"class_id"`
		StudentID string       `json:"student_id"`
		DeviceID  string       `json:"-"`
		Coords    *Coordinates `json:"coords"`
	}

	// Result is what a successful check-in shows on the kiosk.
	Result struct {
		StudentName    string    `json:"student_name"`
		ClassName      string    `json:"class_name"`
		Timestamp      time.Time `json:"timestamp"`
		WelcomeMessage string    `json:"welcome_message"`
	}

	// Gate validates kiosk check-in attempts against the current policy and,
	// on success, writes the ledger entry and opens a check-in session.
	Gate struct {
		stdSvc  *student.Service
		clsSvc  *class.Service
		attSvc  *attendance.Service
		ckSvc   *Service
		limiter AttemptLimiter

		idleTimeout time.Duration
		nowFunc     func() time.Time // mockable

		mu       sync.Mutex
		state    GateState
		buffer   string
		lastSeen time.Time
	}
)

func NewGate(stdSvc *student.Service, clsSvc *class.Service, attSvc *attendance.Service, ckSvc *Service, limiter AttemptLimiter) *Gate {
	return &Gate{
		stdSvc:      stdSvc,
		clsSvc:      clsSvc,
		attSvc:      attSvc,
		ckSvc:       ckSvc,
		limiter:     limiter,
		idleTimeout: DefaultIdleTimeout,
		nowFunc:     time.Now,
		state:       GateIdle,
	}
}

// State returns the current machine state, collapsing back to Idle once the
// idle timeout has elapsed without interaction.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLocked()
	return g.state
}

// Press appends one digit to the PIN buffer (Idle implies a fresh entry).
func (g *Gate) Press(digit rune) error {
	if digit < '0' || digit > '9' {
		return core.NewValidationError(errors.New("digits only"))
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLocked()

	switch g.state {
	case GateIdle, GatePinEntry:
		if len(g.buffer) >= 4 {
			return nil // full; wait for submit or clear
		}
		g.buffer += string(digit)
		g.transitionLocked(GatePinEntry)
		return nil
	default:
		return core.NewValidationError(errors.New("gate is busy"))
	}
}

// Buffer returns the digits entered so far (masked display is the caller's
// concern).
func (g *Gate) Buffer() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLocked()
	return g.buffer
}

// Acknowledge resets a Success/Failure (or abandoned) gate back to Idle.
func (g *Gate) Acknowledge() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buffer = ""
	g.transitionLocked(GateIdle)
}

// Submit validates one attempt. Checks run in a fixed order: PIN syntax,
// lockout, identity, class resolution, time window, location; a syntactically
// valid PIN inside an invalid window is still rejected. On success the daily
// record is upserted (present, source=kiosk) and a check-in session opens.
func (g *Gate) Submit(ctx context.Context, att Attempt) (Result, error) {
	g.mu.Lock()
	g.expireLocked()
	if att.PIN == "" {
		att.PIN = g.buffer
	}
	g.buffer = ""
	g.transitionLocked(GateValidating)
	g.mu.Unlock()

	res, err := g.validate(ctx, att)

	g.mu.Lock()
	if err != nil {
		g.transitionLocked(GateFailure)
	} else {
		g.transitionLocked(GateSuccess)
	}
	g.mu.Unlock()
	return res, err
}

func (g *Gate) validate(ctx context.Context, att Attempt) (Result, error) {
	policy := g.ckSvc.Policy()
	now := g.nowFunc()

	// 1. syntax; surfaced inline without any remote call
	usePIN := policy.RequirePinVerification || att.StudentID == ""
	if usePIN && !student.ValidPIN(att.PIN) {
		return Result{}, core.NewValidationError(errors.New("malformed PIN"),
			core.FieldError{Field: "pin", Error: "PIN must be exactly 4 digits"})
	}

	// 2. lockout before identity resolution
	if g.limiter != nil && att.DeviceID != "" {
		allowed, err := g.limiter.Allow(ctx, att.DeviceID)
		if err != nil {
			return Result{}, pkgerrors.Wrap(err, "checking attempt limit")
		}
		if !allowed {
			return Result{}, ErrLockedOut
		}
	}

	// 3. resolve exactly one active student
	std, err := g.resolveStudent(ctx, att, usePIN)
	if err != nil {
		return Result{}, err
	}

	// 4. resolve the applicable class
	sess, err := g.resolveClass(ctx, att, policy, now)
	if err != nil {
		return Result{}, err
	}

	// 5. time window
	if !sess.InWindow(now, policy.EarlyWindowMinutes, policy.LateWindowMinutes) {
		return Result{}, ErrOutsideWindow
	}

	// 6. location
	if policy.LocationTrackingEnabled {
		if att.Coords == nil {
			return Result{}, core.NewValidationError(errors.New("location required"),
				core.FieldError{Field: "coords", Error: "device location is required for check-in"})
		}
		academy := Coordinates{Latitude: policy.AcademyLatitude, Longitude: policy.AcademyLongitude}
		if Haversine(*att.Coords, academy) > policy.MaxDistanceMeters {
			return Result{}, ErrTooFarAway
		}
	}

	date := attendance.DateOf(now)
	if _, err = g.attSvc.MarkSingle(ctx, std.ID, sess.ID, date, attendance.StatusPresent, "", attendance.SourceKiosk); err != nil {
		return Result{}, pkgerrors.Wrap(err, "marking present")
	}
	if _, err = g.ckSvc.OpenSession(ctx, std.ID, sess.ID, date, now); err != nil {
		return Result{}, pkgerrors.Wrap(err, "opening check-in session")
	}

	if g.limiter != nil && att.DeviceID != "" {
		_ = g.limiter.Reset(ctx, att.DeviceID)
	}
	return Result{
		StudentName:    std.Name,
		ClassName:      sess.Name,
		Timestamp:      now,
		WelcomeMessage: policy.WelcomeMessage,
	}, nil
}

func (g *Gate) resolveStudent(ctx context.Context, att Attempt, usePIN bool) (student.Student, error) {
	if !usePIN {
		std, err := g.stdSvc.GetByID(ctx, att.StudentID)
		if err != nil {
			return student.Student{}, err
		}
		if !std.IsActive() {
			return student.Student{}, ErrInvalidPin
		}
		return std, nil
	}

	std, err := g.stdSvc.GetActiveByPIN(ctx, att.PIN)
	if err != nil {
		switch pkgerrors.Cause(err) {
		case student.ErrNotFound:
			g.recordFailure(ctx, att.DeviceID)
			return student.Student{}, ErrInvalidPin
		case student.ErrAmbiguousPIN:
			g.recordFailure(ctx, att.DeviceID)
			return student.Student{}, ErrAmbiguousPin
		}
		return student.Student{}, err
	}
	return std, nil
}

func (g *Gate) resolveClass(ctx context.Context, att Attempt, policy Settings, now time.Time) (class.Session, error) {
	if policy.RequireClassSelection || att.ClassID != "" {
		if strings.TrimSpace(att.ClassID) == "" {
			return class.Session{}, core.NewValidationError(errors.New("class selection required"),
				core.FieldError{Field: "class_id", Error: "select a class to check in"})
		}
		return g.clsSvc.GetByID(ctx, att.ClassID)
	}

	sess, err := g.clsSvc.InferCurrent(ctx, now, policy.EarlyWindowMinutes, policy.LateWindowMinutes)
	if err != nil {
		if pkgerrors.Cause(err) == class.ErrNoCurrentSession {
			return class.Session{}, ErrOutsideWindow
		}
		return class.Session{}, err
	}
	return sess, nil
}

func (g *Gate) recordFailure(ctx context.Context, deviceID string) {
	if g.limiter != nil && deviceID != "" {
		_ = g.limiter.RecordFailure(ctx, deviceID)
	}
}

// expireLocked collapses stale Success/Failure/PinEntry states to Idle.
func (g *Gate) expireLocked() {
	if g.state == GateIdle || g.state == GateValidating {
		return
	}
	if g.nowFunc().Sub(g.lastSeen) >= g.idleTimeout {
		g.buffer = ""
		g.state = GateIdle
	}
}

func (g *Gate) transitionLocked(next GateState) {
	g.state = next
	g.lastSeen = g.nowFunc()
}
