package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
)

// Reservation statuses
const (
	ReservationReserved  = "reserved"
	ReservationCancelled = "cancelled"
)

type (
	// Session is a class session with a fixed weekly schedule slot.
	Session struct {
		ID             string       `json:"id" db:"id"`
		Name           string       `json:"name" db:"name"`
		Weekday        time.Weekday `json:"weekday" db:"weekday"`
		StartMinute    int          `json:"start_minute" db:"start_minute"` // minutes from midnight, local academy time
		EndMinute      int          `json:"end_minute" db:"end_minute"`
		Capacity       int          `json:"capacity" db:"capacity"`
		InstructorID   string       `json:"instructor_id" db:"instructor_id"`
		InstructorName string       `json:"instructor_name" db:"instructor_name"`
		CreatedAt      time.Time    `json:"created_at" db:"created_at"` // UTC
		UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"` // UTC
	}

	// Reservation marks a student as expected on a Session's roster.
	Reservation struct {
		StudentID string    `json:"student_id" db:"student_id"`
		ClassID   string    `json:"class_id" db:"class_id"`
		Status    string    `json:"status" db:"status"`
		CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	}
)

// NewSession contains information needed to schedule a new class Session.
type NewSession struct {
	Name           string `json:"name" validate:"required"`
	Weekday        int    `json:"weekday" validate:"min=0,max=6"`
	StartMinute    int    `json:"start_minute" validate:"min=0,max=1439"`
	EndMinute      int    `json:"end_minute" validate:"min=1,max=1439,gtfield=StartMinute"`
	Capacity       int    `json:"capacity" validate:"omitempty,min=1"`
	InstructorID   string `json:"instructor_id"`
	InstructorName string `json:"instructor_name" validate:"required"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.InstructorID = core.CleanString(ns.InstructorID)
	ns.InstructorName = core.CleanString(ns.InstructorName)
	return validate.Struct(ns)
}

func (s Session) OccursOn(date time.Time) bool {
	return s.Weekday == date.Weekday()
}

// StartAt anchors the session's scheduled start on the given date.
func (s Session) StartAt(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, s.StartMinute, 0, 0, date.Location())
}

// EndAt anchors the session's scheduled end on the given date.
func (s Session) EndAt(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, s.EndMinute, 0, 0, date.Location())
}

// Window is the accepted check-in interval on the given date:
// [start - earlyMin, end + lateMin].
func (s Session) Window(date time.Time, earlyMin, lateMin int) (time.Time, time.Time) {
	open := s.StartAt(date).Add(-time.Duration(earlyMin) * time.Minute)
	close := s.EndAt(date).Add(time.Duration(lateMin) * time.Minute)
	return open, close
}

// InWindow reports whether `at` falls within the session's check-in window on
// that same day.
func (s Session) InWindow(at time.Time, earlyMin, lateMin int) bool {
	if !s.OccursOn(at) {
		return false
	}
	open, close := s.Window(at, earlyMin, lateMin)
	return !at.Before(open) && !at.After(close)
}
