package attendance

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/student"
)

// Status is the daily attendance outcome for one (student, class, date) key.
// It is a closed enum; the transient kiosk session lifecycle is a separate
// concept (see core/checkin) and never leaks into this field.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

var Statuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Source records which flow produced a Record.
type Source string

const (
	SourceManual Source = "manual"
	SourceKiosk  Source = "kiosk"
	SourceBulk   Source = "bulk"
)

// Record is a persisted status marking; at most one exists per
// (StudentID, ClassID, Date) and re-marking overwrites in place.
type Record struct {
	ID        string      `json:"id" db:"id"`
	StudentID string      `json:"student_id" db:"student_id"`
	ClassID   string      `json:"class_id" db:"class_id"`
	Date      time.Time   `json:"date" db:"date"` // midnight UTC, see DateOf
	Status    Status      `json:"status" db:"status"`
	Notes     null.String `json:"notes,omitempty" db:"notes"`
	Source    Source      `json:"source" db:"source"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// DateOf normalizes a moment to its calendar date key: the wall-clock
// year/month/day where the moment happened, anchored at midnight UTC so the
// one-record-per-day invariant is timezone-stable.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RosterEntry is one instructor-facing roster row: an expected student plus
// their Record for the date, if any. A null Status means "unmarked", which is
// distinct from absent.
type RosterEntry struct {
	Student  student.Student `json:"student"`
	Status   null.String     `json:"status"`
	RecordID null.String     `json:"record_id"`
	Notes    null.String     `json:"notes"`
}

func (re RosterEntry) Unmarked() bool { return !re.Status.Valid }

// Filter narrows a Record query; zero-valued fields are ignored.
// Results are always ordered by date, newest first.
type Filter struct {
	StudentID string    `query:"student_id"`
	ClassID   string    `query:"class_id"`
	From      time.Time `query:"from"`
	To        time.Time `query:"to"`
	Status    Status    `query:"status"`
}

func (f *Filter) IsEmpty() bool {
	return f.StudentID == "" && f.ClassID == "" && f.From.IsZero() && f.To.IsZero() && f.Status == ""
}

// Mark contains information needed to mark a single student.
type Mark struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	Date      string `json:"date" validate:"omitempty,dateformat"` // yyyy-mm-dd; today when empty
	Status    Status `json:"status" validate:"required,attstatus"`
	Notes     string `json:"notes"`
}

func (m *Mark) Validate(validate *validator.Validate) error {
	m.StudentID = core.CleanString(m.StudentID)
	m.ClassID = core.CleanString(m.ClassID)
	m.Notes = core.CleanString(m.Notes)
	return validate.Struct(m)
}

func (m Mark) DateOrToday(now time.Time) time.Time {
	if m.Date == "" {
		return DateOf(now)
	}
	d, _ := time.Parse(DateLayout, m.Date)
	return d
}

// BulkMark applies one status to a set of students for a (class, date) key.
type BulkMark struct {
	ClassID    string   `json:"class_id" validate:"required"`
	Date       string   `json:"date" validate:"omitempty,dateformat"`
	StudentIDs []string `json:"student_ids" validate:"required,min=1"`
	Status     Status   `json:"status" validate:"required,attstatus"`
}

func (bm *BulkMark) Validate(validate *validator.Validate) error {
	bm.ClassID = core.CleanString(bm.ClassID)
	return validate.Struct(bm)
}

func (bm BulkMark) DateOrToday(now time.Time) time.Time {
	if bm.Date == "" {
		return DateOf(now)
	}
	d, _ := time.Parse(DateLayout, bm.Date)
	return d
}

const DateLayout = "2006-01-02"

var (
	statusTag  = "attstatus"
	statusText = "invalid attendance status"

	dateFormatTag  = "dateformat"
	dateFormatText = "date must be yyyy-mm-dd"
)

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	_ = validate.RegisterValidation(dateFormatTag, dateFormatValidation)
	core.RegisterCustomTranslation(validate, translator, dateFormatTag, dateFormatText)
}

func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}

func dateFormatValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}
