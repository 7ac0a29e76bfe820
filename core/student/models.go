package student

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
)

// Membership statuses
const (
	MembershipActive    = "active"
	MembershipFrozen    = "frozen"
	MembershipCancelled = "cancelled"
)

var MembershipStatuses = []string{MembershipActive, MembershipFrozen, MembershipCancelled}

// Student is one enrolled member. PINDigest is never exposed raw (see
// DigestPIN); timestamps are UTC.
type Student struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	BeltLevel        string    `json:"belt_level" db:"belt_level"`
	MembershipStatus string    `json:"membership_status" db:"membership_status"`
	PINDigest        string    `json:"-" db:"pin_digest"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

func (s Student) IsActive() bool {
	return s.MembershipStatus == MembershipActive
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	Name             string `json:"name" validate:"required"`
	BeltLevel        string `json:"belt_level" validate:"required,alphanum_"`
	MembershipStatus string `json:"membership_status" validate:"omitempty,membership"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.BeltLevel = core.CleanString(ns.BeltLevel, true /* lower */)
	if ns.MembershipStatus == "" {
		ns.MembershipStatus = MembershipActive
	}
	return validate.Struct(ns)
}

// AssignPIN contains information needed to (re)assign a Student's check-in PIN.
type AssignPIN struct {
	StudentID string `json:"student_id" validate:"required"`
	PIN       string `json:"pin" validate:"required,pin4"`
}

func (ap *AssignPIN) Validate(validate *validator.Validate) error {
	ap.StudentID = core.CleanString(ap.StudentID)
	ap.PIN = core.CleanString(ap.PIN)
	return validate.Struct(ap)
}

type QueryFilter struct {
	Search           string `query:"search"`
	MembershipStatus string `query:"membership_status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.MembershipStatus == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.MembershipStatus = core.CleanString(qf.MembershipStatus, true /* lower */)
}

var (
	membershipTag  = "membership"
	membershipText = "invalid membership status"

	pin4Tag  = "pin4"
	pin4Text = "PIN must be exactly 4 digits"
)

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(membershipTag, membershipValidation)
	core.RegisterCustomTranslation(validate, translator, membershipTag, membershipText)

	_ = validate.RegisterValidation(pin4Tag, pin4Validation)
	core.RegisterCustomTranslation(validate, translator, pin4Tag, pin4Text)
}

func membershipValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, status := range MembershipStatuses {
		if val == status {
			return true
		}
	}
	return false
}

func pin4Validation(fl validator.FieldLevel) bool {
	return ValidPIN(fl.Field().String())
}
