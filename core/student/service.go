package student

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core"
)

var (
	// errors
	ErrNotFound     = errors.New("student not found")
	ErrPINTaken     = errors.New("this PIN is already assigned to an active student")
	ErrAmbiguousPIN = errors.New("PIN matches more than one active student")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		// GetStudentsByPINDigest returns all students holding the digest regardless
		// of membership status; callers narrow down to active ones.
		GetStudentsByPINDigest(ctx context.Context, digest string) ([]Student, error)
		// FilterStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Student.Name.
		FilterStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		SetStudentPINDigest(ctx context.Context, id, digest string) (Student, error)
	}

	Service struct {
		repo Repository
		conf *core.Config
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, conf: conf}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	status := ns.MembershipStatus
	if status == "" {
		status = MembershipActive
	}
	std := Student{
		ID:               uuid.NewString(),
		Name:             ns.Name,
		BeltLevel:        ns.BeltLevel,
		MembershipStatus: status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Student, error) {
	filter.Clean()
	return svc.repo.FilterStudents(ctx, filter)
}

// GetActiveByPIN resolves the single active Student holding the given raw PIN.
// Zero matches yields ErrNotFound; more than one active match yields
// ErrAmbiguousPIN (AssignPIN prevents this state, this only detects it).
func (svc *Service) GetActiveByPIN(ctx context.Context, pin string) (Student, error) {
	if !ValidPIN(pin) {
		return Student{}, core.NewValidationError(errors.New("malformed PIN"),
			core.FieldError{Field: "pin", Error: "PIN must be exactly 4 digits"})
	}

	matches, err := svc.repo.GetStudentsByPINDigest(ctx, DigestPIN(svc.conf, pin))
	if err != nil {
		return Student{}, err
	}

	var found []Student
	for _, std := range matches {
		if std.IsActive() {
			found = append(found, std)
		}
	}
	switch len(found) {
	case 0:
		return Student{}, ErrNotFound
	case 1:
		return found[0], nil
	default:
		return Student{}, ErrAmbiguousPIN
	}
}

// SetPIN assigns a new check-in PIN, rejecting any PIN already held by another
// active student so kiosk resolution stays unambiguous.
func (svc *Service) SetPIN(ctx context.Context, ap AssignPIN) (Student, error) {
	digest := DigestPIN(svc.conf, ap.PIN)

	holders, err := svc.repo.GetStudentsByPINDigest(ctx, digest)
	if err != nil {
		return Student{}, err
	}
	for _, holder := range holders {
		if holder.IsActive() && holder.ID != ap.StudentID {
			return Student{}, core.NewValidationError(ErrPINTaken,
				core.FieldError{Field: "pin", Error: ErrPINTaken.Error()})
		}
	}
	return svc.repo.SetStudentPINDigest(ctx, ap.StudentID, digest)
}
