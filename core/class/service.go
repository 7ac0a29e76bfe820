package class

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/mahudhurio/core/student"
)

var (
	// errors
	ErrNotFound         = errors.New("class not found")
	ErrNoCurrentSession = errors.New("no session is currently open for check-in")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, sess Session) (Session, error)
		GetClassByID(ctx context.Context, id string) (Session, error)
		QueryAllClasses(ctx context.Context) ([]Session, error)
		// ActiveReservationStudents returns the students with a reserved (not
		// cancelled) Reservation on the class, the expected roster.
		ActiveReservationStudents(ctx context.Context, classID string) ([]student.Student, error)
		// SaveReservation upserts by (StudentID, ClassID) so re-reserving a
		// cancelled spot flips it back.
		SaveReservation(ctx context.Context, res Reservation) (Reservation, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewSession) (Session, error) {
	now := time.Now().UTC()
	sess := Session{
		ID:             uuid.NewString(),
		Name:           ns.Name,
		Weekday:        time.Weekday(ns.Weekday),
		StartMinute:    ns.StartMinute,
		EndMinute:      ns.EndMinute,
		Capacity:       ns.Capacity,
		InstructorID:   ns.InstructorID,
		InstructorName: ns.InstructorName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateClass(ctx, sess)
}

// Reserve books a roster spot for the student on the class. Reserving again
// after a cancellation reactivates the spot.
func (svc *Service) Reserve(ctx context.Context, studentID, classID string) (Reservation, error) {
	if _, err := svc.repo.GetClassByID(ctx, classID); err != nil {
		return Reservation{}, err
	}
	res := Reservation{
		StudentID: studentID,
		ClassID:   classID,
		Status:    ReservationReserved,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.SaveReservation(ctx, res)
}

// CancelReservation drops the student from the class roster without deleting
// the booking history.
func (svc *Service) CancelReservation(ctx context.Context, studentID, classID string) (Reservation, error) {
	if _, err := svc.repo.GetClassByID(ctx, classID); err != nil {
		return Reservation{}, err
	}
	res := Reservation{
		StudentID: studentID,
		ClassID:   classID,
		Status:    ReservationCancelled,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.SaveReservation(ctx, res)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Session, error) {
	return svc.repo.QueryAllClasses(ctx)
}

func (svc *Service) Roster(ctx context.Context, classID string) ([]student.Student, error) {
	if _, err := svc.repo.GetClassByID(ctx, classID); err != nil {
		return nil, err
	}
	return svc.repo.ActiveReservationStudents(ctx, classID)
}

// TodaySessions returns sessions scheduled on `at`'s weekday, earliest first.
func (svc *Service) TodaySessions(ctx context.Context, at time.Time) ([]Session, error) {
	all, err := svc.repo.QueryAllClasses(ctx)
	if err != nil {
		return nil, err
	}
	var today []Session
	for _, sess := range all {
		if sess.OccursOn(at) {
			today = append(today, sess)
		}
	}
	sort.Slice(today, func(i, j int) bool { return today[i].StartMinute < today[j].StartMinute })
	return today, nil
}

// InferCurrent resolves the session whose check-in window contains `at`, used
// by the kiosk when explicit class selection is not required. When several
// windows overlap the earliest-starting session wins.
func (svc *Service) InferCurrent(ctx context.Context, at time.Time, earlyMin, lateMin int) (Session, error) {
	today, err := svc.TodaySessions(ctx, at)
	if err != nil {
		return Session{}, err
	}
	for _, sess := range today {
		if sess.InWindow(at, earlyMin, lateMin) {
			return sess, nil
		}
	}
	return Session{}, ErrNoCurrentSession
}
