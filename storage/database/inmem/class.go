package inmemdb

import (
	"context"

	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
)

type classRepository struct {
	db  *classTable
	res *reservationTable
	std *studentTable
}

func NewClassRepository(db *DB) *classRepository {
	return &classRepository{db: db.class, res: db.reservation, std: db.student}
}

func (repo *classRepository) CreateClass(ctx context.Context, sess class.Session) (class.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[sess.ID] = &sess
	return sess, nil
}

func (repo *classRepository) GetClassByID(ctx context.Context, id string) (class.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sess, ok := repo.db.table[id]; ok {
		return *sess, nil
	}
	return class.Session{}, class.ErrNotFound
}

func (repo *classRepository) QueryAllClasses(ctx context.Context) ([]class.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := make([]class.Session, 0, len(repo.db.table))
	for _, sess := range repo.db.table {
		sessions = append(sessions, *sess)
	}
	return sessions, nil
}

func (repo *classRepository) SaveReservation(ctx context.Context, res class.Reservation) (class.Reservation, error) {
	repo.res.mutex.Lock()
	defer repo.res.mutex.Unlock()

	key := res.StudentID + "/" + res.ClassID
	if orig, ok := repo.res.table[key]; ok {
		orig.Status = res.Status
		return *orig, nil
	}
	repo.res.table[key] = &res
	return res, nil
}

func (repo *classRepository) ActiveReservationStudents(ctx context.Context, classID string) ([]student.Student, error) {
	repo.res.mutex.RLock()
	defer repo.res.mutex.RUnlock()
	repo.std.mutex.RLock()
	defer repo.std.mutex.RUnlock()

	students := make([]student.Student, 0)
	for _, res := range repo.res.table {
		if res.ClassID != classID || res.Status != class.ReservationReserved {
			continue
		}
		if std, ok := repo.std.table[res.StudentID]; ok {
			students = append(students, *std)
		}
	}
	sortStudents(students)
	return students, nil
}
