package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
)

type classRepository struct {
	db *sqlx.DB
}

func NewClassRepository(db *sqlx.DB) *classRepository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(ctx context.Context, sess class.Session) (class.Session, error) {
	const q = `
INSERT INTO class (id, name, weekday, start_minute, end_minute, capacity, instructor_id, instructor_name, created_at, updated_at)
VALUES (:id, :name, :weekday, :start_minute, :end_minute, :capacity, :instructor_id, :instructor_name, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, sess); err != nil {
		return class.Session{}, errors.Wrap(err, "inserting class")
	}
	return sess, nil
}

func (repo *classRepository) GetClassByID(ctx context.Context, id string) (class.Session, error) {
	var sess class.Session
	err := repo.db.GetContext(ctx, &sess, `SELECT * FROM class WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return class.Session{}, class.ErrNotFound
		}
		return class.Session{}, errors.Wrap(err, "getting class")
	}
	return sess, nil
}

func (repo *classRepository) QueryAllClasses(ctx context.Context) ([]class.Session, error) {
	sessions := make([]class.Session, 0)
	err := repo.db.SelectContext(ctx, &sessions, `SELECT * FROM class ORDER BY weekday, start_minute, name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return sessions, nil
}

func (repo *classRepository) SaveReservation(ctx context.Context, res class.Reservation) (class.Reservation, error) {
	const q = `
INSERT INTO reservation (student_id, class_id, status, created_at)
VALUES (:student_id, :class_id, :status, :created_at)
ON CONFLICT (student_id, class_id) DO UPDATE SET status = EXCLUDED.status`
	if _, err := repo.db.NamedExecContext(ctx, q, res); err != nil {
		return class.Reservation{}, errors.Wrap(err, "saving reservation")
	}
	return res, nil
}

func (repo *classRepository) ActiveReservationStudents(ctx context.Context, classID string) ([]student.Student, error) {
	const q = `
SELECT s.* FROM student s
JOIN reservation r ON r.student_id = s.id
WHERE r.class_id = $1 AND r.status = $2
ORDER BY s.name, s.id`
	students := make([]student.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, q, classID, class.ReservationReserved); err != nil {
		return nil, errors.Wrap(err, "querying class roster")
	}
	return students, nil
}
