package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/student"
)

type studentRepository struct {
	db *sqlx.DB
}

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	const q = `
INSERT INTO student (id, name, belt_level, membership_status, pin_digest, created_at, updated_at)
VALUES (:id, :name, :belt_level, :membership_status, :pin_digest, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, std); err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var std student.Student
	err := repo.db.GetContext(ctx, &std, `SELECT * FROM student WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return std, nil
}

func (repo *studentRepository) GetStudentsByPINDigest(ctx context.Context, digest string) ([]student.Student, error) {
	students := make([]student.Student, 0)
	err := repo.db.SelectContext(ctx, &students, `SELECT * FROM student WHERE pin_digest = $1 AND pin_digest <> ''`, digest)
	if err != nil {
		return nil, errors.Wrap(err, "querying students by pin")
	}
	return students, nil
}

func (repo *studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	q := `SELECT * FROM student WHERE 1=1`
	var args []interface{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		q += ` AND name ILIKE $` + itoa(len(args))
	}
	if filter.MembershipStatus != "" {
		args = append(args, filter.MembershipStatus)
		q += ` AND membership_status = $` + itoa(len(args))
	}
	q += ` ORDER BY name, id`

	students := make([]student.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	return students, nil
}

func (repo *studentRepository) SetStudentPINDigest(ctx context.Context, id, digest string) (student.Student, error) {
	const q = `
UPDATE student SET pin_digest = $2, updated_at = now()
WHERE id = $1
RETURNING *`
	var std student.Student
	err := repo.db.GetContext(ctx, &std, q, id, digest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "setting student pin")
	}
	return std, nil
}
