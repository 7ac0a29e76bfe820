package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	// the conflict target is the daily key; an existing record keeps its
	// id and created_at
	const q = `
INSERT INTO attendance_record (id, student_id, class_id, date, status, notes, source, created_at, updated_at)
VALUES (:id, :student_id, :class_id, :date, :status, :notes, :source, :created_at, :updated_at)
ON CONFLICT (student_id, class_id, date) DO UPDATE
SET status = EXCLUDED.status, notes = EXCLUDED.notes, source = EXCLUDED.source, updated_at = EXCLUDED.updated_at
RETURNING *`
	rows, err := repo.db.NamedQueryContext(ctx, q, rec)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance record")
	}
	defer func() { _ = rows.Close() }()

	var saved attendance.Record
	if rows.Next() {
		if err = rows.StructScan(&saved); err != nil {
			return attendance.Record{}, errors.Wrap(err, "upserting attendance record")
		}
	}
	if err = rows.Err(); err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance record")
	}
	return saved, nil
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, studentID, classID string, date time.Time) (attendance.Record, error) {
	var rec attendance.Record
	err := repo.db.GetContext(ctx, &rec,
		`SELECT * FROM attendance_record WHERE student_id = $1 AND class_id = $2 AND date = $3`,
		studentID, classID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attendance.Record{}, attendance.ErrNotFound
		}
		return attendance.Record{}, errors.Wrap(err, "getting attendance record")
	}
	return rec, nil
}

func (repo *attendanceRepository) FilterRecords(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	q := `SELECT * FROM attendance_record WHERE 1=1`
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		q += ` AND student_id = $` + itoa(len(args))
	}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		q += ` AND class_id = $` + itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		q += ` AND date >= $` + itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		q += ` AND date <= $` + itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		q += ` AND status = $` + itoa(len(args))
	}
	q += ` ORDER BY date DESC, created_at DESC`

	recs := make([]attendance.Record, 0)
	if err := repo.db.SelectContext(ctx, &recs, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering attendance records")
	}
	return recs, nil
}

func (repo *attendanceRepository) RecordsForClassDate(ctx context.Context, classID string, date time.Time) ([]attendance.Record, error) {
	recs := make([]attendance.Record, 0)
	err := repo.db.SelectContext(ctx, &recs,
		`SELECT * FROM attendance_record WHERE class_id = $1 AND date = $2 ORDER BY created_at`,
		classID, date)
	if err != nil {
		return nil, errors.Wrap(err, "querying class attendance")
	}
	return recs, nil
}

func (repo *attendanceRepository) ReplaceRecords(
	ctx context.Context,
	classID string,
	date time.Time,
	studentIDs []string,
	status attendance.Status,
	source attendance.Source,
) ([]attendance.Record, error) {
	if len(studentIDs) == 0 {
		return []attendance.Record{}, nil
	}

	// a single multi-row upsert keeps the whole replacement atomic and
	// retriable
	now := time.Now().UTC()
	values := make([]string, 0, len(studentIDs))
	args := []interface{}{classID, date, status, source, now}
	for _, sid := range studentIDs {
		args = append(args, uuid.NewString(), sid)
		n := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $1, $2, $3, NULL, $4, $5, $5)", n-1, n))
	}
	q := `
INSERT INTO attendance_record (id, student_id, class_id, date, status, notes, source, created_at, updated_at)
VALUES ` + strings.Join(values, ", ") + `
ON CONFLICT (student_id, class_id, date) DO UPDATE
SET status = EXCLUDED.status, notes = EXCLUDED.notes, source = EXCLUDED.source, updated_at = EXCLUDED.updated_at
RETURNING *`

	recs := make([]attendance.Record, 0, len(studentIDs))
	rows, err := repo.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "replacing attendance records")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var rec attendance.Record
		if err = rows.StructScan(&rec); err != nil {
			return nil, errors.Wrap(err, "replacing attendance records")
		}
		recs = append(recs, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "replacing attendance records")
	}
	return recs, nil
}

func (repo *attendanceRepository) CreatedOn(ctx context.Context, date time.Time, limit int) ([]attendance.Record, error) {
	recs := make([]attendance.Record, 0)
	err := repo.db.SelectContext(ctx, &recs,
		`SELECT * FROM attendance_record WHERE date = $1 ORDER BY created_at DESC LIMIT $2`,
		date, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent attendance records")
	}
	return recs, nil
}
