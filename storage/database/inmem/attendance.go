package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

// findLocked returns the record holding the daily key. Callers must hold at
// least a read lock.
func (repo *attendanceRepository) findLocked(studentID, classID string, date time.Time) *attendance.Record {
	for _, rec := range repo.db.table {
		if rec.StudentID == studentID && rec.ClassID == classID && rec.Date.Equal(date) {
			return rec
		}
	}
	return nil
}

func (repo *attendanceRepository) upsertLocked(rec attendance.Record) attendance.Record {
	if orig := repo.findLocked(rec.StudentID, rec.ClassID, rec.Date); orig != nil {
		orig.Status = rec.Status
		orig.Notes = rec.Notes
		orig.Source = rec.Source
		orig.UpdatedAt = rec.UpdatedAt
		return *orig
	}
	repo.db.table[rec.ID] = &rec
	return rec
}

func (repo *attendanceRepository) UpsertRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.upsertLocked(rec), nil
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, studentID, classID string, date time.Time) (attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec := repo.findLocked(studentID, classID, date); rec != nil {
		return *rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) FilterRecords(ctx context.Context, filter attendance.Filter) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.table {
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if filter.ClassID != "" && rec.ClassID != filter.ClassID {
			continue
		}
		if !filter.From.IsZero() && rec.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && rec.Date.After(filter.To) {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		recs = append(recs, *rec)
	}
	sortNewestFirst(recs)
	return recs, nil
}

func (repo *attendanceRepository) RecordsForClassDate(ctx context.Context, classID string, date time.Time) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.table {
		if rec.ClassID == classID && rec.Date.Equal(date) {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
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
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	now := time.Now().UTC()
	recs := make([]attendance.Record, 0, len(studentIDs))
	for _, sid := range studentIDs {
		rec := attendance.Record{
			ID:        uuid.NewString(),
			StudentID: sid,
			ClassID:   classID,
			Date:      date,
			Status:    status,
			Notes:     null.String{},
			Source:    source,
			CreatedAt: now,
			UpdatedAt: now,
		}
		recs = append(recs, repo.upsertLocked(rec))
	}
	return recs, nil
}

func (repo *attendanceRepository) CreatedOn(ctx context.Context, date time.Time, limit int) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.table {
		if rec.Date.Equal(date) {
			recs = append(recs, *rec)
		}
	}
	sortNewestFirst(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func sortNewestFirst(recs []attendance.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.After(recs[j].Date)
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
