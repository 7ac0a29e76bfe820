package attendance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("attendance record not found")
)

type (
	Repository interface {
		// UpsertRecord writes rec under its (StudentID, ClassID, Date) key:
		// an existing record keeps its ID and CreatedAt, takes the new
		// Status/Notes/Source and UpdatedAt. Must be a single store-side
		// operation so repeated calls converge.
		UpsertRecord(ctx context.Context, rec Record) (Record, error)
		GetRecord(ctx context.Context, studentID, classID string, date time.Time) (Record, error)
		// FilterRecords returns matches ordered by date, newest first, then
		// by CreatedAt, newest first.
		FilterRecords(ctx context.Context, filter Filter) ([]Record, error)
		RecordsForClassDate(ctx context.Context, classID string, date time.Time) ([]Record, error)
		// ReplaceRecords atomically replaces the (classID, date) key set
		// restricted to studentIDs: every given student ends up with exactly
		// one record bearing status/source, records of students outside the
		// set are untouched. Retriable to the same end state.
		ReplaceRecords(ctx context.Context, classID string, date time.Time, studentIDs []string, status Status, source Source) ([]Record, error)
		// CreatedOn returns records whose Date is `date`, ordered by
		// CreatedAt newest first, capped at limit.
		CreatedOn(ctx context.Context, date time.Time, limit int) ([]Record, error)
	}

	Service struct {
		repo   Repository
		stdSvc *student.Service
		clsSvc *class.Service

		snapshots snapshotCache
	}
)

func NewService(repo Repository, stdSvc *student.Service, clsSvc *class.Service) *Service {
	return &Service{
		repo:      repo,
		stdSvc:    stdSvc,
		clsSvc:    clsSvc,
		snapshots: snapshotCache{entries: make(map[string]snapshotEntry)},
	}
}

// MarkSingle records one status for one student on one class and date,
// overwriting any existing record for that key. Repeated calls with the same
// arguments converge to one record with the latest values.
func (svc *Service) MarkSingle(ctx context.Context, studentID, classID string, date time.Time, status Status, notes string, source Source) (Record, error) {
	if !status.Valid() {
		return Record{}, core.NewValidationError(errors.New("invalid status"),
			core.FieldError{Field: "status", Error: "status must be one of present, absent, late, excused"})
	}
	if _, err := svc.stdSvc.GetByID(ctx, studentID); err != nil {
		return Record{}, err
	}
	if _, err := svc.clsSvc.GetByID(ctx, classID); err != nil {
		return Record{}, err
	}

	now := time.Now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		StudentID: studentID,
		ClassID:   classID,
		Date:      DateOf(date),
		Status:    status,
		Notes:     null.NewString(notes, notes != ""),
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec, err := svc.repo.UpsertRecord(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	svc.snapshots.invalidate(studentID, classID)
	return rec, nil
}

// Roster resolves the expected students of a class for a date, left-joined
// with their attendance record for that date. Students with no record appear
// with a null status ("unmarked").
func (svc *Service) Roster(ctx context.Context, classID string, date time.Time) ([]RosterEntry, error) {
	roster, err := svc.clsSvc.Roster(ctx, classID)
	if err != nil {
		return nil, err
	}

	recs, err := svc.repo.RecordsForClassDate(ctx, classID, DateOf(date))
	if err != nil {
		return nil, err
	}
	byStudent := make(map[string]Record, len(recs))
	for _, rec := range recs {
		byStudent[rec.StudentID] = rec
	}

	entries := make([]RosterEntry, 0, len(roster))
	for _, std := range roster {
		entry := RosterEntry{Student: std}
		if rec, ok := byStudent[std.ID]; ok {
			entry.Status = null.StringFrom(string(rec.Status))
			entry.RecordID = null.StringFrom(rec.ID)
			entry.Notes = rec.Notes
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// MarkUnmarkedAsAbsent marks absent exactly the roster subset with no record
// for the date; already-marked records are never touched, so the operation is
// idempotent.
func (svc *Service) MarkUnmarkedAsAbsent(ctx context.Context, classID string, date time.Time) (int, error) {
	entries, err := svc.Roster(ctx, classID, date)
	if err != nil {
		return 0, err
	}

	var marked int
	for _, entry := range entries {
		if !entry.Unmarked() {
			continue
		}
		if _, err = svc.MarkSingle(ctx, entry.Student.ID, classID, date, StatusAbsent, "", SourceBulk); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// BulkApply replaces the records of the given students for (classID, date)
// with one record each bearing the target status, as a single store-side
// operation. Students outside the set keep their records.
func (svc *Service) BulkApply(ctx context.Context, classID string, date time.Time, studentIDs []string, status Status) ([]Record, error) {
	if !status.Valid() {
		return nil, core.NewValidationError(errors.New("invalid status"),
			core.FieldError{Field: "status", Error: "status must be one of present, absent, late, excused"})
	}
	if _, err := svc.clsSvc.GetByID(ctx, classID); err != nil {
		return nil, err
	}

	recs, err := svc.repo.ReplaceRecords(ctx, classID, DateOf(date), studentIDs, status, SourceBulk)
	if err != nil {
		return nil, err
	}
	for _, id := range studentIDs {
		svc.snapshots.invalidate(id, classID)
	}
	return recs, nil
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Record, error) {
	return svc.repo.FilterRecords(ctx, filter)
}

// Get returns the record under one (student, class, date) key; an unmarked
// student yields ErrNotFound.
func (svc *Service) Get(ctx context.Context, studentID, classID string, date time.Time) (Record, error) {
	return svc.repo.GetRecord(ctx, studentID, classID, DateOf(date))
}

// RecentCheckIns returns the most recent records created on `date`, newest
// created first; the kiosk feed polls this.
func (svc *Service) RecentCheckIns(ctx context.Context, date time.Time, limit int) ([]Record, error) {
	return svc.repo.CreatedOn(ctx, DateOf(date), limit)
}

// Stats computes (or returns the cached) derived snapshot for a scope.
// Every ledger write invalidates snapshots of the affected student/class.
func (svc *Service) Stats(ctx context.Context, scope StatsScope) (Snapshot, error) {
	if snap, ok := svc.snapshots.get(scope); ok {
		return snap, nil
	}

	recs, err := svc.repo.FilterRecords(ctx, Filter{
		StudentID: scope.StudentID,
		ClassID:   scope.ClassID,
		From:      scope.From,
		To:        scope.To,
	})
	if err != nil {
		return Snapshot{}, err
	}

	snap := ComputeSnapshot(recs, scope.From, scope.To, scope.GoalTarget)
	svc.snapshots.put(scope, snap)
	return snap, nil
}

// snapshot cache; ledger writes drop affected entries (eventual recompute).

type (
	snapshotEntry struct {
		scope StatsScope
		snap  Snapshot
	}

	snapshotCache struct {
		mu      sync.RWMutex
		entries map[string]snapshotEntry
	}
)

func (c *snapshotCache) get(scope StatsScope) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[scope.key()]
	return entry.snap, ok
}

func (c *snapshotCache) put(scope StatsScope, snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[scope.key()] = snapshotEntry{scope: scope, snap: snap}
}

func (c *snapshotCache) invalidate(studentID, classID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if entry.scope.touches(studentID, classID) {
			delete(c.entries, key)
		}
	}
}
