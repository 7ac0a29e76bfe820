package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core/checkin"
)

type checkinRepository struct {
	db *checkinTable
}

func NewCheckinRepository(db *DB) *checkinRepository {
	return &checkinRepository{db: db.checkin}
}

func (repo *checkinRepository) GetSettings(ctx context.Context) (checkin.Settings, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.settings == nil {
		return checkin.DefaultSettings(), nil
	}
	return *repo.db.settings, nil
}

func (repo *checkinRepository) SaveSettings(ctx context.Context, s checkin.Settings) (checkin.Settings, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.settings = &s
	return s, nil
}

func (repo *checkinRepository) CreateSession(ctx context.Context, sess checkin.Session) (checkin.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.sessions[sess.ID] = &sess
	return sess, nil
}

func (repo *checkinRepository) GetOpenSession(ctx context.Context, studentID string, date time.Time) (checkin.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var open *checkin.Session
	for _, sess := range repo.db.sessions {
		if sess.StudentID != studentID || !sess.Date.Equal(date) || !sess.Open() {
			continue
		}
		if open == nil || sess.CheckedInAt.After(open.CheckedInAt) {
			open = sess
		}
	}
	if open == nil {
		return checkin.Session{}, checkin.ErrNoOpenSession
	}
	return *open, nil
}

func (repo *checkinRepository) CloseSession(ctx context.Context, id string, state checkin.SessionState, at time.Time) (checkin.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sess, ok := repo.db.sessions[id]
	if !ok || !sess.Open() {
		return checkin.Session{}, checkin.ErrNoOpenSession
	}
	sess.State = state
	sess.CheckedOutAt = null.TimeFrom(at)
	return *sess, nil
}

func (repo *checkinRepository) OpenSessionsBefore(ctx context.Context, cutoff time.Time) ([]checkin.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	stale := make([]checkin.Session, 0)
	for _, sess := range repo.db.sessions {
		if sess.Open() && sess.CheckedInAt.Before(cutoff) {
			stale = append(stale, *sess)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CheckedInAt.Before(stale[j].CheckedInAt) })
	return stale, nil
}
