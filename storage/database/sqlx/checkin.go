package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core/checkin"
)

type checkinRepository struct {
	db *sqlx.DB
}

func NewCheckinRepository(db *sqlx.DB) *checkinRepository {
	return &checkinRepository{db: db}
}

func (repo *checkinRepository) GetSettings(ctx context.Context) (checkin.Settings, error) {
	var s checkin.Settings
	err := repo.db.GetContext(ctx, &s, `
SELECT kiosk_mode_enabled, auto_checkout_hours, require_class_selection, early_window_minutes,
       late_window_minutes, require_pin_verification, location_tracking_enabled, max_distance_meters,
       welcome_message, academy_latitude, academy_longitude, kiosk_refresh_seconds,
       dashboard_refresh_seconds, recent_feed_size
FROM checkin_settings WHERE id = TRUE`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return checkin.DefaultSettings(), nil
		}
		return checkin.Settings{}, errors.Wrap(err, "getting check-in settings")
	}
	return s, nil
}

func (repo *checkinRepository) SaveSettings(ctx context.Context, s checkin.Settings) (checkin.Settings, error) {
	const q = `
INSERT INTO checkin_settings (id, kiosk_mode_enabled, auto_checkout_hours, require_class_selection,
    early_window_minutes, late_window_minutes, require_pin_verification, location_tracking_enabled,
    max_distance_meters, welcome_message, academy_latitude, academy_longitude, kiosk_refresh_seconds,
    dashboard_refresh_seconds, recent_feed_size)
VALUES (TRUE, :kiosk_mode_enabled, :auto_checkout_hours, :require_class_selection,
    :early_window_minutes, :late_window_minutes, :require_pin_verification, :location_tracking_enabled,
    :max_distance_meters, :welcome_message, :academy_latitude, :academy_longitude, :kiosk_refresh_seconds,
    :dashboard_refresh_seconds, :recent_feed_size)
ON CONFLICT (id) DO UPDATE
SET kiosk_mode_enabled = EXCLUDED.kiosk_mode_enabled,
    auto_checkout_hours = EXCLUDED.auto_checkout_hours,
    require_class_selection = EXCLUDED.require_class_selection,
    early_window_minutes = EXCLUDED.early_window_minutes,
    late_window_minutes = EXCLUDED.late_window_minutes,
    require_pin_verification = EXCLUDED.require_pin_verification,
    location_tracking_enabled = EXCLUDED.location_tracking_enabled,
    max_distance_meters = EXCLUDED.max_distance_meters,
    welcome_message = EXCLUDED.welcome_message,
    academy_latitude = EXCLUDED.academy_latitude,
    academy_longitude = EXCLUDED.academy_longitude,
    kiosk_refresh_seconds = EXCLUDED.kiosk_refresh_seconds,
    dashboard_refresh_seconds = EXCLUDED.dashboard_refresh_seconds,
    recent_feed_size = EXCLUDED.recent_feed_size`
	if _, err := repo.db.NamedExecContext(ctx, q, s); err != nil {
		return checkin.Settings{}, errors.Wrap(err, "saving check-in settings")
	}
	return s, nil
}

func (repo *checkinRepository) CreateSession(ctx context.Context, sess checkin.Session) (checkin.Session, error) {
	const q = `
INSERT INTO checkin_session (id, student_id, class_id, date, state, checked_in_at, checked_out_at)
VALUES (:id, :student_id, :class_id, :date, :state, :checked_in_at, :checked_out_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, sess); err != nil {
		return checkin.Session{}, errors.Wrap(err, "inserting check-in session")
	}
	return sess, nil
}

func (repo *checkinRepository) GetOpenSession(ctx context.Context, studentID string, date time.Time) (checkin.Session, error) {
	var sess checkin.Session
	err := repo.db.GetContext(ctx, &sess, `
SELECT * FROM checkin_session
WHERE student_id = $1 AND date = $2 AND state = $3
ORDER BY checked_in_at DESC LIMIT 1`,
		studentID, date, checkin.StateCheckedIn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return checkin.Session{}, checkin.ErrNoOpenSession
		}
		return checkin.Session{}, errors.Wrap(err, "getting open check-in session")
	}
	return sess, nil
}

func (repo *checkinRepository) CloseSession(ctx context.Context, id string, state checkin.SessionState, at time.Time) (checkin.Session, error) {
	const q = `
UPDATE checkin_session SET state = $2, checked_out_at = $3
WHERE id = $1 AND state = $4
RETURNING *`
	var sess checkin.Session
	err := repo.db.GetContext(ctx, &sess, q, id, state, at, checkin.StateCheckedIn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return checkin.Session{}, checkin.ErrNoOpenSession
		}
		return checkin.Session{}, errors.Wrap(err, "closing check-in session")
	}
	return sess, nil
}

func (repo *checkinRepository) OpenSessionsBefore(ctx context.Context, cutoff time.Time) ([]checkin.Session, error) {
	sessions := make([]checkin.Session, 0)
	err := repo.db.SelectContext(ctx, &sessions, `
SELECT * FROM checkin_session
WHERE state = $1 AND checked_in_at < $2
ORDER BY checked_in_at`,
		checkin.StateCheckedIn, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "querying stale check-in sessions")
	}
	return sessions, nil
}
