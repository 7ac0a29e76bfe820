package checkin

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mahudhurio/core"
)

// Settings is the check-in policy snapshot. It is loaded once at startup and
// only replaced through an explicit UpdateSettings/Reload; components never
// read ambient mutable state.
type Settings struct {
	KioskModeEnabled        bool    `json:"kiosk_mode_enabled" db:"kiosk_mode_enabled"`
	AutoCheckoutHours       int     `json:"auto_checkout_hours" db:"auto_checkout_hours"`
	RequireClassSelection   bool    `json:"require_class_selection" db:"require_class_selection"`
	EarlyWindowMinutes      int     `json:"early_window_minutes" db:"early_window_minutes"`
	LateWindowMinutes       int     `json:"late_window_minutes" db:"late_window_minutes"`
	RequirePinVerification  bool    `json:"require_pin_verification" db:"require_pin_verification"`
	LocationTrackingEnabled bool    `json:"location_tracking_enabled" db:"location_tracking_enabled"`
	MaxDistanceMeters       float64 `json:"max_distance_meters" db:"max_distance_meters"`
	WelcomeMessage          string  `json:"welcome_message" db:"welcome_message"`

	// registered academy location, compared against device coordinates
	AcademyLatitude  float64 `json:"academy_latitude" db:"academy_latitude"`
	AcademyLongitude float64 `json:"academy_longitude" db:"academy_longitude"`

	// polling cadences; the kiosk feed refreshes faster than the dashboard
	KioskRefreshSeconds     int `json:"kiosk_refresh_seconds" db:"kiosk_refresh_seconds"`
	DashboardRefreshSeconds int `json:"dashboard_refresh_seconds" db:"dashboard_refresh_seconds"`
	RecentFeedSize          int `json:"recent_feed_size" db:"recent_feed_size"`
}

func DefaultSettings() Settings {
	return Settings{
		KioskModeEnabled:        false,
		AutoCheckoutHours:       4,
		RequireClassSelection:   false,
		EarlyWindowMinutes:      15,
		LateWindowMinutes:       15,
		RequirePinVerification:  true,
		LocationTrackingEnabled: false,
		MaxDistanceMeters:       100,
		WelcomeMessage:          "Welcome! Enter your PIN to check in.",
		KioskRefreshSeconds:     15,
		DashboardRefreshSeconds: 60,
		RecentFeedSize:          10,
	}
}

func (s Settings) KioskRefreshInterval() time.Duration {
	return time.Duration(s.KioskRefreshSeconds) * time.Second
}

func (s Settings) AutoCheckoutAfter() time.Duration {
	return time.Duration(s.AutoCheckoutHours) * time.Hour
}

// SettingsPatch is a partial-field upsert of Settings; nil fields keep their
// current value. Every applied patch takes effect for subsequent gate
// evaluations immediately.
type SettingsPatch struct {
	KioskModeEnabled        *bool    `json:"kiosk_mode_enabled"`
	AutoCheckoutHours       *int     `json:"auto_checkout_hours" validate:"omitempty,min=1,max=24"`
	RequireClassSelection   *bool    `json:"require_class_selection"`
	EarlyWindowMinutes      *int     `json:"early_window_minutes" validate:"omitempty,min=0,max=240"`
	LateWindowMinutes       *int     `json:"late_window_minutes" validate:"omitempty,min=0,max=240"`
	RequirePinVerification  *bool    `json:"require_pin_verification"`
	LocationTrackingEnabled *bool    `json:"location_tracking_enabled"`
	MaxDistanceMeters       *float64 `json:"max_distance_meters" validate:"omitempty,gt=0"`
	WelcomeMessage          *string  `json:"welcome_message"`
	AcademyLatitude         *float64 `json:"academy_latitude" validate:"omitempty,latitude"`
	AcademyLongitude        *float64 `json:"academy_longitude" validate:"omitempty,longitude"`
	KioskRefreshSeconds     *int     `json:"kiosk_refresh_seconds" validate:"omitempty,min=5"`
	DashboardRefreshSeconds *int     `json:"dashboard_refresh_seconds" validate:"omitempty,min=15"`
	RecentFeedSize          *int     `json:"recent_feed_size" validate:"omitempty,min=1,max=100"`
}

func (p *SettingsPatch) Validate(validate *validator.Validate) error {
	if p.WelcomeMessage != nil {
		msg := core.CleanString(*p.WelcomeMessage)
		p.WelcomeMessage = &msg
	}
	return validate.Struct(p)
}

// Apply overlays the patch's set fields onto s.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.KioskModeEnabled != nil {
		s.KioskModeEnabled = *p.KioskModeEnabled
	}
	if p.AutoCheckoutHours != nil {
		s.AutoCheckoutHours = *p.AutoCheckoutHours
	}
	if p.RequireClassSelection != nil {
		s.RequireClassSelection = *p.RequireClassSelection
	}
	if p.EarlyWindowMinutes != nil {
		s.EarlyWindowMinutes = *p.EarlyWindowMinutes
	}
	if p.LateWindowMinutes != nil {
		s.LateWindowMinutes = *p.LateWindowMinutes
	}
	if p.RequirePinVerification != nil {
		s.RequirePinVerification = *p.RequirePinVerification
	}
	if p.LocationTrackingEnabled != nil {
		s.LocationTrackingEnabled = *p.LocationTrackingEnabled
	}
	if p.MaxDistanceMeters != nil {
		s.MaxDistanceMeters = *p.MaxDistanceMeters
	}
	if p.WelcomeMessage != nil {
		s.WelcomeMessage = *p.WelcomeMessage
	}
	if p.AcademyLatitude != nil {
		s.AcademyLatitude = *p.AcademyLatitude
	}
	if p.AcademyLongitude != nil {
		s.AcademyLongitude = *p.AcademyLongitude
	}
	if p.KioskRefreshSeconds != nil {
		s.KioskRefreshSeconds = *p.KioskRefreshSeconds
	}
	if p.DashboardRefreshSeconds != nil {
		s.DashboardRefreshSeconds = *p.DashboardRefreshSeconds
	}
	if p.RecentFeedSize != nil {
		s.RecentFeedSize = *p.RecentFeedSize
	}
	return s
}

type (
	Repository interface {
		// GetSettings returns the stored policy, or DefaultSettings when none
		// has ever been saved.
		GetSettings(ctx context.Context) (Settings, error)
		// SaveSettings stores the full policy row (single-row upsert).
		SaveSettings(ctx context.Context, s Settings) (Settings, error)

		CreateSession(ctx context.Context, sess Session) (Session, error)
		// GetOpenSession returns the student's checked_in session for the
		// date, if any; ErrNoOpenSession otherwise.
		GetOpenSession(ctx context.Context, studentID string, date time.Time) (Session, error)
		// CloseSession transitions a session out of checked_in.
		CloseSession(ctx context.Context, id string, state SessionState, at time.Time) (Session, error)
		// OpenSessionsBefore returns checked_in sessions whose CheckedInAt is
		// before the cutoff.
		OpenSessionsBefore(ctx context.Context, cutoff time.Time) ([]Session, error)
	}

	// Service owns the policy snapshot and the check-in session lifecycle.
	Service struct {
		repo Repository

		mu     sync.RWMutex
		policy Settings
	}
)

// NewService loads the policy once; callers hold the same Service for the
// process lifetime and use Reload for explicit refreshes.
func NewService(ctx context.Context, repo Repository) (*Service, error) {
	svc := &Service{repo: repo}
	if err := svc.Reload(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// Policy returns the current immutable policy snapshot.
func (svc *Service) Policy() Settings {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.policy
}

// Reload replaces the policy snapshot from the store.
func (svc *Service) Reload(ctx context.Context) error {
	s, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return err
	}
	svc.mu.Lock()
	svc.policy = s
	svc.mu.Unlock()
	return nil
}

// UpdateSettings applies a partial-field upsert and makes the result the
// current policy immediately.
func (svc *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	current, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return Settings{}, err
	}
	saved, err := svc.repo.SaveSettings(ctx, patch.Apply(current))
	if err != nil {
		return Settings{}, err
	}
	svc.mu.Lock()
	svc.policy = saved
	svc.mu.Unlock()
	return saved, nil
}
