package class

import (
	"testing"
	"time"
)

// Monday 2026-08-24; the session runs 18:00-19:00.
var monday = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func TestSession_InWindow(t *testing.T) {
	sess := Session{
		Name:        "Fundamentals",
		Weekday:     time.Monday,
		StartMinute: 18 * 60,
		EndMinute:   19 * 60,
	}

	tests := []struct {
		name  string
		at    time.Time
		early int
		late  int
		want  bool
	}{
		{name: "during the session", at: at(18, 30), early: 15, late: 15, want: true},
		{name: "at window open", at: at(17, 45), early: 15, late: 15, want: true},
		{name: "just before window open", at: at(17, 44), early: 15, late: 15, want: false},
		{name: "at window close", at: at(19, 15), early: 15, late: 15, want: true},
		{name: "just after window close", at: at(19, 16), early: 15, late: 15, want: false},
		{name: "no grace at all", at: at(17, 59), early: 0, late: 0, want: false},
		{name: "exactly at start with no grace", at: at(18, 0), early: 0, late: 0, want: true},
		{name: "wrong weekday", at: at(18, 30).AddDate(0, 0, 1), early: 15, late: 15, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sess.InWindow(tt.at, tt.early, tt.late); got != tt.want {
				t.Errorf("InWindow(%v, %d, %d) = %v, want %v", tt.at, tt.early, tt.late, got, tt.want)
			}
		})
	}
}

func TestSession_Window(t *testing.T) {
	sess := Session{Weekday: time.Monday, StartMinute: 18 * 60, EndMinute: 19 * 60}

	open, close := sess.Window(monday, 15, 30)
	if want := at(17, 45); !open.Equal(want) {
		t.Errorf("open = %v, want %v", open, want)
	}
	if want := at(19, 30); !close.Equal(want) {
		t.Errorf("close = %v, want %v", close, want)
	}
}

func TestSession_OccursOn(t *testing.T) {
	sess := Session{Weekday: time.Wednesday}
	wednesday := monday.AddDate(0, 0, 2)
	if !sess.OccursOn(wednesday) {
		t.Error("should occur on its own weekday")
	}
	if sess.OccursOn(monday) {
		t.Error("should not occur on another weekday")
	}
}
