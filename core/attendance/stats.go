package attendance

import (
	"math"
	"sort"
	"strings"
	"time"
)

// DefaultGoalTarget is the monthly attendance-rate goal, in percent.
const DefaultGoalTarget = 80

type (
	// StatsScope selects the records a Snapshot is derived from.
	StatsScope struct {
		StudentID  string
		ClassID    string
		From       time.Time
		To         time.Time
		GoalTarget int // percent; DefaultGoalTarget when 0
	}

	// Snapshot holds derived attendance statistics. It is never persisted;
	// it is a pure function of a set of Records, recomputed on demand.
	Snapshot struct {
		AttendanceRate int          `json:"attendance_rate"` // percent
		CurrentStreak  int          `json:"current_streak"`
		LongestStreak  int          `json:"longest_streak"`
		ClassBreakdown []ClassStats `json:"class_breakdown"`
		WeeklyTrend    []WeekStats  `json:"weekly_trend"`
		Goal           GoalProgress `json:"goal"`
	}

	ClassStats struct {
		ClassID        string `json:"class_id"`
		TotalSessions  int    `json:"total_sessions"`
		PresentCount   int    `json:"present_count"`
		AbsentCount    int    `json:"absent_count"`
		AttendanceRate int    `json:"attendance_rate"` // percent
	}

	WeekStats struct {
		WeekStart      time.Time `json:"week_start"`
		AttendanceRate int       `json:"attendance_rate"` // percent
	}

	GoalProgress struct {
		Target     int `json:"target"`     // percent
		Rate       int `json:"rate"`       // percent
		Percentage int `json:"percentage"` // progress towards Target, capped at 100
	}
)

func (sc StatsScope) key() string {
	return strings.Join([]string{
		sc.StudentID, sc.ClassID,
		sc.From.Format(DateLayout), sc.To.Format(DateLayout),
	}, "|")
}

// touches reports whether a write for (studentID, classID) may affect records
// within the scope.
func (sc StatsScope) touches(studentID, classID string) bool {
	if sc.StudentID != "" && sc.StudentID != studentID {
		return false
	}
	if sc.ClassID != "" && sc.ClassID != classID {
		return false
	}
	return true
}

// ComputeSnapshot derives all statistics from records ordered by date, newest
// first. An unset from/to falls back to the oldest/newest record date.
func ComputeSnapshot(recs []Record, from, to time.Time, goalTarget int) Snapshot {
	if goalTarget <= 0 {
		goalTarget = DefaultGoalTarget
	}
	if len(recs) > 0 {
		if from.IsZero() {
			from = recs[len(recs)-1].Date
		}
		if to.IsZero() {
			to = recs[0].Date
		}
	}

	rate := Rate(recs)
	return Snapshot{
		AttendanceRate: rate,
		CurrentStreak:  CurrentStreak(recs),
		LongestStreak:  LongestStreak(recs),
		ClassBreakdown: ClassBreakdown(recs),
		WeeklyTrend:    WeeklyTrend(recs, from, to),
		Goal:           NewGoalProgress(rate, goalTarget),
	}
}

// Rate is round(present/total*100); 0 when there are no records.
func Rate(recs []Record) int {
	if len(recs) == 0 {
		return 0
	}
	var present int
	for _, rec := range recs {
		if rec.Status == StatusPresent {
			present++
		}
	}
	return pct(present, len(recs))
}

// CurrentStreak counts the consecutive leading `present` records, walking
// newest-first. It is 0 whenever the most recent record is not `present`,
// regardless of older history.
func CurrentStreak(recs []Record) int {
	var streak int
	for _, rec := range recs {
		if rec.Status != StatusPresent {
			break
		}
		streak++
	}
	return streak
}

// LongestStreak is the maximum length of any consecutive run of `present`
// records across the whole date-ordered list.
func LongestStreak(recs []Record) int {
	var longest, run int
	for _, rec := range recs {
		if rec.Status == StatusPresent {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

// ClassBreakdown groups records by class, ordered by class id.
func ClassBreakdown(recs []Record) []ClassStats {
	byClass := make(map[string]*ClassStats)
	for _, rec := range recs {
		stats, ok := byClass[rec.ClassID]
		if !ok {
			stats = &ClassStats{ClassID: rec.ClassID}
			byClass[rec.ClassID] = stats
		}
		stats.TotalSessions++
		switch rec.Status {
		case StatusPresent:
			stats.PresentCount++
		case StatusAbsent:
			stats.AbsentCount++
		}
	}

	breakdown := make([]ClassStats, 0, len(byClass))
	for _, stats := range byClass {
		stats.AttendanceRate = pct(stats.PresentCount, stats.TotalSessions)
		breakdown = append(breakdown, *stats)
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].ClassID < breakdown[j].ClassID })
	return breakdown
}

// WeeklyTrend partitions [from, to] into consecutive 7-day buckets anchored at
// the range start; a bucket with no records has rate 0.
func WeeklyTrend(recs []Record, from, to time.Time) []WeekStats {
	if from.IsZero() || to.Before(from) {
		return nil
	}
	from, to = DateOf(from), DateOf(to)

	var trend []WeekStats
	for start := from; !start.After(to); start = start.AddDate(0, 0, 7) {
		end := start.AddDate(0, 0, 7) // exclusive
		var present, total int
		for _, rec := range recs {
			if rec.Date.Before(start) || !rec.Date.Before(end) {
				continue
			}
			total++
			if rec.Status == StatusPresent {
				present++
			}
		}
		week := WeekStats{WeekStart: start}
		if total > 0 {
			week.AttendanceRate = pct(present, total)
		}
		trend = append(trend, week)
	}
	return trend
}

// NewGoalProgress measures rate against target, capped at 100%.
func NewGoalProgress(rate, target int) GoalProgress {
	progress := pct(rate, target)
	if progress > 100 {
		progress = 100
	}
	return GoalProgress{Target: target, Rate: rate, Percentage: progress}
}

func pct(num, den int) int {
	if den == 0 {
		return 0
	}
	return int(math.Round(float64(num) / float64(den) * 100))
}
