package attendance_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
)

type serviceEnv struct {
	stdSvc *student.Service
	clsSvc *class.Service
	svc    *attendance.Service
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatal(err)
	}
	conf := &core.Config{SecretKey: []byte("secret")}
	stdSvc := student.NewService(inmemdb.NewStudentRepository(db), conf)
	clsSvc := class.NewService(inmemdb.NewClassRepository(db))
	return &serviceEnv{
		stdSvc: stdSvc,
		clsSvc: clsSvc,
		svc:    attendance.NewService(inmemdb.NewAttendanceRepository(db), stdSvc, clsSvc),
	}
}

func (env *serviceEnv) newStudent(t *testing.T, name string) student.Student {
	t.Helper()
	std, err := env.stdSvc.Create(context.Background(), student.NewStudent{Name: name, BeltLevel: "blue"})
	if err != nil {
		t.Fatal(err)
	}
	return std
}

func (env *serviceEnv) newClass(t *testing.T, name string) class.Session {
	t.Helper()
	sess, err := env.clsSvc.Create(context.Background(), class.NewSession{
		Name:           name,
		Weekday:        1,
		StartMinute:    18 * 60,
		EndMinute:      19 * 60,
		InstructorName: "Prof. Maalim",
	})
	if err != nil {
		t.Fatal(err)
	}
	return sess
}

func (env *serviceEnv) reserve(t *testing.T, std student.Student, sess class.Session) {
	t.Helper()
	if _, err := env.clsSvc.Reserve(context.Background(), std.ID, sess.ID); err != nil {
		t.Fatal(err)
	}
}

func TestService_MarkSingle(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	std := env.newStudent(t, "Asha")
	sess := env.newClass(t, "Fundamentals")
	day := attendance.DateOf(time.Now())

	t.Run("unknown student", func(t *testing.T) {
		_, err := env.svc.MarkSingle(ctx, "nope", sess.ID, day, attendance.StatusPresent, "", attendance.SourceManual)
		if err != student.ErrNotFound {
			t.Errorf("err = %v, want %v", err, student.ErrNotFound)
		}
	})

	t.Run("unknown class", func(t *testing.T) {
		_, err := env.svc.MarkSingle(ctx, std.ID, "nope", day, attendance.StatusPresent, "", attendance.SourceManual)
		if err != class.ErrNotFound {
			t.Errorf("err = %v, want %v", err, class.ErrNotFound)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := env.svc.MarkSingle(ctx, std.ID, sess.ID, day, "maybe", "", attendance.SourceManual)
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("err = %T, want *core.ValidationError", err)
		}
	})

	t.Run("re-marking converges to one record", func(t *testing.T) {
		first, err := env.svc.MarkSingle(ctx, std.ID, sess.ID, day, attendance.StatusPresent, "", attendance.SourceManual)
		if err != nil {
			t.Fatal(err)
		}
		second, err := env.svc.MarkSingle(ctx, std.ID, sess.ID, day, attendance.StatusLate, "traffic", attendance.SourceManual)
		if err != nil {
			t.Fatal(err)
		}
		if second.ID != first.ID {
			t.Errorf("ID changed on re-mark: %s != %s", second.ID, first.ID)
		}
		if second.Status != attendance.StatusLate || second.Notes.String != "traffic" {
			t.Errorf("record not updated: %+v", second)
		}
		if !second.CreatedAt.Equal(first.CreatedAt) {
			t.Error("CreatedAt must survive an upsert")
		}

		recs, err := env.svc.Query(ctx, attendance.Filter{StudentID: std.ID})
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) != 1 {
			t.Errorf("got %d records, want 1", len(recs))
		}
	})

	t.Run("date normalizes to midnight utc", func(t *testing.T) {
		at := time.Date(2026, 8, 20, 19, 45, 3, 0, time.UTC)
		rec, err := env.svc.MarkSingle(ctx, std.ID, sess.ID, at, attendance.StatusPresent, "", attendance.SourceKiosk)
		if err != nil {
			t.Fatal(err)
		}
		if want := attendance.DateOf(at); !rec.Date.Equal(want) {
			t.Errorf("Date = %v, want %v", rec.Date, want)
		}
	})
}

func TestService_Roster(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	sess := env.newClass(t, "Sparring")
	day := attendance.DateOf(time.Now())

	marked := env.newStudent(t, "Marked")
	unmarked := env.newStudent(t, "Unmarked")
	env.reserve(t, marked, sess)
	env.reserve(t, unmarked, sess)

	if _, err := env.svc.MarkSingle(ctx, marked.ID, sess.ID, day, attendance.StatusPresent, "", attendance.SourceManual); err != nil {
		t.Fatal(err)
	}

	entries, err := env.svc.Roster(ctx, sess.ID, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for _, entry := range entries {
		switch entry.Student.ID {
		case marked.ID:
			if entry.Unmarked() || entry.Status.String != string(attendance.StatusPresent) {
				t.Errorf("marked student entry = %+v", entry)
			}
		case unmarked.ID:
			if !entry.Unmarked() {
				t.Errorf("unmarked student has status %q", entry.Status.String)
			}
		default:
			t.Errorf("unexpected student %s on roster", entry.Student.ID)
		}
	}
}

func TestService_MarkUnmarkedAsAbsent(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	sess := env.newClass(t, "Competition Team")
	day := attendance.DateOf(time.Now())

	for i := 0; i < 12; i++ {
		std := env.newStudent(t, fmt.Sprintf("Student %02d", i))
		env.reserve(t, std, sess)
		if i < 8 {
			if _, err := env.svc.MarkSingle(ctx, std.ID, sess.ID, day, attendance.StatusPresent, "", attendance.SourceManual); err != nil {
				t.Fatal(err)
			}
		}
	}

	marked, err := env.svc.MarkUnmarkedAsAbsent(ctx, sess.ID, day)
	if err != nil {
		t.Fatal(err)
	}
	if marked != 4 {
		t.Errorf("marked = %d, want 4", marked)
	}

	// idempotent; a second run finds nothing unmarked
	marked, err = env.svc.MarkUnmarkedAsAbsent(ctx, sess.ID, day)
	if err != nil {
		t.Fatal(err)
	}
	if marked != 0 {
		t.Errorf("second run marked = %d, want 0", marked)
	}

	recs, err := env.svc.Query(ctx, attendance.Filter{ClassID: sess.ID, Status: attendance.StatusPresent})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 8 {
		t.Errorf("present records = %d, want 8 untouched", len(recs))
	}
}

func TestService_BulkApply(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	sess := env.newClass(t, "Kids Class")
	day := attendance.DateOf(time.Now())

	outsider := env.newStudent(t, "Outsider")
	if _, err := env.svc.MarkSingle(ctx, outsider.ID, sess.ID, day, attendance.StatusPresent, "", attendance.SourceManual); err != nil {
		t.Fatal(err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		std := env.newStudent(t, fmt.Sprintf("Kid %d", i))
		ids = append(ids, std.ID)
	}

	recs, err := env.svc.BulkApply(ctx, sess.ID, day, ids, attendance.StatusExcused)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	for _, rec := range recs {
		if rec.Status != attendance.StatusExcused || rec.Source != attendance.SourceBulk {
			t.Errorf("record = %+v", rec)
		}
	}

	// the outsider's record is untouched
	rec, err := env.svc.Query(ctx, attendance.Filter{StudentID: outsider.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(rec) != 1 || rec[0].Status != attendance.StatusPresent {
		t.Errorf("outsider records = %+v", rec)
	}
}

func TestService_ExportCSV(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	std := env.newStudent(t, "Asha")
	sess := env.newClass(t, "Fundamentals")

	day := attendance.DateOf(time.Now())
	for i, status := range []attendance.Status{attendance.StatusPresent, attendance.StatusAbsent, attendance.StatusLate} {
		if _, err := env.svc.MarkSingle(ctx, std.ID, sess.ID, day.AddDate(0, 0, -i), status, "", attendance.SourceManual); err != nil {
			t.Fatal(err)
		}
	}

	var buf strings.Builder
	if err := env.svc.ExportCSV(ctx, &buf, std.ID); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header plus 3 rows", len(lines))
	}
	if got := strings.TrimSpace(lines[0]); got != "Date,Class,Instructor,Status,Notes" {
		t.Errorf("header = %q", got)
	}
	// newest first
	if !strings.Contains(lines[1], day.Format(attendance.DateLayout)) || !strings.Contains(lines[1], "present") {
		t.Errorf("first row = %q", lines[1])
	}
	if !strings.Contains(lines[1], "Fundamentals") || !strings.Contains(lines[1], "Prof. Maalim") {
		t.Errorf("first row misses class names: %q", lines[1])
	}

	t.Run("unknown student", func(t *testing.T) {
		var b strings.Builder
		if err := env.svc.ExportCSV(ctx, &b, "nope"); err != student.ErrNotFound {
			t.Errorf("err = %v, want %v", err, student.ErrNotFound)
		}
	})
}

func TestExportFilename(t *testing.T) {
	today := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)
	if got, want := attendance.ExportFilename(today), "my-attendance-2026-09-01.csv"; got != want {
		t.Errorf("ExportFilename() = %q, want %q", got, want)
	}
}
