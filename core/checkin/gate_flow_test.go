package checkin_test

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/checkin"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/student"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
)

type gateEnv struct {
	stdSvc *student.Service
	clsSvc *class.Service
	attSvc *attendance.Service
	ckSvc  *checkin.Service
	gate   *checkin.Gate
}

func newGateEnv(t *testing.T) *gateEnv {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatal(err)
	}

	conf := &core.Config{SecretKey: []byte("secret")}
	stdSvc := student.NewService(inmemdb.NewStudentRepository(db), conf)
	clsSvc := class.NewService(inmemdb.NewClassRepository(db))
	attSvc := attendance.NewService(inmemdb.NewAttendanceRepository(db), stdSvc, clsSvc)
	ckSvc, err := checkin.NewService(context.Background(), inmemdb.NewCheckinRepository(db))
	if err != nil {
		t.Fatal(err)
	}
	return &gateEnv{
		stdSvc: stdSvc,
		clsSvc: clsSvc,
		attSvc: attSvc,
		ckSvc:  ckSvc,
		gate:   checkin.NewGate(stdSvc, clsSvc, attSvc, ckSvc, checkin.NewMemLimiter()),
	}
}

func (env *gateEnv) newStudent(t *testing.T, name, pin string, active bool) student.Student {
	t.Helper()
	ctx := context.Background()
	ns := student.NewStudent{Name: name, BeltLevel: "purple"}
	if !active {
		ns.MembershipStatus = student.MembershipFrozen
	}
	std, err := env.stdSvc.Create(ctx, ns)
	if err != nil {
		t.Fatal(err)
	}
	if pin != "" {
		if std, err = env.stdSvc.SetPIN(ctx, student.AssignPIN{StudentID: std.ID, PIN: pin}); err != nil {
			t.Fatal(err)
		}
	}
	return std
}

// newClassAt creates a class on `day`'s weekday with the window set around
// the given minute of day.
func (env *gateEnv) newClassAt(t *testing.T, name string, day time.Time, startMinute int) class.Session {
	t.Helper()
	end := startMinute + 60
	if end > 1439 {
		end = 1439
	}
	sess, err := env.clsSvc.Create(context.Background(), class.NewSession{
		Name:           name,
		Weekday:        int(day.Weekday()),
		StartMinute:    startMinute,
		EndMinute:      end,
		InstructorName: "Prof. Maalim",
	})
	if err != nil {
		t.Fatal(err)
	}
	return sess
}

// newCurrentClass makes a class whose window contains time.Now.
func (env *gateEnv) newCurrentClass(t *testing.T, name string) class.Session {
	t.Helper()
	now := time.Now()
	start := now.Hour()*60 + now.Minute() - 30
	if start < 0 {
		start = 0
	}
	return env.newClassAt(t, name, now, start)
}

// newOffHoursClass makes a class on today's weekday well outside now.
func (env *gateEnv) newOffHoursClass(t *testing.T, name string) class.Session {
	t.Helper()
	now := time.Now()
	start := 60
	if now.Hour() < 12 {
		start = 22 * 60
	}
	return env.newClassAt(t, name, now, start)
}

func TestGate_submit(t *testing.T) {
	env := newGateEnv(t)
	ctx := context.Background()

	std := env.newStudent(t, "Kesi", "1234", true)
	sess := env.newCurrentClass(t, "Fundamentals")

	res, err := env.gate.Submit(ctx, checkin.Attempt{PIN: "1234", DeviceID: "kiosk-1"})
	if err != nil {
		t.Fatal(err)
	}
	if res.StudentName != std.Name || res.ClassName != sess.Name {
		t.Errorf("result = %+v", res)
	}
	if res.WelcomeMessage != checkin.DefaultSettings().WelcomeMessage {
		t.Errorf("welcome = %q", res.WelcomeMessage)
	}
	if got := env.gate.State(); got != checkin.GateSuccess {
		t.Errorf("state = %s, want %s", got, checkin.GateSuccess)
	}

	// the ledger entry landed as present/kiosk
	day := attendance.DateOf(time.Now())
	rec, err := env.attSvc.Query(ctx, attendance.Filter{StudentID: std.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(rec) != 1 || rec[0].Status != attendance.StatusPresent || rec[0].Source != attendance.SourceKiosk {
		t.Errorf("records = %+v", rec)
	}

	// and a session opened
	if _, err = env.ckSvc.CheckOut(ctx, std.ID, day, time.Now()); err != nil {
		t.Errorf("no open session after check-in: %v", err)
	}
}

func TestGate_submitFailures(t *testing.T) {
	env := newGateEnv(t)
	ctx := context.Background()

	env.newStudent(t, "Kesi", "1234", true)
	env.newStudent(t, "Frozen", "5678", false)
	env.newCurrentClass(t, "Fundamentals")
	offHours := env.newOffHoursClass(t, "Off Hours")

	tests := []struct {
		name    string
		att     checkin.Attempt
		wantErr error
	}{
		{name: "unknown pin", att: checkin.Attempt{PIN: "9999"}, wantErr: checkin.ErrInvalidPin},
		{name: "frozen membership", att: checkin.Attempt{PIN: "5678"}, wantErr: checkin.ErrInvalidPin},
		{name: "outside the window", att: checkin.Attempt{PIN: "1234", ClassID: offHours.ID}, wantErr: checkin.ErrOutsideWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.gate.Submit(ctx, tt.att)
			if err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if got := env.gate.State(); got != checkin.GateFailure {
				t.Errorf("state = %s, want %s", got, checkin.GateFailure)
			}
			env.gate.Acknowledge()
		})
	}

	t.Run("malformed pin", func(t *testing.T) {
		_, err := env.gate.Submit(ctx, checkin.Attempt{PIN: "12"})
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("err = %T, want *core.ValidationError", err)
		}
	})
}

func TestGate_submitFromBuffer(t *testing.T) {
	env := newGateEnv(t)
	ctx := context.Background()

	std := env.newStudent(t, "Kesi", "1234", true)
	env.newCurrentClass(t, "Fundamentals")

	for _, d := range "1234" {
		if err := env.gate.Press(d); err != nil {
			t.Fatal(err)
		}
	}
	res, err := env.gate.Submit(ctx, checkin.Attempt{})
	if err != nil {
		t.Fatal(err)
	}
	if res.StudentName != std.Name {
		t.Errorf("result = %+v", res)
	}
	if got := env.gate.Buffer(); got != "" {
		t.Errorf("buffer not cleared on submit: %q", got)
	}
}

func TestGate_lockout(t *testing.T) {
	env := newGateEnv(t)
	ctx := context.Background()

	env.newStudent(t, "Kesi", "1234", true)
	env.newCurrentClass(t, "Fundamentals")

	for i := 0; i < checkin.MaxFailedAttempts; i++ {
		if _, err := env.gate.Submit(ctx, checkin.Attempt{PIN: "0000", DeviceID: "kiosk-1"}); err != checkin.ErrInvalidPin {
			t.Fatalf("attempt %d: err = %v, want %v", i+1, err, checkin.ErrInvalidPin)
		}
	}

	// locked out even with the right pin
	if _, err := env.gate.Submit(ctx, checkin.Attempt{PIN: "1234", DeviceID: "kiosk-1"}); err != checkin.ErrLockedOut {
		t.Errorf("err = %v, want %v", err, checkin.ErrLockedOut)
	}

	// other devices are unaffected, and success resets the counter
	if _, err := env.gate.Submit(ctx, checkin.Attempt{PIN: "1234", DeviceID: "kiosk-2"}); err != nil {
		t.Errorf("unrelated device: %v", err)
	}
}

func TestGate_locationPolicy(t *testing.T) {
	env := newGateEnv(t)
	ctx := context.Background()

	env.newStudent(t, "Kesi", "1234", true)
	env.newCurrentClass(t, "Fundamentals")

	enabled := true
	lat, lng := -6.7924, 39.2083
	if _, err := env.ckSvc.UpdateSettings(ctx, checkin.SettingsPatch{
		LocationTrackingEnabled: &enabled,
		AcademyLatitude:         &lat,
		AcademyLongitude:        &lng,
	}); err != nil {
		t.Fatal(err)
	}

	t.Run("missing coords", func(t *testing.T) {
		_, err := env.gate.Submit(ctx, checkin.Attempt{PIN: "1234"})
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("err = %T, want *core.ValidationError", err)
		}
	})

	t.Run("too far away", func(t *testing.T) {
		coords := &checkin.Coordinates{Latitude: lat + 0.01, Longitude: lng} // ~1.1km off
		_, err := env.gate.Submit(ctx, checkin.Attempt{PIN: "1234", Coords: coords})
		if err != checkin.ErrTooFarAway {
			t.Errorf("err = %v, want %v", err, checkin.ErrTooFarAway)
		}
	})

	t.Run("within range", func(t *testing.T) {
		coords := &checkin.Coordinates{Latitude: lat + 0.0003, Longitude: lng} // ~33m off
		if _, err := env.gate.Submit(ctx, checkin.Attempt{PIN: "1234", Coords: coords}); err != nil {
			t.Errorf("err = %v", err)
		}
	})
}

func TestGate_staffAssisted(t *testing.T) {
	env := newGateEnv(t)
	ctx := context.Background()

	std := env.newStudent(t, "Kesi", "", true) // no pin on file
	env.newCurrentClass(t, "Fundamentals")

	noPin := false
	if _, err := env.ckSvc.UpdateSettings(ctx, checkin.SettingsPatch{RequirePinVerification: &noPin}); err != nil {
		t.Fatal(err)
	}

	res, err := env.gate.Submit(ctx, checkin.Attempt{StudentID: std.ID})
	if err != nil {
		t.Fatal(err)
	}
	if res.StudentName != std.Name {
		t.Errorf("result = %+v", res)
	}

	t.Run("frozen student is still refused", func(t *testing.T) {
		frozen := env.newStudent(t, "Frozen", "", false)
		if _, err := env.gate.Submit(ctx, checkin.Attempt{StudentID: frozen.ID}); err != checkin.ErrInvalidPin {
			t.Errorf("err = %v, want %v", err, checkin.ErrInvalidPin)
		}
	})
}
