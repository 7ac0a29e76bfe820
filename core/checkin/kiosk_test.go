package checkin_test

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/checkin"
)

func TestKiosk_startStop(t *testing.T) {
	env := newGateEnv(t)
	kiosk := checkin.NewKiosk(env.attSvc, env.ckSvc, nopLogger{})

	if kiosk.Active() {
		t.Fatal("kiosk active before start")
	}

	kiosk.Start(context.Background())
	defer kiosk.Stop()
	if !kiosk.Active() {
		t.Fatal("kiosk not active after start")
	}
	kiosk.Start(context.Background()) // no-op

	kiosk.Stop()
	if kiosk.Active() {
		t.Error("kiosk active after stop")
	}
	kiosk.Stop() // stopping twice is safe
}

func TestKiosk_feed(t *testing.T) {
	env := newGateEnv(t)
	ctx := context.Background()

	std := env.newStudent(t, "Kesi", "", true)
	sess := env.newCurrentClass(t, "Fundamentals")
	day := attendance.DateOf(time.Now())
	if _, err := env.attSvc.MarkSingle(ctx, std.ID, sess.ID, day, attendance.StatusPresent, "", attendance.SourceKiosk); err != nil {
		t.Fatal(err)
	}

	kiosk := checkin.NewKiosk(env.attSvc, env.ckSvc, nopLogger{})
	kiosk.Start(ctx)
	defer kiosk.Stop()

	// the first refresh runs on start; give the goroutine a beat
	deadline := time.Now().Add(2 * time.Second)
	for {
		feed := kiosk.Feed()
		if len(feed) == 1 && feed[0].StudentID == std.ID {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("feed never caught up: %+v", feed)
		}
		time.Sleep(10 * time.Millisecond)
	}

	kiosk.Stop()
	if kiosk.Active() {
		t.Error("kiosk active after stop")
	}
}
