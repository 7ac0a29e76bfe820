package checkin

import (
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core"
)

// the state machine alone touches no service, so a bare gate is enough

func newIdleGate() *Gate {
	return NewGate(nil, nil, nil, nil, nil)
}

func TestGate_press(t *testing.T) {
	g := newIdleGate()
	if got := g.State(); got != GateIdle {
		t.Fatalf("fresh gate state = %s, want %s", got, GateIdle)
	}

	if err := g.Press('x'); err == nil {
		t.Error("non-digit press should fail")
	} else if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("err = %T, want *core.ValidationError", err)
	}
	if got := g.State(); got != GateIdle {
		t.Errorf("state after rejected press = %s, want %s", got, GateIdle)
	}

	for _, d := range "1234" {
		if err := g.Press(d); err != nil {
			t.Fatal(err)
		}
	}
	if got := g.State(); got != GatePinEntry {
		t.Errorf("state = %s, want %s", got, GatePinEntry)
	}
	if got := g.Buffer(); got != "1234" {
		t.Errorf("buffer = %q, want %q", got, "1234")
	}

	// a fifth digit is dropped, not an error
	if err := g.Press('5'); err != nil {
		t.Fatal(err)
	}
	if got := g.Buffer(); got != "1234" {
		t.Errorf("buffer after overflow press = %q, want %q", got, "1234")
	}
}

func TestGate_acknowledge(t *testing.T) {
	g := newIdleGate()
	_ = g.Press('7')
	_ = g.Press('7')

	g.Acknowledge()
	if got := g.State(); got != GateIdle {
		t.Errorf("state = %s, want %s", got, GateIdle)
	}
	if got := g.Buffer(); got != "" {
		t.Errorf("buffer = %q, want empty", got)
	}
}

func TestGate_idleTimeout(t *testing.T) {
	now := time.Now()
	g := newIdleGate()
	g.nowFunc = func() time.Time { return now }

	_ = g.Press('1')
	_ = g.Press('2')
	if got := g.State(); got != GatePinEntry {
		t.Fatalf("state = %s, want %s", got, GatePinEntry)
	}

	// just under the timeout the entry survives
	now = now.Add(DefaultIdleTimeout - time.Second)
	if got := g.State(); got != GatePinEntry {
		t.Errorf("state = %s, want %s", got, GatePinEntry)
	}
	if got := g.Buffer(); got != "12" {
		t.Errorf("buffer = %q, want %q", got, "12")
	}

	// at the timeout an abandoned entry resets
	now = now.Add(2 * time.Second)
	if got := g.State(); got != GateIdle {
		t.Errorf("state = %s, want %s", got, GateIdle)
	}
	if got := g.Buffer(); got != "" {
		t.Errorf("buffer = %q, want empty", got)
	}
}
