package student_test

import (
	"context"
	"testing"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/student"
	inmemdb "github.com/trezcool/mahudhurio/storage/database/inmem"
)

func newStudentEnv(t *testing.T) (*student.Service, student.Repository) {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatal(err)
	}
	repo := inmemdb.NewStudentRepository(db)
	return student.NewService(repo, &core.Config{SecretKey: []byte("secret")}), repo
}

func TestService_Create(t *testing.T) {
	svc, _ := newStudentEnv(t)
	ctx := context.Background()

	std, err := svc.Create(ctx, student.NewStudent{Name: "Asha Juma", BeltLevel: "white"})
	if err != nil {
		t.Fatal(err)
	}
	if std.ID == "" {
		t.Error("no id assigned")
	}
	if std.MembershipStatus != student.MembershipActive {
		t.Errorf("membership = %q, want %q by default", std.MembershipStatus, student.MembershipActive)
	}
	if std.PINDigest != "" {
		t.Error("a fresh student should have no pin")
	}

	got, err := svc.GetByID(ctx, std.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != std.Name {
		t.Errorf("GetByID() = %+v", got)
	}

	// a second enrollment must not collide with the first
	std2, err := svc.Create(ctx, student.NewStudent{Name: "Baraka Odhiambo", BeltLevel: "blue"})
	if err != nil {
		t.Fatal(err)
	}
	if std2.ID == std.ID {
		t.Errorf("both students share id %q", std.ID)
	}
	students, err := svc.Filter(ctx, student.QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 2 {
		t.Errorf("got %d stored students, want 2", len(students))
	}
}

func TestService_Filter(t *testing.T) {
	svc, _ := newStudentEnv(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, student.NewStudent{Name: "Asha Juma", BeltLevel: "white"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, student.NewStudent{Name: "Baraka Odhiambo", BeltLevel: "blue", MembershipStatus: student.MembershipFrozen}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter student.QueryFilter
		want   int
	}{
		{name: "no filter", want: 2},
		{name: "search matches case-insensitively", filter: student.QueryFilter{Search: "baraka"}, want: 1},
		{name: "search misses", filter: student.QueryFilter{Search: "zuri"}, want: 0},
		{name: "by membership", filter: student.QueryFilter{MembershipStatus: student.MembershipFrozen}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students, err := svc.Filter(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(students) != tt.want {
				t.Errorf("got %d students, want %d", len(students), tt.want)
			}
		})
	}
}

func TestService_pins(t *testing.T) {
	svc, repo := newStudentEnv(t)
	ctx := context.Background()

	asha, err := svc.Create(ctx, student.NewStudent{Name: "Asha", BeltLevel: "white"})
	if err != nil {
		t.Fatal(err)
	}
	baraka, err := svc.Create(ctx, student.NewStudent{Name: "Baraka", BeltLevel: "blue"})
	if err != nil {
		t.Fatal(err)
	}
	frozen, err := svc.Create(ctx, student.NewStudent{Name: "Chiku", BeltLevel: "brown", MembershipStatus: student.MembershipFrozen})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("assign and resolve", func(t *testing.T) {
		if _, err := svc.SetPIN(ctx, student.AssignPIN{StudentID: asha.ID, PIN: "1234"}); err != nil {
			t.Fatal(err)
		}
		got, err := svc.GetActiveByPIN(ctx, "1234")
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != asha.ID {
			t.Errorf("resolved %s, want %s", got.Name, asha.Name)
		}
	})

	t.Run("an active holder blocks reassignment", func(t *testing.T) {
		_, err := svc.SetPIN(ctx, student.AssignPIN{StudentID: baraka.ID, PIN: "1234"})
		if _, ok := err.(*core.ValidationError); !ok {
			t.Errorf("err = %T (%v), want *core.ValidationError", err, err)
		}
	})

	t.Run("the holder may re-assign their own pin", func(t *testing.T) {
		if _, err := svc.SetPIN(ctx, student.AssignPIN{StudentID: asha.ID, PIN: "1234"}); err != nil {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("an inactive holder does not block", func(t *testing.T) {
		if _, err := svc.SetPIN(ctx, student.AssignPIN{StudentID: frozen.ID, PIN: "9876"}); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.SetPIN(ctx, student.AssignPIN{StudentID: baraka.ID, PIN: "9876"}); err != nil {
			t.Errorf("frozen holder blocked reassignment: %v", err)
		}
	})

	t.Run("inactive students never resolve", func(t *testing.T) {
		if _, err := svc.SetPIN(ctx, student.AssignPIN{StudentID: frozen.ID, PIN: "5555"}); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.GetActiveByPIN(ctx, "5555"); err != student.ErrNotFound {
			t.Errorf("err = %v, want %v", err, student.ErrNotFound)
		}
	})

	t.Run("ambiguous matches are refused", func(t *testing.T) {
		// two active students under one digest can only happen through direct
		// store writes; the resolver still refuses to guess
		digest := student.DigestPIN(&core.Config{SecretKey: []byte("secret")}, "7777")
		if _, err := repo.SetStudentPINDigest(ctx, asha.ID, digest); err != nil {
			t.Fatal(err)
		}
		if _, err := repo.SetStudentPINDigest(ctx, baraka.ID, digest); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.GetActiveByPIN(ctx, "7777"); err != student.ErrAmbiguousPIN {
			t.Errorf("err = %v, want %v", err, student.ErrAmbiguousPIN)
		}
	})

	t.Run("malformed pin is rejected before lookup", func(t *testing.T) {
		if _, err := svc.GetActiveByPIN(ctx, "12"); err == nil {
			t.Error("expected a validation error")
		}
	})
}
