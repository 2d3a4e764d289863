package revert

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/econfctl/internal/prompt"
)

// answers replies with each answer in turn and records the questions.
type answers struct {
	replies []bool
	asked   int
}

func (a *answers) Confirm(string) (bool, error) {
	if a.asked >= len(a.replies) {
		return false, errors.New("unexpected question")
	}
	r := a.replies[a.asked]
	a.asked++
	return r, nil
}

func setup(t *testing.T) (vendor, admin string) {
	t.Helper()
	root := t.TempDir()
	vendor = filepath.Join(root, "usr", "etc", "app.conf")
	admin = filepath.Join(root, "etc", "app.conf")
	for _, p := range []string{vendor, admin} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("A=1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return vendor, admin
}

func TestRun(t *testing.T) {
	tests := []struct {
		name        string
		replies     []bool
		wantRemoved bool
		wantAsked   int
	}{
		{"both yes", []bool{true, true}, true, 2},
		{"first no", []bool{false}, false, 1},
		{"second no", []bool{true, false}, false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vendor, admin := setup(t)
			a := &answers{replies: tt.replies}

			res, err := Run(admin, a, nil)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if res.Removed != tt.wantRemoved || res.Declined == tt.wantRemoved {
				t.Errorf("unexpected result %+v", res)
			}
			if a.asked != tt.wantAsked {
				t.Errorf("asked %d questions, want %d", a.asked, tt.wantAsked)
			}
			_, statErr := os.Stat(admin)
			if tt.wantRemoved != os.IsNotExist(statErr) {
				t.Errorf("admin file presence wrong after revert: %v", statErr)
			}
			if _, err := os.Stat(vendor); err != nil {
				t.Errorf("vendor file must never be touched: %v", err)
			}
		})
	}
}

func TestRun_Missing(t *testing.T) {
	target := filepath.Join(t.TempDir(), "app.conf")
	res, err := Run(target, prompt.ConfirmFunc(func(string) (bool, error) {
		t.Error("no confirmation expected for a missing file")
		return false, nil
	}), nil)
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if !res.Missing || res.Removed {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRun_ConfirmError(t *testing.T) {
	_, admin := setup(t)
	_, err := Run(admin, prompt.ConfirmFunc(func(string) (bool, error) {
		return false, prompt.ErrNoAnswer
	}), nil)
	if !errors.Is(err, prompt.ErrNoAnswer) {
		t.Errorf("expected ErrNoAnswer, got %v", err)
	}
	if _, err := os.Stat(admin); err != nil {
		t.Error("file must survive an aborted revert")
	}
}

func TestRun_Directory(t *testing.T) {
	if _, err := Run(t.TempDir(), prompt.Always(true), nil); err == nil {
		t.Error("expected error for a directory target")
	}
}
