package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	w, err := New(WithDelay(100 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch(dir); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	target := filepath.Join(dir, "app.conf")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(target, []byte("A=1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ev := waitEvent(t, w)
	if ev.Path != target {
		t.Errorf("Path = %q, want %q", ev.Path, target)
	}
	if !ev.Op.Has(OpCreate) {
		t.Errorf("Op = %v, want create", ev.Op)
	}
	if ev.Count < 2 {
		t.Errorf("Count = %d, expected the burst to be coalesced", ev.Count)
	}

	select {
	case extra := <-w.Events():
		t.Errorf("unexpected second event %+v", extra)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := New(WithDelay(50 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(dir); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, ".econfctl-1.tmp"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-w.Events():
		t.Errorf("hidden file produced event %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_WatchErrors(t *testing.T) {
	dir := t.TempDir()
	w, err := New()
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Watch(filepath.Join(dir, "absent")); !errors.Is(err, ErrPathNotExist) {
		t.Errorf("missing dir: %v, want ErrPathNotExist", err)
	}
	if err := w.Watch(dir); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(dir); !errors.Is(err, ErrAlreadyWatching) {
		t.Errorf("duplicate: %v, want ErrAlreadyWatching", err)
	}
	if len(w.Paths()) != 1 {
		t.Errorf("Paths() = %v", w.Paths())
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if err := w.Watch(dir); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("after close: %v, want ErrWatcherClosed", err)
	}
	if _, ok := <-w.Events(); ok {
		t.Error("events channel should be closed")
	}
}

func TestWatcher_RewatchAfterRemove(t *testing.T) {
	parent := t.TempDir()
	child := filepath.Join(parent, "app.conf.d")
	if err := os.Mkdir(child, 0o755); err != nil {
		t.Fatal(err)
	}

	w, err := New(WithDelay(50 * time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	for _, d := range []string{parent, child} {
		if err := w.Watch(d); err != nil {
			t.Fatal(err)
		}
	}

	if err := os.Remove(child); err != nil {
		t.Fatal(err)
	}
	if ev := waitEvent(t, w); !ev.Op.Has(OpRemove) {
		t.Errorf("expected a remove event, got %v", ev.Op)
	}
	for _, p := range w.Paths() {
		if p == child {
			t.Errorf("removed directory still listed: %v", w.Paths())
		}
	}

	if err := os.Mkdir(child, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(child); err != nil {
		t.Errorf("Watch after recreate = %v, want nil", err)
	}
}

func TestConvertOp(t *testing.T) {
	tests := []struct {
		in   fsnotify.Op
		want Op
	}{
		{fsnotify.Create, OpCreate},
		{fsnotify.Write | fsnotify.Chmod, OpWrite},
		{fsnotify.Chmod, 0},
		{fsnotify.Remove | fsnotify.Rename, OpRemove | OpRename},
	}
	for _, tt := range tests {
		if got := convertOp(tt.in); got != tt.want {
			t.Errorf("convertOp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOp_String(t *testing.T) {
	if got := (OpCreate | OpWrite).String(); got != "create|write" {
		t.Errorf("String() = %q", got)
	}
	if got := Op(0).String(); got != "none" {
		t.Errorf("String() = %q", got)
	}
}
