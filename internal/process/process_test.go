package process

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestNewProcess(t *testing.T) {
	proc := NewProcess("test-id", "echo", exec.Command("echo", "hello"))

	if proc.ID != "test-id" {
		t.Errorf("expected ID 'test-id', got %q", proc.ID)
	}
	if proc.State() != StateCreated {
		t.Errorf("expected state StateCreated, got %v", proc.State())
	}
	if proc.ExitCode() != -1 {
		t.Errorf("expected exit code -1, got %d", proc.ExitCode())
	}
	if proc.PID() != -1 {
		t.Errorf("expected PID -1 before start, got %d", proc.PID())
	}
	if proc.HasExited() {
		t.Error("expected HasExited() to be false before start")
	}
	if err := proc.Signal(os.Interrupt); !errors.Is(err, ErrProcessNotStarted) {
		t.Errorf("Signal before start = %v, want ErrProcessNotStarted", err)
	}
}

func TestProcess_StartAndWait(t *testing.T) {
	proc := NewProcess("id", "true", exec.Command("true"))
	if err := proc.Start(); err != nil {
		t.Fatalf("failed to start process: %v", err)
	}
	if code := proc.Wait(); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if proc.State() != StateExited {
		t.Errorf("expected state StateExited, got %v", proc.State())
	}
	if proc.Started.IsZero() {
		t.Error("expected Started time to be set")
	}
}

func TestProcess_StartTwice(t *testing.T) {
	proc := NewProcess("id", "true", exec.Command("true"))
	if err := proc.Start(); err != nil {
		t.Fatal(err)
	}
	if err := proc.Start(); !errors.Is(err, ErrProcessAlreadyStarted) {
		t.Errorf("expected ErrProcessAlreadyStarted, got %v", err)
	}
	proc.Wait()
}

func TestProcess_ExitCode(t *testing.T) {
	proc := NewProcess("id", "sh", exec.Command("/bin/sh", "-c", "exit 3"))
	if err := proc.Start(); err != nil {
		t.Fatal(err)
	}
	if code := proc.Wait(); code != 3 {
		t.Errorf("expected exit code 3, got %d", code)
	}
	if proc.ExitError() == nil {
		t.Error("expected ExitError for non-zero exit")
	}
}

func TestProcess_Killed(t *testing.T) {
	proc := NewProcess("id", "sh", exec.Command("/bin/sh", "-c", "kill -9 $$"))
	if err := proc.Start(); err != nil {
		t.Fatal(err)
	}
	proc.Wait()
	if proc.State() != StateKilled {
		t.Errorf("expected StateKilled, got %v", proc.State())
	}
	if proc.ExitSignal() != syscall.SIGKILL {
		t.Errorf("ExitSignal() = %v, want SIGKILL", proc.ExitSignal())
	}
	if !proc.HasExited() {
		t.Error("expected HasExited() after Wait")
	}
	if err := proc.Signal(os.Interrupt); !errors.Is(err, ErrProcessNotStarted) {
		t.Errorf("Signal after exit = %v, want ErrProcessNotStarted", err)
	}
}

func TestProcess_Signal(t *testing.T) {
	proc := NewProcess("id", "sleep", exec.Command("sleep", "30"))
	if err := proc.Start(); err != nil {
		t.Fatal(err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}
	select {
	case <-proc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after SIGTERM")
	}
	if proc.ExitSignal() != syscall.SIGTERM || proc.ExitCode() != -1 {
		t.Errorf("ExitSignal() = %v, ExitCode() = %d", proc.ExitSignal(), proc.ExitCode())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "created"},
		{StateRunning, "running"},
		{StateExited, "exited"},
		{StateKilled, "killed"},
		{State(99), "unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func newTestLauncher(command string) (*EditorLauncher, *bytes.Buffer) {
	var out bytes.Buffer
	l := NewEditorLauncher(command, nil)
	l.Stdin = strings.NewReader("")
	l.Stdout = &out
	l.Stderr = &out
	return l, &out
}

func TestEditorLauncher_EditsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "work.conf")
	if err := os.WriteFile(path, []byte("A=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(t.TempDir(), "fake-editor")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho B=2 >> \"$1\"\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	l, _ := newTestLauncher(script)
	code, err := l.Launch(context.Background(), path)
	if err != nil || code != 0 {
		t.Fatalf("Launch() = %d, %v", code, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "A=1\nB=2\n" {
		t.Errorf("file content = %q", data)
	}
}

func TestEditorLauncher_CommandWithArguments(t *testing.T) {
	l, out := newTestLauncher("echo -n")
	code, err := l.Launch(context.Background(), "/some/file")
	if err != nil || code != 0 {
		t.Fatalf("Launch() = %d, %v", code, err)
	}
	if out.String() != "/some/file" {
		t.Errorf("editor saw %q, want the path as last argument", out.String())
	}
}

func TestEditorLauncher_NonZeroExit(t *testing.T) {
	l, _ := newTestLauncher("false")
	code, err := l.Launch(context.Background(), "/dev/null")
	if err != nil {
		t.Fatalf("non-zero exit must not be an error, got %v", err)
	}
	if code == 0 {
		t.Error("expected non-zero exit code")
	}
}

func TestEditorLauncher_StartFailure(t *testing.T) {
	tests := []string{"", "   ", "/nonexistent/editor-binary"}
	for _, command := range tests {
		l, _ := newTestLauncher(command)
		if _, err := l.Launch(context.Background(), "/dev/null"); !errors.Is(err, ErrEditorStart) {
			t.Errorf("Launch(%q) error = %v, want ErrEditorStart", command, err)
		}
	}
}

func TestEditorLauncher_Cancel(t *testing.T) {
	l, _ := newTestLauncher("sleep")
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := l.Launch(ctx, "30")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Launch() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrEditorStart) {
		t.Error("a cancelled editor did run and must not report a start failure")
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("Launch took %s after cancel", d)
	}
}

func TestEditorLauncher_CancelEscalatesToKill(t *testing.T) {
	script := filepath.Join(t.TempDir(), "stubborn-editor")
	body := "#!/bin/sh\ntrap '' TERM\nwhile :; do sleep 0.05; done\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	l := NewEditorLauncher(script, nil)
	l.Stdin, l.Stdout, l.Stderr = nil, nil, nil
	l.KillDelay = 100 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	code, err := l.Launch(ctx, "/dev/null")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Launch() error = %v, want context.DeadlineExceeded", err)
	}
	if code != -1 {
		t.Errorf("exit code = %d, want -1 for a killed editor", code)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("Launch took %s, SIGKILL was not sent", d)
	}
}
