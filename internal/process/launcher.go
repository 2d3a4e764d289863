package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/econfctl/internal/logging"
)

// ErrEditorStart indicates the editor could not be started at all.
var ErrEditorStart = errors.New("cannot start editor")

// DefaultKillDelay is the SIGTERM grace period of a cancelled editor.
const DefaultKillDelay = 5 * time.Second

// Launcher runs an interactive program against a file and waits for it.
type Launcher interface {
	// Launch blocks until the program exits and returns its exit code.
	// A non-nil error means the program never ran or was cancelled, and
	// its output must not be used.
	Launch(ctx context.Context, path string) (int, error)
}

// LaunchFunc adapts a function to Launcher.
type LaunchFunc func(ctx context.Context, path string) (int, error)

// Launch calls f.
func (f LaunchFunc) Launch(ctx context.Context, path string) (int, error) {
	return f(ctx, path)
}

// EditorLauncher runs an editor command line in the foreground.
type EditorLauncher struct {
	// Command is the editor command line, e.g. "vim" or "code --wait".
	Command string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// KillDelay is how long a cancelled editor gets between SIGTERM and
	// SIGKILL.
	KillDelay time.Duration

	logger *logging.Logger
}

// NewEditorLauncher returns a launcher for command attached to the
// terminal of the current process.
func NewEditorLauncher(command string, logger *logging.Logger) *EditorLauncher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &EditorLauncher{
		Command: command,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,

		KillDelay: DefaultKillDelay,
		logger:    logger.WithComponent("editor"),
	}
}

// Launch runs the editor on path. When ctx is cancelled the editor gets
// SIGTERM, then SIGKILL after KillDelay, and Launch returns ctx.Err().
func (l *EditorLauncher) Launch(ctx context.Context, path string) (int, error) {
	argv := strings.Fields(l.Command)
	if len(argv) == 0 {
		return -1, fmt.Errorf("%w: empty editor command", ErrEditorStart)
	}

	cmd := exec.Command(argv[0], append(argv[1:], path)...)
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	proc := NewProcess(uuid.NewString(), filepath.Base(argv[0]), cmd)
	log := l.logger.WithFields(map[string]any{"id": proc.ID, "editor": proc.Name})

	// The terminal delivers Ctrl-C and Ctrl-\ to the editor's process group
	// directly. Catching them here keeps econfctl alive to clean up; the
	// child still sees them with default dispositions.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigs)

	if err := proc.Start(); err != nil {
		return -1, fmt.Errorf("%w %q: %w", ErrEditorStart, argv[0], err)
	}
	log.Debug("started pid %d on %s", proc.PID(), path)

	cancelled := ctx.Done()
	var kill <-chan time.Time
	for !proc.HasExited() {
		select {
		case <-proc.Done():
		case sig := <-sigs:
			log.Debug("%v received while editor runs", sig)
		case <-cancelled:
			cancelled = nil
			log.Warn("stopping editor: %v", ctx.Err())
			if err := proc.Signal(syscall.SIGTERM); err != nil && !exited(err) {
				log.Warn("cannot signal editor: %v", err)
			}
			kill = time.After(l.KillDelay)
		case <-kill:
			kill = nil
			if err := proc.Signal(syscall.SIGKILL); err != nil && !exited(err) {
				log.Warn("cannot kill editor: %v", err)
			}
		}
	}

	code := proc.ExitCode()
	if proc.State() == StateKilled {
		log.Warn("editor terminated by %v after %s: %v", proc.ExitSignal(), proc.Runtime(), proc.ExitError())
	} else {
		log.Debug("exited with code %d after %s", code, proc.Runtime())
	}
	if err := ctx.Err(); err != nil {
		return code, err
	}
	return code, nil
}

// exited reports whether a Signal error only means the editor is already gone.
func exited(err error) bool {
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, ErrProcessNotStarted)
}
