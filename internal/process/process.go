package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// State is the lifecycle stage of a Process.
type State int

const (
	// StateCreated means Start has not been called.
	StateCreated State = iota
	// StateRunning means the child is alive.
	StateRunning
	// StateExited means the child returned from main, with any exit code.
	StateExited
	// StateKilled means the child was terminated by a signal.
	StateKilled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

var (
	// ErrProcessNotStarted is returned by Signal when there is no live child.
	ErrProcessNotStarted = errors.New("process not started")

	// ErrProcessAlreadyStarted is returned by a second call to Start.
	ErrProcessAlreadyStarted = errors.New("process already started")
)

// exitStatus is what the child left behind.
type exitStatus struct {
	code   int
	signal syscall.Signal
	err    error
}

// Process is one run of an external program. It is safe for concurrent use.
type Process struct {
	// ID tags the run in log output.
	ID string

	// Name is the program name without its directory.
	Name string

	// Cmd is the command being run.
	Cmd *exec.Cmd

	// Started is set by Start.
	Started time.Time

	done chan struct{}

	mu     sync.Mutex
	state  State
	status exitStatus
}

// NewProcess wraps cmd, which must not have been started yet.
func NewProcess(id, name string, cmd *exec.Cmd) *Process {
	return &Process{
		ID:     id,
		Name:   name,
		Cmd:    cmd,
		done:   make(chan struct{}),
		status: exitStatus{code: -1},
	}
}

// State returns the lifecycle stage.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ExitCode returns the exit code, or -1 while running or after a signal.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.code
}

// ExitSignal returns the signal that terminated the child, or 0.
func (p *Process) ExitSignal() syscall.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.signal
}

// ExitError returns the error reported by the wait, if any.
func (p *Process) ExitError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.err
}

// Done is closed once the child has been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// HasExited reports whether the child has been reaped.
func (p *Process) HasExited() bool {
	s := p.State()
	return s == StateExited || s == StateKilled
}

// PID returns the child's pid, or -1 before Start.
func (p *Process) PID() int {
	if p.Cmd.Process == nil {
		return -1
	}
	return p.Cmd.Process.Pid
}

// Signal delivers sig to the live child.
func (p *Process) Signal(sig os.Signal) error {
	if p.State() != StateRunning {
		return ErrProcessNotStarted
	}
	return p.Cmd.Process.Signal(sig)
}

// Start launches the child and reaps it in the background.
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateCreated {
		return ErrProcessAlreadyStarted
	}
	if err := p.Cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}
	p.Started = time.Now()
	p.state = StateRunning

	go p.reap()
	return nil
}

// Wait blocks until the child is reaped and returns ExitCode.
func (p *Process) Wait() int {
	<-p.done
	return p.ExitCode()
}

// Runtime returns the time since Start.
func (p *Process) Runtime() time.Duration {
	if p.Started.IsZero() {
		return 0
	}
	return time.Since(p.Started)
}

func (p *Process) reap() {
	err := p.Cmd.Wait()

	st := exitStatus{err: err}
	state := StateExited
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		st.code = 0
	case errors.As(err, &exitErr):
		st.code = exitErr.ExitCode()
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			st.signal = ws.Signal()
			state = StateKilled
		}
	default:
		st.code = -1
	}

	p.mu.Lock()
	p.status = st
	p.state = state
	p.mu.Unlock()
	close(p.done)
}
