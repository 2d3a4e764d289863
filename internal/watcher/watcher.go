// Package watcher reports changes in configuration tier directories.
//
// Raw fsnotify events are coalesced: a burst of changes (an editor writing
// a swap file, renaming it and touching the target) produces one Event once
// the directories have been quiet for the configured delay.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/econfctl/internal/logging"
)

// Errors returned by Watch.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrPathNotExist    = errors.New("path does not exist")
	ErrAlreadyWatching = errors.New("path is already being watched")
)

// DefaultDelay is the quiet period before a batch of changes is reported.
const DefaultDelay = 200 * time.Millisecond

// Op is a set of file operations.
type Op uint8

// Operations.
const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
)

// Has reports whether op contains other.
func (op Op) Has(other Op) bool {
	return op&other != 0
}

// String returns the operations joined by "|".
func (op Op) String() string {
	var parts []string
	for _, o := range []struct {
		op   Op
		name string
	}{
		{OpCreate, "create"},
		{OpWrite, "write"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
	} {
		if op.Has(o.op) {
			parts = append(parts, o.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Event is a coalesced batch of changes.
type Event struct {
	// Path is the last path that changed in the batch.
	Path string
	// Op holds every operation seen in the batch.
	Op Op
	// Count is the number of raw events in the batch.
	Count int
	Time  time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the quiet period.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher watches directories for changes.
type Watcher struct {
	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	paths  map[string]bool
	closed bool

	delay  time.Duration
	logger *logging.Logger

	events  chan Event
	errors  chan error
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New starts a watcher with no paths.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		paths:   make(map[string]bool),
		delay:   DefaultDelay,
		logger:  logging.Discard(),
		events:  make(chan Event, 1),
		errors:  make(chan error, 8),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithComponent("watcher")

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Watch adds dir to the watch list.
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}
	if w.paths[absPath] {
		return ErrAlreadyWatching
	}

	if err := w.fsw.Add(absPath); err != nil {
		return err
	}
	w.paths[absPath] = true
	w.logger.Debug("watching %s", absPath)
	return nil
}

// Paths returns the watched directories.
func (w *Watcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.paths))
	for p := range w.paths {
		paths = append(paths, p)
	}
	return paths
}

// Events returns the channel of coalesced events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and closes both channels.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	close(w.events)
	close(w.errors)

	return w.fsw.Close()
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	timer := time.NewTimer(w.delay)
	timer.Stop()
	defer timer.Stop()

	var pending Event
	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			op := convertOp(fsEvent.Op)
			if op&(OpRemove|OpRename) != 0 {
				w.forget(fsEvent.Name)
			}
			if op == 0 || hidden(fsEvent.Name) {
				continue
			}
			pending.Path = fsEvent.Name
			pending.Op |= op
			pending.Count++
			pending.Time = time.Now()
			timer.Reset(w.delay)

		case <-timer.C:
			if pending.Count == 0 {
				continue
			}
			w.logger.Debug("%d change(s), last %s %s", pending.Count, pending.Op, pending.Path)
			select {
			case w.events <- pending:
			case <-w.closeCh:
				return
			}
			pending = Event{}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("dropping watch error: %v", err)
			}
		}
	}
}

// forget drops a watched directory that was removed or renamed away, so a
// later Watch of the same path adds it again.
func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.paths[path] {
		delete(w.paths, path)
		w.logger.Debug("stopped watching %s", path)
	}
}

// convertOp maps fsnotify operations. Chmod alone is not a change.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}

// hidden reports dot files, which include econfctl's own temporaries.
func hidden(path string) bool {
	base := filepath.Base(path)
	return len(base) > 0 && base[0] == '.'
}
