// Package session runs one edit: stage the view, hand it to the editor,
// read it back, confirm and persist it, and clean up.
//
// Staging files are removed on every path out of Run, including fatal
// errors. A drop-in directory created for a force edit is removed again
// when nothing was saved.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dshills/econfctl/internal/keyfile"
	"github.com/dshills/econfctl/internal/layer"
	"github.com/dshills/econfctl/internal/logging"
	"github.com/dshills/econfctl/internal/policy"
	"github.com/dshills/econfctl/internal/process"
	"github.com/dshills/econfctl/internal/prompt"
)

// WriteError is returned when the edited view could not be persisted.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cannot write %s: %v; changes were not applied", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ErrInvalidEdit indicates the edited file no longer parses.
var ErrInvalidEdit = errors.New("edited file is not valid; changes were not applied")

// Result describes how a session ended.
type Result struct {
	// Target is the file the session wrote or would have written.
	Target string
	// Saved is true when Target was written.
	Saved bool
	// Declined is true when the user refused to overwrite Target.
	Declined bool
	// Changed is true when the edited view differs from the staged one.
	Changed bool
	// EditorExitCode is the editor's exit status.
	EditorExitCode int
}

// Config holds everything a Coordinator needs.
type Config struct {
	Project layer.Project
	Edit    policy.EditContext
	// View seeds the editor. Nil means an empty view.
	View       *keyfile.File
	StagingDir string
	Options    keyfile.Options
	Launcher   process.Launcher
	Confirmer  prompt.Confirmer
	Logger     *logging.Logger
}

// Coordinator runs a single edit session.
type Coordinator struct {
	cfg    Config
	logger *logging.Logger
}

// New returns a Coordinator for cfg.
func New(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.View == nil {
		cfg.View = keyfile.New()
	}
	return &Coordinator{cfg: cfg, logger: logger.WithComponent("session")}
}

// Run executes the session.
func (c *Coordinator) Run(ctx context.Context) (res Result, err error) {
	edit := c.cfg.Edit
	target := edit.Target()
	res = Result{Target: target, EditorExitCode: -1}
	log := c.logger.WithField("target", target)

	if edit.CreateDir {
		top, err := ensureDir(edit.TargetDir)
		if err != nil {
			return res, fmt.Errorf("create %s: %w", edit.TargetDir, err)
		}
		if top != "" {
			log.Debug("created %s", edit.TargetDir)
			defer func() {
				if res.Saved {
					return
				}
				if rmErr := removeUpTo(edit.TargetDir, top); rmErr != nil {
					log.Warn("cannot remove %s: %v", edit.TargetDir, rmErr)
					return
				}
				log.Debug("removed unused %s", top)
			}()
		}
	}

	pair, err := NewStagingPair(c.cfg.StagingDir, c.cfg.Project.Suffix, c.cfg.View, c.cfg.Options)
	if err != nil {
		return res, err
	}
	defer func() {
		if rmErr := pair.Remove(); rmErr != nil {
			log.Warn("cannot remove staging files: %v", rmErr)
		}
	}()
	log.Debug("staged %s and %s", pair.Original, pair.Working)

	code, err := c.cfg.Launcher.Launch(ctx, pair.Working)
	res.EditorExitCode = code
	if err != nil {
		return res, err
	}
	if code != 0 {
		log.Warn("editor exited with status %d", code)
	}

	edited, err := keyfile.ReadFile(keyfile.DefaultFS(), pair.Working, c.cfg.Options)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrInvalidEdit, err)
	}
	res.Changed = !keyfile.Equal(c.cfg.View, edited)

	exists, err := fileExists(target)
	if err != nil {
		return res, err
	}
	if exists {
		ok, err := c.cfg.Confirmer.Confirm(fmt.Sprintf("The file %s already exists!\nDo you really want to overwrite it?", target))
		if err != nil {
			return res, err
		}
		if !ok {
			log.Info("overwrite declined")
			res.Declined = true
			return res, nil
		}
	} else if _, err := ensureDir(edit.TargetDir); err != nil {
		return res, &WriteError{Path: target, Err: err}
	}

	if err := keyfile.WriteFile(edited, edit.TargetDir, edit.TargetFile, c.cfg.Options); err != nil {
		return res, &WriteError{Path: target, Err: err}
	}
	res.Saved = true
	log.Info("saved")
	return res, nil
}

// ensureDir creates dir and any missing parents with mode 0755. It returns
// the topmost directory it created, or "" when dir already existed.
func ensureDir(dir string) (string, error) {
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", fmt.Errorf("%s is not a directory", dir)
		}
		return "", nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", err
	}

	top := dir
	for parent := filepath.Dir(top); parent != top; parent = filepath.Dir(top) {
		if _, err := os.Lstat(parent); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		top = parent
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return top, nil
}

// removeUpTo removes dir and its parents up to and including top. Only
// empty directories are removed.
func removeUpTo(dir, top string) error {
	dir, top = filepath.Clean(dir), filepath.Clean(top)
	for {
		if err := os.Remove(dir); err != nil {
			return err
		}
		if dir == top {
			return nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return false, fmt.Errorf("%s is a directory", path)
		}
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
