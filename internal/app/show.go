package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dshills/econfctl/internal/layer"
	"github.com/dshills/econfctl/internal/policy"
	"github.com/dshills/econfctl/internal/render"
	"github.com/dshills/econfctl/internal/watcher"
)

// ShowOptions controls Show.
type ShowOptions struct {
	Format render.Format
	Query  string
	// Origin annotates each key with the fragment that supplied it.
	Origin bool
	// User includes the per-user tier for non-privileged callers.
	User bool
	// Watch re-renders on every change until ctx is done.
	Watch bool
}

// Show prints the merged configuration of name.
func (a *Application) Show(ctx context.Context, name string, opts ShowOptions) error {
	project, err := parseProject(name)
	if err != nil {
		return err
	}
	dirs := policy.Tiers(a.settings, a.env, a.identity, opts.User)

	if err := a.showOnce(project, dirs, opts); err != nil {
		return &OperationError{Op: "show", Target: name, Err: err}
	}
	if !opts.Watch {
		return nil
	}
	return a.watch(ctx, project, dirs, opts)
}

func (a *Application) showOnce(project layer.Project, dirs []layer.Dir, opts ShowOptions) error {
	m, err := a.resolver.Load(project, dirs)
	if err != nil {
		return err
	}
	ropts := render.Options{Format: opts.Format, Query: opts.Query}
	if opts.Origin {
		ropts.Origin = m.WhichLayer
	}
	return render.Render(a.opts.Stdout, m.Merge(), ropts)
}

func (a *Application) watch(ctx context.Context, project layer.Project, dirs []layer.Dir, opts ShowOptions) error {
	w, err := watcher.New(watcher.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer w.Close()

	if err := watchTiers(w, project, dirs); err != nil {
		return err
	}
	if len(w.Paths()) == 0 {
		return fmt.Errorf("no tier directory exists to watch")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			a.logger.Info("%s changed", ev.Path)
			if ev.Op.Has(watcher.OpCreate) || ev.Op.Has(watcher.OpRename) {
				if err := watchTiers(w, project, dirs); err != nil {
					a.logger.Warn("%v", err)
				}
			}
			fmt.Fprintln(a.opts.Stdout)
			if err := a.showOnce(project, dirs, opts); err != nil {
				a.logger.Warn("%v", err)
			}
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			a.logger.Warn("watch: %v", err)
		}
	}
}

// watchTiers adds every existing tier and drop-in directory to w. It is
// called again after creations so drop-in directories made later are
// picked up.
func watchTiers(w *watcher.Watcher, project layer.Project, dirs []layer.Dir) error {
	for _, d := range dirs {
		for _, p := range []string{d.Path, filepath.Join(d.Path, project.DropInDirName())} {
			err := w.Watch(p)
			if err != nil && !errors.Is(err, watcher.ErrPathNotExist) && !errors.Is(err, watcher.ErrAlreadyWatching) {
				return fmt.Errorf("watch %s: %w", p, err)
			}
		}
	}
	return nil
}

// Cat would print the raw fragments of name.
func (a *Application) Cat(name string) error {
	if _, err := parseProject(name); err != nil {
		return err
	}
	return &OperationError{Op: "cat", Target: name, Err: ErrNotImplemented}
}
