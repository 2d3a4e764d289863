package app

import (
	"context"
	"strings"

	"github.com/dshills/econfctl/internal/layer"
	"github.com/dshills/econfctl/internal/logging"
	"github.com/dshills/econfctl/internal/policy"
	"github.com/dshills/econfctl/internal/session"
)

// EditOptions selects the edit mode.
type EditOptions struct {
	Full  bool
	Force bool
}

// Edit opens the merged configuration of name in the editor and saves the
// result to the target chosen by the path policy.
func (a *Application) Edit(ctx context.Context, name string, opts EditOptions) (session.Result, error) {
	project, err := parseProject(name)
	if err != nil {
		return session.Result{}, err
	}
	mode, err := policy.SelectMode(opts.Full, opts.Force)
	if err != nil {
		return session.Result{}, &UsageError{Err: err}
	}

	req := policy.Request{
		Project:  project,
		Identity: a.identity,
		Mode:     mode,
		Env:      a.env,
		Settings: a.settings,
	}
	target, err := policy.TargetPath(req)
	if err != nil {
		return session.Result{}, &OperationError{Op: "edit", Target: name, Err: err}
	}

	// Everything from the first read to the final write happens under the
	// lock.
	release, err := a.acquire(target)
	if err != nil {
		return session.Result{}, &OperationError{Op: "edit", Target: name, Err: err}
	}
	defer release()

	dirs := policy.Tiers(a.settings, a.env, a.identity, true)
	m, found, err := a.load(project, dirs)
	if err != nil {
		return session.Result{}, &OperationError{Op: "edit", Target: name, Err: err}
	}

	req.BaseExists = found
	edit, err := policy.Compute(req)
	if err != nil {
		return session.Result{}, &OperationError{Op: "edit", Target: name, Err: err}
	}
	if edit.Downgraded {
		a.logger.Warn("--force ignored: configuration for %s already exists", project)
	}
	a.trace(edit, dirs)

	res, err := session.New(session.Config{
		Project:    project,
		Edit:       edit,
		View:       m.Merge(),
		StagingDir: a.settings.Staging(),
		Options:    keyfileOptions(a.settings),
		Launcher:   a.launcher(),
		Confirmer:  a.confirmer(),
		Logger:     a.logger,
	}).Run(ctx)
	if err != nil {
		return res, &OperationError{Op: "edit", Target: name, Err: err}
	}
	return res, nil
}

// trace logs the computed paths at debug level.
func (a *Application) trace(edit policy.EditContext, dirs []layer.Dir) {
	if a.logger.Level() > logging.LevelDebug {
		return
	}
	tiers := make([]string, len(dirs))
	for i, d := range dirs {
		tiers[i] = d.Tier.String() + "=" + d.Path
	}
	a.logger.WithFields(map[string]any{
		"uid":     a.identity.UID,
		"euid":    a.identity.EUID,
		"mode":    edit.Mode,
		"dropin":  edit.IsDropIn,
		"mkdir":   edit.CreateDir,
		"tiers":   strings.Join(tiers, ","),
		"editor":  a.env.Editor(a.settings.Editor),
		"staging": a.settings.Staging(),
	}).Debug("edit target %s", edit.Target())
}
