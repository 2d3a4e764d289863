package app

import (
	"github.com/dshills/econfctl/internal/policy"
	"github.com/dshills/econfctl/internal/revert"
)

// RevertOptions selects what revert removes.
type RevertOptions struct {
	// DropIn removes the tool's drop-in instead of the admin base file.
	DropIn bool
}

// Revert deletes the admin override for name after two confirmations.
func (a *Application) Revert(name string, opts RevertOptions) (revert.Result, error) {
	project, err := parseProject(name)
	if err != nil {
		return revert.Result{}, err
	}

	target := policy.RevertTarget(project, a.settings, opts.DropIn)
	a.logger.Debug("revert target %s", target)

	release, err := a.acquire(target)
	if err != nil {
		return revert.Result{}, &OperationError{Op: "revert", Target: name, Err: err}
	}
	defer release()

	res, err := revert.Run(target, a.confirmer(), a.logger)
	if err != nil {
		return res, &OperationError{Op: "revert", Target: name, Err: err}
	}
	return res, nil
}
