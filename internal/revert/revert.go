// Package revert removes admin override files.
package revert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dshills/econfctl/internal/logging"
	"github.com/dshills/econfctl/internal/prompt"
)

// Result describes how a revert ended.
type Result struct {
	Target string
	// Removed is true when Target was deleted.
	Removed bool
	// Missing is true when there was nothing to delete.
	Missing bool
	// Declined is true when either confirmation was refused.
	Declined bool
}

// Run deletes target after two confirmations. A missing target is reported
// in the result and is not an error.
func Run(target string, confirm prompt.Confirmer, logger *logging.Logger) (Result, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	log := logger.WithComponent("revert").WithField("target", target)
	res := Result{Target: target}

	info, err := os.Lstat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("nothing to revert")
			res.Missing = true
			return res, nil
		}
		return res, fmt.Errorf("stat %s: %w", target, err)
	}
	if info.IsDir() {
		return res, fmt.Errorf("%s is a directory", target)
	}

	questions := []string{
		fmt.Sprintf("Delete file %s?", target),
		fmt.Sprintf("Do you really wish to delete the file %s?\nThere is no going back!", target),
	}
	for _, q := range questions {
		ok, err := confirm.Confirm(q)
		if err != nil {
			return res, err
		}
		if !ok {
			log.Info("revert declined")
			res.Declined = true
			return res, nil
		}
	}

	if err := os.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			res.Missing = true
			return res, nil
		}
		return res, fmt.Errorf("delete %s: %w", target, err)
	}
	log.Info("deleted")
	res.Removed = true
	return res, nil
}
