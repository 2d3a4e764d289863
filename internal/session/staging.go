package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dshills/econfctl/internal/keyfile"
)

// StagingPair is the snapshot handed to the editor: Original keeps the
// pre-edit view, Working is the file the editor changes.
type StagingPair struct {
	Original string
	Working  string
}

// NewStagingPair writes view to two fresh files in dir. Both are created
// exclusively with mode 0600 and keep suffix so editors pick a syntax mode.
func NewStagingPair(dir, suffix string, view *keyfile.File, opts keyfile.Options) (*StagingPair, error) {
	id := uuid.NewString()
	p := &StagingPair{
		Original: filepath.Join(dir, "econfctl-"+id+".orig"+suffix),
		Working:  filepath.Join(dir, "econfctl-"+id+".edit"+suffix),
	}

	if err := createExclusive(p.Original, view, opts); err != nil {
		return nil, err
	}
	if err := createExclusive(p.Working, view, opts); err != nil {
		_ = os.Remove(p.Original)
		return nil, err
	}
	return p, nil
}

func createExclusive(path string, view *keyfile.File, opts keyfile.Options) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	if err := keyfile.Encode(f, view, opts); err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write staging file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close staging file %s: %w", path, err)
	}
	return nil
}

// Remove deletes both files. Files that are already gone are ignored.
func (p *StagingPair) Remove() error {
	var errs []error
	for _, path := range []string{p.Original, p.Working} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
