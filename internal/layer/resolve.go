package layer

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dshills/econfctl/internal/keyfile"
	"github.com/dshills/econfctl/internal/logging"
)

// ErrNotFound indicates that no tier holds a fragment for the project.
// It is distinct from a fragment that exists but is empty.
var ErrNotFound = errors.New("configuration file not found")

// ResolveError reports a failure to read a fragment for reasons other than
// the fragment being absent.
type ResolveError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolving %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Resolver builds merge plans and merged views.
type Resolver struct {
	fs     keyfile.FileSystem
	opts   keyfile.Options
	glob   string
	logger *logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFS sets the file system used to read fragments.
func WithFS(fsys keyfile.FileSystem) Option {
	return func(r *Resolver) {
		if fsys != nil {
			r.fs = fsys
		}
	}
}

// WithOptions sets the key file grammar.
func WithOptions(opts keyfile.Options) Option {
	return func(r *Resolver) {
		r.opts = opts
	}
}

// WithDropInGlob restricts drop-ins to file names matching pattern
// (doublestar syntax). An empty pattern means "*<suffix>".
func WithDropInGlob(pattern string) Option {
	return func(r *Resolver) {
		r.glob = pattern
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver reading from the OS file system.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		fs:     keyfile.DefaultFS(),
		opts:   keyfile.DefaultOptions(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.glob != "" && !doublestar.ValidatePattern(r.glob) {
		r.logger.Warn("ignoring invalid drop-in pattern %q", r.glob)
		r.glob = ""
	}
	return r
}

// Plan returns the fragments that apply to project, in merge order.
// Fragments are not read. An empty plan is reported as ErrNotFound.
func (r *Resolver) Plan(project Project, dirs []Dir) ([]*Layer, error) {
	var plan []*Layer

	for i, dir := range dirs {
		base := filepath.Join(dir.Path, project.FileName())
		exists, err := r.isFile(base)
		if err != nil {
			return nil, err
		}
		if exists {
			plan = append(plan, &Layer{
				Name:     dir.Tier.String(),
				Tier:     dir.Tier,
				Kind:     KindBase,
				Priority: basePriority(i),
				Path:     base,
			})
		}

		dropIns, err := r.dropIns(project, dir.Path)
		if err != nil {
			return nil, err
		}
		if len(dropIns) > MaxDropIns {
			return nil, &ResolveError{
				Path: filepath.Join(dir.Path, project.DropInDirName()),
				Err:  fmt.Errorf("more than %d drop-in files", MaxDropIns),
			}
		}
		for n, name := range dropIns {
			plan = append(plan, &Layer{
				Name:     dir.Tier.String() + "/" + name,
				Tier:     dir.Tier,
				Kind:     KindDropIn,
				Priority: dropInPriority(i, n),
				Path:     filepath.Join(dir.Path, project.DropInDirName(), name),
			})
		}
	}

	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, project)
	}
	return plan, nil
}

// Load reads every fragment of the merge plan into a Manager.
func (r *Resolver) Load(project Project, dirs []Dir) (*Manager, error) {
	plan, err := r.Plan(project, dirs)
	if err != nil {
		return nil, err
	}

	m := NewManager()
	for _, l := range plan {
		data, err := keyfile.ReadFile(r.fs, l.Path, r.opts)
		if err != nil {
			return nil, &ResolveError{Path: l.Path, Err: err}
		}
		l.Data = data
		r.logger.Debug("loaded %s fragment %s (%d keys)", l.Kind, l.Path, data.Len())
		m.AddLayer(l)
	}
	return m, nil
}

// Resolve merges every fragment of project into one view.
// It returns ErrNotFound when no fragment exists in any tier.
func (r *Resolver) Resolve(project Project, dirs []Dir) (*keyfile.File, error) {
	m, err := r.Load(project, dirs)
	if err != nil {
		return nil, err
	}
	return m.Merge(), nil
}

// isFile reports whether path exists. A path that exists but is a directory
// is an error.
func (r *Resolver) isFile(path string) (bool, error) {
	info, err := r.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &ResolveError{Path: path, Err: err}
	}
	if info.IsDir() {
		return false, &ResolveError{Path: path, Err: errors.New("is a directory")}
	}
	return true, nil
}

// dropIns lists the drop-in file names for project under dir in name order.
func (r *Resolver) dropIns(project Project, dir string) ([]string, error) {
	path := filepath.Join(dir, project.DropInDirName())
	entries, err := r.fs.ReadDir(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		info, statErr := r.fs.Stat(path)
		if statErr == nil && !info.IsDir() {
			r.logger.Warn("%s is not a directory, ignoring drop-ins", path)
			return nil, nil
		}
		return nil, &ResolveError{Path: path, Err: err}
	}

	pattern := r.glob
	if pattern == "" {
		pattern = "*" + project.Suffix
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			return nil, &ResolveError{Path: path, Err: err}
		}
		if !ok {
			r.logger.Debug("skipping %s: does not match %q", filepath.Join(path, name), pattern)
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
