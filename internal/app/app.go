// Package app wires settings, resolution, path policy and the edit workflow
// into the econfctl commands.
package app

import (
	"errors"
	"io"
	"os"

	"github.com/dshills/econfctl/internal/keyfile"
	"github.com/dshills/econfctl/internal/layer"
	"github.com/dshills/econfctl/internal/lock"
	"github.com/dshills/econfctl/internal/logging"
	"github.com/dshills/econfctl/internal/policy"
	"github.com/dshills/econfctl/internal/process"
	"github.com/dshills/econfctl/internal/prompt"
	"github.com/dshills/econfctl/internal/settings"
)

// Options configures the application.
type Options struct {
	// SettingsPath overrides the settings file location.
	SettingsPath string

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string

	// Env is the environment snapshot. Nil means the current process.
	Env *settings.Environment

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Launcher runs the editor. Nil means $EDITOR or the configured editor.
	Launcher process.Launcher

	// Confirmer answers overwrite and delete questions. Nil means a
	// console prompt on Stdin/Stdout.
	Confirmer prompt.Confirmer
}

// Application holds the state shared by all commands of one invocation.
type Application struct {
	opts     Options
	settings settings.Settings
	env      settings.Environment
	identity policy.Identity
	logger   *logging.Logger
	resolver *layer.Resolver
}

// New loads settings and builds the application.
func New(opts Options) (*Application, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	var env settings.Environment
	if opts.Env != nil {
		env = *opts.Env
	} else {
		env = settings.FromOS()
	}

	s, err := settings.Load(opts.SettingsPath, env)
	if err != nil {
		return nil, err
	}

	levelName := s.LogLevel
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}
	level, ok := logging.ParseLevel(levelName)
	if !ok {
		return nil, NewUsageError("invalid log level %q (want debug, info, warn or error)", levelName)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Output = opts.Stderr
	logger := logging.New(logCfg)

	a := &Application{
		opts:     opts,
		settings: s,
		env:      env,
		identity: policy.IdentityFrom(env),
		logger:   logger,
		resolver: layer.NewResolver(
			layer.WithOptions(keyfileOptions(s)),
			layer.WithDropInGlob(s.DropInGlob),
			layer.WithLogger(logger.WithComponent("resolver")),
		),
	}
	return a, nil
}

// Settings returns the effective settings.
func (a *Application) Settings() settings.Settings {
	return a.settings
}

// Logger returns the application logger.
func (a *Application) Logger() *logging.Logger {
	return a.logger
}

func (a *Application) confirmer() prompt.Confirmer {
	if a.opts.Confirmer != nil {
		return a.opts.Confirmer
	}
	return prompt.NewConsole(a.opts.Stdin, a.opts.Stdout)
}

func (a *Application) launcher() process.Launcher {
	if a.opts.Launcher != nil {
		return a.opts.Launcher
	}
	l := process.NewEditorLauncher(a.env.Editor(a.settings.Editor), a.logger)
	l.Stdin = a.opts.Stdin
	l.Stdout = a.opts.Stdout
	l.Stderr = a.opts.Stderr
	return l
}

// acquire locks target unless locking is disabled. The returned release
// function is never nil.
func (a *Application) acquire(target string) (func(), error) {
	if !a.settings.Lock {
		return func() {}, nil
	}
	l, err := lock.Acquire(a.settings.Staging(), target)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("locked %s via %s", target, l.Path())
	return func() {
		if err := l.Release(); err != nil {
			a.logger.Warn("releasing lock %s: %v", l.Path(), err)
		}
	}, nil
}

func parseProject(arg string) (layer.Project, error) {
	p, err := layer.ParseProject(arg)
	if err != nil {
		return layer.Project{}, &UsageError{Err: err}
	}
	return p, nil
}

// load resolves project over dirs. A missing configuration is reported as
// (empty view, false, nil).
func (a *Application) load(project layer.Project, dirs []layer.Dir) (*layer.Manager, bool, error) {
	m, err := a.resolver.Load(project, dirs)
	if errors.Is(err, layer.ErrNotFound) {
		return layer.NewManager(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func keyfileOptions(s settings.Settings) keyfile.Options {
	return keyfile.Options{Delimiter: s.Delimiter, Comment: s.Comment}
}
