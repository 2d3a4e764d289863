// Package settings loads econfctl's own configuration.
//
// Settings come from three places, later ones overriding earlier ones:
//
//  1. Built-in defaults (see Defaults)
//  2. A TOML file, /etc/econfctl.toml unless ECONFCTL_SETTINGS or
//     --settings names another one; a missing file is not an error
//  3. ECONFCTL_* environment variables
//
// The package also captures the process environment once into an
// Environment value so no other package reads os.Getenv directly.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the settings file read when nothing else is configured.
const DefaultPath = "/etc/econfctl.toml"

// Settings configures tiers, staging and the edit workflow.
type Settings struct {
	// VendorDir is the lowest precedence tier.
	VendorDir string `toml:"vendor_dir"`
	// AdminDir is the tier edits and reverts are applied to.
	AdminDir string `toml:"admin_dir"`
	// Editor is used when $EDITOR is unset.
	Editor string `toml:"editor"`
	// StagingDir holds staging files and lock files. Empty means os.TempDir().
	StagingDir string `toml:"staging_dir"`
	// ToolName brands the drop-in file written by edit.
	ToolName string `toml:"tool_name"`
	// DropInPriority prefixes the drop-in file name.
	DropInPriority string `toml:"dropin_priority"`
	// DropInGlob selects drop-in files; empty means "*<suffix>".
	DropInGlob string `toml:"dropin_glob"`
	// Delimiter separates keys from values.
	Delimiter string `toml:"delimiter"`
	// Comment starts a comment line.
	Comment string `toml:"comment"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// Lock enables the advisory lock around edit and revert.
	Lock bool `toml:"lock"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		VendorDir:      "/usr/etc",
		AdminDir:       "/etc",
		Editor:         "/usr/bin/vim",
		ToolName:       "econfctl",
		DropInPriority: "90",
		Delimiter:      "=",
		Comment:        "#",
		LogLevel:       "warn",
		Lock:           true,
	}
}

// Staging returns the staging directory, falling back to os.TempDir().
func (s Settings) Staging() string {
	if s.StagingDir != "" {
		return s.StagingDir
	}
	return os.TempDir()
}

// DropInFileName returns the tool-branded drop-in name for suffix,
// e.g. "90-econfctl.conf".
func (s Settings) DropInFileName(suffix string) string {
	return s.DropInPriority + "-" + s.ToolName + suffix
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	if s.VendorDir == "" || s.AdminDir == "" {
		return fmt.Errorf("%w: vendor_dir and admin_dir must be set", ErrInvalid)
	}
	if !filepath.IsAbs(s.VendorDir) || !filepath.IsAbs(s.AdminDir) {
		return fmt.Errorf("%w: vendor_dir and admin_dir must be absolute", ErrInvalid)
	}
	if filepath.Clean(s.VendorDir) == filepath.Clean(s.AdminDir) {
		return fmt.Errorf("%w: vendor_dir and admin_dir must differ", ErrInvalid)
	}
	if s.ToolName == "" || filepath.Base(s.ToolName) != s.ToolName {
		return fmt.Errorf("%w: tool_name %q", ErrInvalid, s.ToolName)
	}
	if s.Delimiter == "" || s.Comment == "" {
		return fmt.Errorf("%w: delimiter and comment must not be empty", ErrInvalid)
	}
	return nil
}

// ErrInvalid indicates unusable settings.
var ErrInvalid = errors.New("invalid settings")

// ParseError represents an error while parsing the settings file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load builds settings from defaults, the settings file and env.
// path overrides the settings file location when non-empty.
func Load(path string, env Environment) (Settings, error) {
	s := Defaults()

	explicit := path != ""
	if !explicit {
		if p := env.Lookup(EnvSettings); p != "" {
			path = p
			explicit = true
		} else {
			path = DefaultPath
		}
	}

	if err := loadFile(&s, path, explicit); err != nil {
		return Settings{}, err
	}

	applyEnv(&s, env)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// loadFile decodes the TOML file at path into s. A missing default file is
// ignored; a missing file the user asked for is an error.
func loadFile(s *Settings, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("reading settings file %s: %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		pe := &ParseError{Path: path, Message: err.Error(), Err: err}
		var decErr *toml.DecodeError
		if errors.As(err, &decErr) {
			pe.Line, pe.Column = decErr.Position()
		}
		var strictErr *toml.StrictMissingError
		if errors.As(err, &strictErr) {
			pe.Message = strictErr.String()
		}
		return pe
	}
	return nil
}
