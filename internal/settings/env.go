package settings

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names recognised by econfctl.
const (
	EnvEditor        = "EDITOR"
	EnvHome          = "HOME"
	EnvXDGConfigHome = "XDG_CONFIG_HOME"
	EnvSettings      = "ECONFCTL_SETTINGS"
)

// Environment is a snapshot of the process environment and identity taken
// once at startup.
type Environment struct {
	vars map[string]string

	// UID is the real user id.
	UID int
	// EUID is the effective user id.
	EUID int
}

// FromOS captures the current process environment.
func FromOS() Environment {
	return NewEnvironment(os.Environ(), os.Getuid(), os.Geteuid())
}

// NewEnvironment builds an Environment from "KEY=value" pairs.
func NewEnvironment(environ []string, uid, euid int) Environment {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		vars[k] = v
	}
	return Environment{vars: vars, UID: uid, EUID: euid}
}

// Lookup returns the value of key, or "" when unset.
func (e Environment) Lookup(key string) string {
	return e.vars[key]
}

// Home returns $HOME.
func (e Environment) Home() string {
	return e.Lookup(EnvHome)
}

// XDGConfigHome returns $XDG_CONFIG_HOME.
func (e Environment) XDGConfigHome() string {
	return e.Lookup(EnvXDGConfigHome)
}

// Editor returns $EDITOR, or fallback when it is unset or blank.
func (e Environment) Editor(fallback string) string {
	if ed := strings.TrimSpace(e.Lookup(EnvEditor)); ed != "" {
		return ed
	}
	return fallback
}

// envMapping maps ECONFCTL_* variables onto settings fields.
var envMapping = map[string]func(s *Settings, v string){
	"ECONFCTL_VENDOR_DIR":      func(s *Settings, v string) { s.VendorDir = v },
	"ECONFCTL_ADMIN_DIR":       func(s *Settings, v string) { s.AdminDir = v },
	"ECONFCTL_STAGING_DIR":     func(s *Settings, v string) { s.StagingDir = v },
	"ECONFCTL_TOOL_NAME":       func(s *Settings, v string) { s.ToolName = v },
	"ECONFCTL_DROPIN_PRIORITY": func(s *Settings, v string) { s.DropInPriority = v },
	"ECONFCTL_DROPIN_GLOB":     func(s *Settings, v string) { s.DropInGlob = v },
	"ECONFCTL_LOG_LEVEL":       func(s *Settings, v string) { s.LogLevel = v },
	"ECONFCTL_LOCK": func(s *Settings, v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			s.Lock = b
		}
	},
}

// applyEnv overrides s with any non-empty ECONFCTL_* variables.
func applyEnv(s *Settings, env Environment) {
	for name, set := range envMapping {
		if v := env.Lookup(name); v != "" {
			set(s, v)
		}
	}
}
