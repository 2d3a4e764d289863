// Package policy computes where an edit or revert writes.
//
// Compute is a pure function of its Request: the same identity, mode,
// project and environment always yield the same EditContext.
package policy

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dshills/econfctl/internal/layer"
	"github.com/dshills/econfctl/internal/settings"
)

// Errors returned by Compute.
var (
	// ErrConflictingModes indicates --full and --force were both requested.
	ErrConflictingModes = errors.New("--full and --force are mutually exclusive")

	// ErrNoHome indicates a non-privileged caller without HOME or
	// XDG_CONFIG_HOME, so no per-user target can be computed.
	ErrNoHome = errors.New("neither XDG_CONFIG_HOME nor HOME is set")

	// ErrNothingToEdit indicates no fragment exists and force-create was
	// not requested.
	ErrNothingToEdit = errors.New("no configuration found")
)

// Mode selects how an edit is persisted.
type Mode int

const (
	// ModeDefault writes the tool's drop-in file in the admin tier.
	ModeDefault Mode = iota
	// ModeFull writes the admin base file directly.
	ModeFull
	// ModeForce creates a configuration where none exists yet.
	ModeForce
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeFull:
		return "full"
	case ModeForce:
		return "force"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// SelectMode maps the --full and --force flags onto a Mode.
func SelectMode(full, force bool) (Mode, error) {
	switch {
	case full && force:
		return ModeDefault, ErrConflictingModes
	case full:
		return ModeFull, nil
	case force:
		return ModeForce, nil
	default:
		return ModeDefault, nil
	}
}

// Identity describes the calling user.
type Identity struct {
	UID  int
	EUID int
}

// IdentityFrom returns the identity recorded in env.
func IdentityFrom(env settings.Environment) Identity {
	return Identity{UID: env.UID, EUID: env.EUID}
}

// Privileged reports whether the real and effective user are both root.
func (id Identity) Privileged() bool {
	return id.UID == 0 && id.EUID == 0
}

// Request is the input to Compute.
type Request struct {
	Project  layer.Project
	Identity Identity
	Mode     Mode
	// BaseExists reports whether any tier holds a fragment for Project.
	BaseExists bool
	Env        settings.Environment
	Settings   settings.Settings
}

// EditContext is the computed write target of an edit.
type EditContext struct {
	// Mode is the effective mode after downgrades.
	Mode Mode
	// TargetDir is the directory the file is written to.
	TargetDir string
	// TargetFile is the file name inside TargetDir.
	TargetFile string
	// IsDropIn is true when the target lives in a drop-in directory.
	IsDropIn bool
	// CreateDir is true when TargetDir must be created before the editor
	// starts and removed again if nothing gets saved.
	CreateDir bool
	// Downgraded is true when --force was ignored because a fragment exists.
	Downgraded bool
}

// Target returns the full target path.
func (c EditContext) Target() string {
	return filepath.Join(c.TargetDir, c.TargetFile)
}

// Compute returns the write target for req.
func Compute(req Request) (EditContext, error) {
	ctx, err := locate(req)
	if err != nil {
		return EditContext{}, err
	}

	switch {
	case !req.BaseExists && req.Mode != ModeForce:
		return EditContext{}, fmt.Errorf("%w for %s; use --force to create it", ErrNothingToEdit, req.Project)
	case !req.BaseExists:
		ctx.CreateDir = ctx.IsDropIn
	case req.Mode == ModeForce:
		ctx.Mode = ModeDefault
		ctx.Downgraded = true
	}
	return ctx, nil
}

// TargetPath returns the file Compute writes for req. The path does not
// depend on req.BaseExists, so it can be locked before anything is read.
func TargetPath(req Request) (string, error) {
	ctx, err := locate(req)
	if err != nil {
		return "", err
	}
	return ctx.Target(), nil
}

// locate picks the target directory and file from identity and mode alone.
func locate(req Request) (EditContext, error) {
	if !req.Identity.Privileged() {
		root, err := UserRoot(req.Env)
		if err != nil {
			return EditContext{}, err
		}
		return EditContext{
			Mode:       req.Mode,
			TargetDir:  root,
			TargetFile: req.Project.FileName(),
		}, nil
	}

	admin := req.Settings.AdminDir
	if req.Mode == ModeFull {
		return EditContext{
			Mode:       req.Mode,
			TargetDir:  admin,
			TargetFile: req.Project.FileName(),
		}, nil
	}
	return EditContext{
		Mode:       req.Mode,
		TargetDir:  filepath.Join(admin, req.Project.DropInDirName()),
		TargetFile: req.Settings.DropInFileName(req.Project.Suffix),
		IsDropIn:   true,
	}, nil
}

// UserRoot returns the per-user configuration root: $XDG_CONFIG_HOME, or
// $HOME/.config when it is unset.
func UserRoot(env settings.Environment) (string, error) {
	if xdg := env.XDGConfigHome(); xdg != "" {
		return xdg, nil
	}
	home := env.Home()
	if home == "" {
		return "", ErrNoHome
	}
	return filepath.Join(home, ".config"), nil
}

// RevertTarget returns the admin tier file removed by revert: the base file,
// or the tool's drop-in when dropIn is set.
func RevertTarget(project layer.Project, s settings.Settings, dropIn bool) string {
	if dropIn {
		return filepath.Join(s.AdminDir, project.DropInDirName(), s.DropInFileName(project.Suffix))
	}
	return filepath.Join(s.AdminDir, project.FileName())
}

// Tiers returns the search order for identity: vendor then admin, plus the
// per-user root on top for non-privileged callers when withUser is set.
func Tiers(s settings.Settings, env settings.Environment, id Identity, withUser bool) []layer.Dir {
	dirs := []layer.Dir{
		{Tier: layer.TierVendor, Path: s.VendorDir},
		{Tier: layer.TierAdmin, Path: s.AdminDir},
	}
	if withUser && !id.Privileged() {
		if root, err := UserRoot(env); err == nil {
			dirs = append(dirs, layer.Dir{Tier: layer.TierUser, Path: root})
		}
	}
	return dirs
}
