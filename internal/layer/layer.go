// Package layer resolves the effective configuration of a project from
// layered directories.
//
// Each tier directory may hold a base fragment "<name><suffix>" and a drop-in
// directory "<name><suffix>.d" whose files are applied in filename order.
// Tiers are applied lowest precedence first, so for the tiers vendor and
// admin the merge order is:
//
//	/usr/etc/app.conf
//	/usr/etc/app.conf.d/10-a.conf
//	/etc/app.conf
//	/etc/app.conf.d/10-b.conf
//	/etc/app.conf.d/90-econfctl.conf
//
// Later fragments overwrite values from earlier ones.
package layer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/econfctl/internal/keyfile"
)

// ErrInvalidName indicates a project argument that cannot be split into a
// name and a suffix.
var ErrInvalidName = errors.New("invalid configuration file name")

// Project identifies a configuration by name and suffix, e.g. "getconfdir"
// and ".conf".
type Project struct {
	Name   string
	Suffix string
}

// ParseProject splits arg at its last dot. The suffix keeps the dot.
func ParseProject(arg string) (Project, error) {
	if strings.ContainsRune(arg, filepath.Separator) {
		return Project{}, fmt.Errorf("%w %q: expected a file name, not a path", ErrInvalidName, arg)
	}
	i := strings.LastIndexByte(arg, '.')
	if i < 0 {
		return Project{}, fmt.Errorf("%w %q: currently only works with a dot in the filename", ErrInvalidName, arg)
	}
	p := Project{Name: arg[:i], Suffix: arg[i:]}
	if p.Name == "" || p.Suffix == "." {
		return Project{}, fmt.Errorf("%w %q: need both a name and a suffix", ErrInvalidName, arg)
	}
	return p, nil
}

// FileName returns "<name><suffix>".
func (p Project) FileName() string {
	return p.Name + p.Suffix
}

// DropInDirName returns "<name><suffix>.d".
func (p Project) DropInDirName() string {
	return p.FileName() + ".d"
}

// String implements fmt.Stringer.
func (p Project) String() string {
	return p.FileName()
}

// Tier identifies which layered directory a fragment belongs to.
type Tier uint8

const (
	// TierVendor holds distribution defaults (/usr/etc).
	TierVendor Tier = iota
	// TierAdmin holds administrator overrides (/etc).
	TierAdmin
	// TierUser holds per-user overrides ($XDG_CONFIG_HOME).
	TierUser
)

// String returns a human-readable name for the tier.
func (t Tier) String() string {
	switch t {
	case TierVendor:
		return "vendor"
	case TierAdmin:
		return "admin"
	case TierUser:
		return "user"
	default:
		return "unknown"
	}
}

// Dir is one tier directory in the search order.
type Dir struct {
	Tier Tier
	Path string
}

// Kind distinguishes a tier's base fragment from its drop-ins.
type Kind uint8

const (
	// KindBase is the "<name><suffix>" file directly in the tier directory.
	KindBase Kind = iota
	// KindDropIn is a file inside "<name><suffix>.d".
	KindDropIn
)

// String returns "base" or "drop-in".
func (k Kind) String() string {
	if k == KindDropIn {
		return "drop-in"
	}
	return "base"
}

// Layer is a single fragment in the merge plan.
type Layer struct {
	// Name identifies the layer, e.g. "admin" or "admin/10-net.conf".
	Name string

	// Tier is the directory tier the fragment was found in.
	Tier Tier

	// Kind is base or drop-in.
	Kind Kind

	// Priority determines merge order (higher overrides lower).
	Priority int

	// Path is the fragment's file path.
	Path string

	// Data is the parsed fragment. Nil until loaded.
	Data *keyfile.File
}
