// Package render prints a merged view as text, JSON or YAML.
//
// Text output mirrors the key file layout: default group entries first,
// then each named group under a "[group]" header, groups separated by a
// blank line. JSON and YAML put default group entries at the top level and
// each named group in a nested object. All formats keep first-seen order.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dshills/econfctl/internal/keyfile"
)

// Format selects the output encoding.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown output format")

// ErrKeyConflict indicates a default group key shares its name with a
// group, which nested formats cannot represent.
var ErrKeyConflict = errors.New("key conflicts with group name")

// ParseFormat parses a --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w %q (want text, json or yaml)", ErrUnknownFormat, s)
	}
}

// Origin reports the fragment that supplied group/key, or "".
type Origin func(group, key string) string

// Options controls Render.
type Options struct {
	Format Format
	// Query is a gjson path selecting part of the view.
	Query string
	// Origin annotates each value with its source when set.
	Origin Origin
}

// Render writes view to w.
func Render(w io.Writer, view *keyfile.File, opts Options) error {
	if opts.Query != "" {
		return renderQuery(w, view, opts)
	}

	switch opts.Format {
	case FormatText, "":
		return Text(w, view, opts.Origin)
	case FormatJSON:
		data, err := JSON(view, opts.Origin)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatYAML:
		return YAML(w, view, opts.Origin)
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, opts.Format)
	}
}

// checkConflicts rejects views whose default group keys collide with
// group names.
func checkConflicts(view *keyfile.File) error {
	groups := make(map[string]bool)
	for _, g := range view.Groups() {
		if g != keyfile.DefaultGroup {
			groups[g] = true
		}
	}
	for _, k := range view.Keys(keyfile.DefaultGroup) {
		if groups[k] {
			return fmt.Errorf("%w: %q", ErrKeyConflict, k)
		}
	}
	return nil
}
