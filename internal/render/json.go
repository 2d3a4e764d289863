package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/econfctl/internal/keyfile"
)

// ErrNoMatch is returned when a query selects nothing.
var ErrNoMatch = errors.New("query matched nothing")

// JSON encodes view as an indented JSON document. With origin set every
// value becomes {"value": ..., "origin": ...}.
func JSON(view *keyfile.File, origin Origin) ([]byte, error) {
	if err := checkConflicts(view); err != nil {
		return nil, err
	}

	doc := []byte("{}")
	var err error
	for _, group := range view.Groups() {
		prefix := ""
		if group != keyfile.DefaultGroup {
			prefix = escapePath(group) + "."
			if doc, err = sjson.SetRawBytes(doc, escapePath(group), []byte("{}")); err != nil {
				return nil, fmt.Errorf("encode group %q: %w", group, err)
			}
		}
		for _, key := range view.Keys(group) {
			value, _ := view.Get(group, key)
			path := prefix + escapePath(key)
			if doc, err = setValue(doc, path, value, group, key, origin); err != nil {
				return nil, fmt.Errorf("encode %q: %w", key, err)
			}
		}
	}
	return pretty.Pretty(doc), nil
}

func setValue(doc []byte, path, value, group, key string, origin Origin) ([]byte, error) {
	if origin == nil {
		return sjson.SetBytes(doc, path, value)
	}
	doc, err := sjson.SetRawBytes(doc, path, []byte("{}"))
	if err != nil {
		return nil, err
	}
	if doc, err = sjson.SetBytes(doc, path+".value", value); err != nil {
		return nil, err
	}
	return sjson.SetBytes(doc, path+".origin", origin(group, key))
}

// escapePath escapes a single key for use in a gjson/sjson path.
func escapePath(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// renderQuery selects opts.Query from the JSON form of view. Objects and
// arrays print as JSON, scalars as plain text.
func renderQuery(w io.Writer, view *keyfile.File, opts Options) error {
	doc, err := JSON(view, opts.Origin)
	if err != nil {
		return err
	}
	res := gjson.GetBytes(doc, opts.Query)
	if !res.Exists() {
		return fmt.Errorf("%w: %s", ErrNoMatch, opts.Query)
	}
	if res.IsObject() || res.IsArray() {
		_, err = w.Write(pretty.Pretty([]byte(res.Raw)))
		return err
	}
	if opts.Format == FormatJSON {
		_, err = fmt.Fprintln(w, res.Raw)
		return err
	}
	_, err = fmt.Fprintln(w, res.String())
	return err
}
