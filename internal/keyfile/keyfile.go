// Package keyfile implements the key/value store behind econfctl.
//
// A key file is a sequence of lines. Lines starting with the comment
// character are ignored, "[name]" opens a group, and "key<delim>value"
// assigns a value inside the current group. Entries before the first group
// header belong to the default group, whose name is "".
//
// The package has no notion of layering; it reads one fragment, writes one
// view and merges two views. Ordering of groups and keys is first-seen order
// so rendering is deterministic.
package keyfile

import (
	"io/fs"
	"os"
)

// DefaultGroup is the name of the group holding entries that precede any
// group header.
const DefaultGroup = ""

// Options controls the key file grammar.
type Options struct {
	// Delimiter separates a key from its value. Defaults to "=".
	Delimiter string
	// Comment starts a comment line. Defaults to "#".
	Comment string
}

// DefaultOptions returns the grammar used by econf style files.
func DefaultOptions() Options {
	return Options{Delimiter: "=", Comment: "#"}
}

func (o Options) normalized() Options {
	if o.Delimiter == "" {
		o.Delimiter = "="
	}
	if o.Comment == "" {
		o.Comment = "#"
	}
	return o
}

// FileSystem is the read side of the file system used by the store.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
	// ReadDir lists a directory sorted by filename.
	ReadDir(path string) ([]fs.DirEntry, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// ReadDir lists a directory sorted by filename.
func (OSFS) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// Group is a named set of key/value pairs.
type Group struct {
	Name   string
	keys   []string
	values map[string]string
}

func newGroup(name string) *Group {
	return &Group{Name: name, values: make(map[string]string)}
}

// File is an in-memory key file: an ordered set of groups.
type File struct {
	groups []*Group
	index  map[string]*Group
}

// New returns an empty key file.
func New() *File {
	return &File{index: make(map[string]*Group)}
}

// Groups returns group names in first-seen order. The default group, when
// present, is always first.
func (f *File) Groups() []string {
	names := make([]string, 0, len(f.groups))
	if _, ok := f.index[DefaultGroup]; ok {
		names = append(names, DefaultGroup)
	}
	for _, g := range f.groups {
		if g.Name != DefaultGroup {
			names = append(names, g.Name)
		}
	}
	return names
}

// Keys returns the keys of group in first-seen order, or nil if the group
// does not exist.
func (f *File) Keys(group string) []string {
	g, ok := f.index[group]
	if !ok {
		return nil
	}
	keys := make([]string, len(g.keys))
	copy(keys, g.keys)
	return keys
}

// Get returns the value of key in group. The second return value reports
// whether the key is present; an absent key is never reported as "".
func (f *File) Get(group, key string) (string, bool) {
	g, ok := f.index[group]
	if !ok {
		return "", false
	}
	v, ok := g.values[key]
	return v, ok
}

// Set assigns value to key in group, creating the group if needed.
func (f *File) Set(group, key, value string) {
	g, ok := f.index[group]
	if !ok {
		g = newGroup(group)
		f.groups = append(f.groups, g)
		f.index[group] = g
	}
	if _, exists := g.values[key]; !exists {
		g.keys = append(g.keys, key)
	}
	g.values[key] = value
}

// Delete removes key from group. Empty groups are kept.
// Returns true if the key existed.
func (f *File) Delete(group, key string) bool {
	g, ok := f.index[group]
	if !ok {
		return false
	}
	if _, exists := g.values[key]; !exists {
		return false
	}
	delete(g.values, key)
	for i, k := range g.keys {
		if k == key {
			g.keys = append(g.keys[:i], g.keys[i+1:]...)
			break
		}
	}
	return true
}

// addGroup makes sure group exists even if it ends up with no keys.
func (f *File) addGroup(name string) {
	if _, ok := f.index[name]; ok {
		return
	}
	g := newGroup(name)
	f.groups = append(f.groups, g)
	f.index[name] = g
}

// Len returns the total number of keys across all groups.
func (f *File) Len() int {
	n := 0
	for _, g := range f.groups {
		n += len(g.keys)
	}
	return n
}

// Clone returns a deep copy of f.
func (f *File) Clone() *File {
	out := New()
	Merge(out, f)
	return out
}

// Merge applies src on top of dst: groups are unioned and values in src
// overwrite values in dst. dst is returned for convenience.
func Merge(dst, src *File) *File {
	if dst == nil {
		dst = New()
	}
	if src == nil {
		return dst
	}
	for _, name := range src.Groups() {
		dst.addGroup(name)
		g := src.index[name]
		for _, k := range g.keys {
			dst.Set(name, k, g.values[k])
		}
	}
	return dst
}

// Equal reports whether a and b hold the same groups, keys and values.
// Ordering is not significant.
func Equal(a, b *File) bool {
	if a.Len() != b.Len() || len(a.index) != len(b.index) {
		return false
	}
	for name, ga := range a.index {
		gb, ok := b.index[name]
		if !ok || len(ga.values) != len(gb.values) {
			return false
		}
		for k, v := range ga.values {
			if w, ok := gb.values[k]; !ok || v != w {
				return false
			}
		}
	}
	return true
}
