package keyfile

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `# vendor defaults
KEY1 = usr
EMPTY=

[network]
host=example.org
port = 8080
# comment inside group
[network]
host=override.example.org
`
	f, err := Parse(strings.NewReader(input), "test.conf", DefaultOptions())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got := f.Groups(); !reflect.DeepEqual(got, []string{"", "network"}) {
		t.Errorf("Groups() = %q, want [\"\" network]", got)
	}
	if v, ok := f.Get("", "KEY1"); !ok || v != "usr" {
		t.Errorf("KEY1 = (%q, %v), want (usr, true)", v, ok)
	}
	if v, ok := f.Get("", "EMPTY"); !ok || v != "" {
		t.Errorf("EMPTY = (%q, %v), want (\"\", true)", v, ok)
	}
	if v, _ := f.Get("network", "host"); v != "override.example.org" {
		t.Errorf("network.host = %q, want override.example.org", v)
	}
	if got := f.Keys("network"); !reflect.DeepEqual(got, []string{"host", "port"}) {
		t.Errorf("Keys(network) = %q", got)
	}
	if _, ok := f.Get("", "MISSING"); ok {
		t.Error("missing key should be reported absent")
	}
	if _, ok := f.Get("nogroup", "host"); ok {
		t.Error("key in missing group should be reported absent")
	}
}

func TestParse_CustomDelimiter(t *testing.T) {
	f, err := Parse(strings.NewReader("; note\nname: value\n"), "x", Options{Delimiter: ":", Comment: ";"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if v, _ := f.Get("", "name"); v != "value" {
		t.Errorf("name = %q, want value", v)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"missing delimiter", "KEY1=ok\njust a line\n", 2},
		{"unterminated group", "[group\n", 1},
		{"empty group", "[ ]\n", 1},
		{"empty key", "\n\n = value\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input), "bad.conf", DefaultOptions())
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %v", err)
			}
			if pe.Line != tt.line {
				t.Errorf("Line = %d, want %d", pe.Line, tt.line)
			}
			if !strings.Contains(pe.Error(), "bad.conf") {
				t.Errorf("error should name the file: %v", pe)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := New()
	base.Set("", "KEY1", "usr")
	base.Set("", "USRETC", "true")
	base.Set("section", "a", "1")

	over := New()
	over.Set("", "KEY1", "etc")
	over.Set("other", "b", "2")

	merged := Merge(base.Clone(), over)

	if v, _ := merged.Get("", "KEY1"); v != "etc" {
		t.Errorf("KEY1 = %q, want etc", v)
	}
	if v, _ := merged.Get("", "USRETC"); v != "true" {
		t.Errorf("USRETC = %q, want true", v)
	}
	if got := merged.Groups(); !reflect.DeepEqual(got, []string{"", "section", "other"}) {
		t.Errorf("Groups() = %q", got)
	}

	// The source of the clone is untouched.
	if v, _ := base.Get("", "KEY1"); v != "usr" {
		t.Errorf("base mutated: KEY1 = %q", v)
	}
}

func TestMerge_KeepsEmptyGroups(t *testing.T) {
	src, err := Parse(strings.NewReader("[empty]\n"), "x", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	dst := Merge(New(), src)
	if got := dst.Groups(); !reflect.DeepEqual(got, []string{"empty"}) {
		t.Errorf("Groups() = %q, want [empty]", got)
	}
}

func TestDelete(t *testing.T) {
	f := New()
	f.Set("g", "a", "1")
	f.Set("g", "b", "2")

	if !f.Delete("g", "a") {
		t.Error("Delete should report existing key")
	}
	if f.Delete("g", "a") {
		t.Error("Delete should report missing key")
	}
	if got := f.Keys("g"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Keys(g) = %q, want [b]", got)
	}
	if f.Len() != 1 {
		t.Errorf("Len() = %d, want 1", f.Len())
	}
}

func TestEqual(t *testing.T) {
	a := New()
	a.Set("", "x", "1")
	a.Set("g", "y", "2")

	b := New()
	b.Set("g", "y", "2")
	b.Set("", "x", "1")

	if !Equal(a, b) {
		t.Error("files with the same content in different order should be equal")
	}

	b.Set("g", "y", "3")
	if Equal(a, b) {
		t.Error("files with different values should not be equal")
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	f := New()
	f.Set("", "KEY1", "etc")
	f.Set("", "ETC", "true")
	f.Set("net", "host", "a b c")

	var buf bytes.Buffer
	if err := Encode(&buf, f, DefaultOptions()); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := "KEY1=etc\nETC=true\n\n[net]\nhost=a b c\n"
	if buf.String() != want {
		t.Errorf("Encode() = %q, want %q", buf.String(), want)
	}

	back, err := Parse(&buf, "roundtrip", DefaultOptions())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !Equal(f, back) {
		t.Error("round trip changed content")
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	f := New()
	f.Set("", "KEY", "value")

	if err := WriteFile(f, dir, "app.conf", DefaultOptions()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	target := filepath.Join(dir, "app.conf")
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("target missing: %v", err)
	}
	if info.Mode().Perm() != DefaultFileMode {
		t.Errorf("mode = %v, want %v", info.Mode().Perm(), DefaultFileMode)
	}

	got, err := ReadFile(nil, target, DefaultOptions())
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if v, _ := got.Get("", "KEY"); v != "value" {
		t.Errorf("KEY = %q, want value", v)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestWriteFile_PreservesMode(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app.conf")
	if err := os.WriteFile(target, []byte("OLD=1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	f := New()
	f.Set("", "NEW", "2")
	if err := WriteFile(f, dir, "app.conf", DefaultOptions()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestWriteFile_MissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	if err := WriteFile(New(), dir, "app.conf", DefaultOptions()); err == nil {
		t.Error("WriteFile into a missing directory should fail")
	}
}

func TestReadFile_NotExist(t *testing.T) {
	_, err := ReadFile(nil, filepath.Join(t.TempDir(), "nope.conf"), DefaultOptions())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}
