package keyfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// ParseError represents an error while parsing a key file.
type ParseError struct {
	// Path is the file that failed to parse.
	Path string
	// Line is the 1-based line number, 0 when unknown.
	Line int
	// Message describes the problem.
	Message string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReadFile reads and parses the key file at path.
// A missing file is returned as an error satisfying errors.Is(err, fs.ErrNotExist).
func ReadFile(fsys FileSystem, path string, opts Options) (*File, error) {
	if fsys == nil {
		fsys = DefaultFS()
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data), path, opts)
}

// Parse reads a key file from r. source names the input in errors.
func Parse(r io.Reader, source string, opts Options) (*File, error) {
	opts = opts.normalized()
	f := New()
	group := DefaultGroup

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if line == "" || strings.HasPrefix(line, opts.Comment) {
			continue
		}

		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return nil, &ParseError{Path: source, Line: lineNo, Message: "unterminated group header"}
			}
			name := strings.TrimSpace(line[1 : len(line)-1])
			if name == "" {
				return nil, &ParseError{Path: source, Line: lineNo, Message: "empty group name"}
			}
			group = name
			f.addGroup(group)
			continue
		}

		key, value, found := strings.Cut(line, opts.Delimiter)
		if !found {
			return nil, &ParseError{
				Path:    source,
				Line:    lineNo,
				Message: fmt.Sprintf("missing %q delimiter", opts.Delimiter),
			}
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, &ParseError{Path: source, Line: lineNo, Message: "empty key"}
		}
		f.Set(group, key, strings.TrimSpace(value))
	}

	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Path: source, Line: lineNo, Message: err.Error(), Err: err}
	}

	return f, nil
}
