package keyfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultFileMode is used for newly created key files.
const DefaultFileMode fs.FileMode = 0o644

// Encode writes f to w. Default group entries come first without a header,
// followed by each named group.
func Encode(w io.Writer, f *File, opts Options) error {
	opts = opts.normalized()
	bw := bufio.NewWriter(w)

	first := true
	for _, name := range f.Groups() {
		if name != DefaultGroup {
			if !first {
				if _, err := bw.WriteString("\n"); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(bw, "[%s]\n", name); err != nil {
				return err
			}
		}
		for _, k := range f.Keys(name) {
			v, _ := f.Get(name, k)
			if _, err := fmt.Fprintf(bw, "%s%s%s\n", k, opts.Delimiter, v); err != nil {
				return err
			}
		}
		first = false
	}

	return bw.Flush()
}

// WriteFile writes f to dir/name.
//
// The content goes to a hidden temporary file in dir which is then renamed
// over the target, so readers see either the old or the new file. An
// existing target keeps its permission bits; new files get DefaultFileMode.
// dir must already exist.
func WriteFile(f *File, dir, name string, opts Options) (err error) {
	target := filepath.Join(dir, name)

	mode := DefaultFileMode
	if info, statErr := os.Stat(target); statErr == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", target, statErr)
	}

	tmp, err := os.CreateTemp(dir, ".econfctl-*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if err = Encode(tmp, f, opts); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("rename to %s: %w", target, err)
	}

	return nil
}
