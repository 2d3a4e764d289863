// Package lock serialises edits of the same target across processes with an
// advisory flock(2) on a lock file in the staging directory.
package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	// ErrLocked indicates another process holds the lock for the target.
	ErrLocked = errors.New("target is being edited by another process")

	// ErrUnsafeLockFile indicates the lock path is not a plain file owned
	// by the caller, e.g. a symlink or hard link planted by another user.
	ErrUnsafeLockFile = errors.New("unsafe lock file")
)

// Lock is a held advisory lock.
type Lock struct {
	path   string
	target string

	mu sync.Mutex
	f  *os.File
}

// PathFor returns the lock file used for target inside dir.
func PathFor(dir, target string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(target)))
	return filepath.Join(dir, "econfctl-"+hex.EncodeToString(sum[:])[:16]+".lock")
}

// Acquire takes the lock for target without blocking. It returns ErrLocked
// if another process already holds it.
func Acquire(dir, target string) (*Lock, error) {
	path := PathFor(dir, target)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|unix.O_NOFOLLOW, 0o600)
	if err != nil {
		if errors.Is(err, unix.ELOOP) {
			return nil, fmt.Errorf("%w %s: is a symlink", ErrUnsafeLockFile, path)
		}
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := checkOwned(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w %s: %v", ErrUnsafeLockFile, path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, target)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	if err := f.Truncate(0); err == nil {
		fmt.Fprintf(f, "%d %s\n", os.Getpid(), target)
	}

	return &Lock{path: path, target: target, f: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Target returns the locked target path.
func (l *Lock) Target() string {
	return l.target
}

// Release drops the lock. The lock file itself stays so a waiting process
// never locks an unlinked inode. Release is idempotent.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil

	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		f.Close()
		return fmt.Errorf("unlock %s: %w", l.path, err)
	}
	return f.Close()
}

// checkOwned verifies that f is a regular file with a single link, owned
// by the effective user.
func checkOwned(f *os.File) error {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return err
	}
	switch {
	case st.Mode&unix.S_IFMT != unix.S_IFREG:
		return errors.New("not a regular file")
	case st.Nlink != 1:
		return fmt.Errorf("has %d links", st.Nlink)
	case int(st.Uid) != os.Geteuid():
		return fmt.Errorf("owned by uid %d", st.Uid)
	}
	return nil
}
