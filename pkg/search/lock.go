package search

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
)

// lockFile is the advisory lock file within an index directory. No
// example in this module's dependency pack wraps advisory file locking
// (no gofrs/flock or nightlyone/lockfile in any go.sum), so this uses
// syscall.Flock directly - see DESIGN.md.
const lockFile = ".lock"

// Lock is a held advisory lock over a Store's directory, per §4.4's
// concurrency model: exclusive for writers, shared for readers.
type Lock struct {
	f *os.File
}

// LockExclusive blocks until it holds the sole exclusive lock on the
// index directory, for Build/AddFast/RemoveFast.
func (s *Store) LockExclusive() (*Lock, error) {
	return s.lock(syscall.LOCK_EX)
}

// LockShared takes a shared lock for a reader's point-in-time snapshot.
// Multiple readers may hold it concurrently; it excludes writers.
func (s *Store) LockShared() (*Lock, error) {
	return s.lock(syscall.LOCK_SH)
}

func (s *Store) lock(how int) (*Lock, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "search: create index dir %s", s.dir)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, lockFile), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "search: open lock file")
	}
	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "search: acquire index lock")
	}
	return &Lock{f: f}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	return l.f.Close()
}
