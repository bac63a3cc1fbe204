package planexec

import (
	"context"
	"os"
	"path/filepath"
)

// FS abstracts the filesystem operations Executor needs, so tests can
// exercise plan application without touching the real filesystem - the
// same seam pkg/transport's Client uses around http.Client for fetches.
type FS interface {
	MkdirAll(path string, perm os.FileMode) error
	Remove(path string) error
	WriteFile(path string, data []byte, perm os.FileMode) error
	ReadFile(path string) ([]byte, error)
	Symlink(target, path string) error
	Link(oldpath, newpath string) error
	Rename(oldpath, newpath string) error
	Stat(path string) (os.FileInfo, error)
}

// osFS is the default FS, delegating to the standard library.
type osFS struct{}

func (osFS) MkdirAll(path string, perm os.FileMode) error        { return os.MkdirAll(path, perm) }
func (osFS) Remove(path string) error                            { return os.Remove(path) }
func (osFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}
func (osFS) ReadFile(path string) ([]byte, error)   { return os.ReadFile(path) }
func (osFS) Symlink(target, path string) error      { return os.Symlink(target, path) }
func (osFS) Link(oldpath, newpath string) error     { return os.Link(oldpath, newpath) }
func (osFS) Rename(oldpath, newpath string) error   { return os.Rename(oldpath, newpath) }
func (osFS) Stat(path string) (os.FileInfo, error)  { return os.Stat(path) }

// OSFS returns the real-filesystem FS implementation.
func OSFS() FS { return osFS{} }

// PayloadSource supplies the file content a file/license action delivers,
// addressed by its payload hash - standing in for the real client's
// download cache (pkg/transport.FetchFile), so planexec stays decoupled
// from how bytes for a given hash were obtained.
type PayloadSource interface {
	Payload(ctx context.Context, hash string) ([]byte, error)
}

func joinImage(imageRoot, path string) string {
	return filepath.Join(imageRoot, path)
}
