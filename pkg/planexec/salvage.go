package planexec

import (
	"fmt"
	"path/filepath"
)

// salvageDir is where user-modified or otherwise-undeliverable content is
// moved aside rather than destroyed, mirroring the source's lost+found
// convention under the image metadata directory.
const salvageDir = "var/pkg/lost+found"

// salvage moves relPath (relative to imageRoot) into salvageDir instead of
// removing or overwriting it, tagging it with seq so repeated salvages of
// the same path don't collide. Grounded on generic.py's remove(): a
// directory action whose rmdir fails with ENOTEMPTY (it holds files the
// manifest doesn't know about) is salvaged rather than treated as a fatal
// error; this package applies the same treatment to a file action whose
// on-disk content no longer matches its recorded payload hash, since both
// cases mean "the administrator put something here the package doesn't
// own."
func salvage(fsys FS, imageRoot, relPath string, seq int) error {
	dest := filepath.Join(imageRoot, salvageDir, fmt.Sprintf("%s-%d", relPath, seq))
	if err := fsys.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("planexec: salvage %s: create salvage dir: %w", relPath, err)
	}
	if err := fsys.Rename(joinImage(imageRoot, relPath), dest); err != nil {
		return fmt.Errorf("planexec: salvage %s: %w", relPath, err)
	}
	return nil
}

// contentModified reports whether the file currently at relPath has
// content other than what wantHash (the manifest's recorded payload hash)
// describes - the check that decides whether removing/overwriting it
// needs a salvage first. A missing file is never "modified": there is
// nothing to salvage.
func contentModified(fsys FS, imageRoot, relPath string, wantHash string, hashOf func([]byte) string) bool {
	if wantHash == "" {
		return false
	}
	data, err := fsys.ReadFile(joinImage(imageRoot, relPath))
	if err != nil {
		return false
	}
	return hashOf(data) != wantHash
}
