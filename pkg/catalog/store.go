package catalog

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Store is the on-disk catalog directory for one publisher:
// <imageRoot>/var/pkg/cache/<publisher>/catalog/.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "catalog: create store dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

// LoadAttrs reads the locally cached catalog.attrs, returning a zero
// Attrs (Empty() == true) if none is cached yet.
func (s *Store) LoadAttrs() (Attrs, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, AttrsFile))
	if os.IsNotExist(err) {
		return Attrs{}, nil
	}
	if err != nil {
		return Attrs{}, errors.Wrap(err, "catalog: read local catalog.attrs")
	}
	return UnmarshalAttrs(data)
}

// LoadPart reads a locally cached part file, returning an empty Part if
// none is cached yet.
func (s *Store) LoadPart(name string) (Part, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return Part{Name: name}, nil
	}
	if err != nil {
		return Part{}, errors.Wrapf(err, "catalog: read local part %s", name)
	}
	return ParsePart(name, data), nil
}

// writeAtomic writes data to name under the store directory via a
// temp-file-then-rename, so a crash mid-write never leaves a partially
// written catalog file for a later refresh to trust (§4.2: "writes are
// atomic: write to a temp file in the same directory, then rename").
func (s *Store) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "catalog: create temp file for %s", name)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "catalog: write temp file for %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "catalog: close temp file for %s", name)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "catalog: rename temp file into place for %s", name)
	}
	return nil
}

// SaveAttrs atomically writes catalog.attrs.
func (s *Store) SaveAttrs(a Attrs) error {
	data, err := MarshalAttrs(a)
	if err != nil {
		return errors.Wrap(err, "catalog: marshal catalog.attrs")
	}
	return s.writeAtomic(AttrsFile, data)
}

// SavePart atomically writes a part file.
func (s *Store) SavePart(p Part) error {
	return s.writeAtomic(p.Name, p.Render())
}
