package search

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// File names under an index directory, per spec.md §4.4's "Index
// structure (v1)" list.
const (
	MainDictFile       = "main_dict.ascii.v1"
	ByteOffsetFile     = "byte_offset.v1"
	FullFMRIListFile   = "full_fmri_list"
	FullFMRIListHash   = "full_fmri_list.hash"
	FastAddFile        = "fast_add.v1"
	FastRemoveFile     = "fast_remove.v1"
	TokenByteOffsetFile = "token_byte_offset.v1"
	IDToValueFile      = "id_to_value.v1"
	ValueToIDFile      = "value_to_id.v1"
	FMRIOffsetsFile    = "fmri_offsets.v1"

	// fingerprintFile is not part of §4.4's index structure list; it
	// caches imagestate.Fingerprint's last-known value so Index.Search can
	// detect staleness even when full_fmri_list.hash still matches (the
	// FMRI set is unchanged but per-package state, like facets, moved).
	fingerprintFile = "image_fingerprint.v1"
)

// FormatVersion is the "VERSION:" line every index file carries. OnDiskFormat
// is the second header line ("on-disk-format:"); every file this package
// writes reports the same pair, so a version bump can be detected uniformly
// across every file without file-specific parsing.
const (
	FormatVersion  = 1
	OnDiskFormat   = 1
)

// header is the 2-line prefix every versioned index file carries:
// "VERSION: <n>\non-disk-format: <m>\n".
type header struct {
	Version      int
	OnDiskFormat int
}

func writeHeader(w *bufio.Writer, h header) error {
	if _, err := fmt.Fprintf(w, "VERSION: %d\n", h.Version); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "on-disk-format: %d\n", h.OnDiskFormat)
	return err
}

// readHeader parses the leading two header lines, returning ErrUnrecognizedVersion
// if either is missing or the version doesn't match what this package writes -
// the trigger for degraded mode per §4.4 ("header version is unrecognized").
func readHeader(r *bufio.Reader) (header, error) {
	var h header
	line, err := r.ReadString('\n')
	if err != nil {
		return h, ErrUnrecognizedVersion
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(line), "VERSION: %d", &h.Version); err != nil {
		return h, ErrUnrecognizedVersion
	}
	line, err = r.ReadString('\n')
	if err != nil {
		return h, ErrUnrecognizedVersion
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(line), "on-disk-format: %d", &h.OnDiskFormat); err != nil {
		return h, ErrUnrecognizedVersion
	}
	if h.Version != FormatVersion {
		return h, ErrUnrecognizedVersion
	}
	return h, nil
}

// writeAtomic writes data to name under dir via a temp-file-then-rename,
// the same pattern pkg/catalog's Store uses so a crash mid-write never
// leaves a reader-visible partial index file.
func writeAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "search: create index dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "search: create temp file for %s", name)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "search: write temp file for %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "search: close temp file for %s", name)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "search: rename temp file into place for %s", name)
	}
	return nil
}

func appendAtomic(dir, name string, line string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "search: create index dir %s", dir)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "search: open %s for append", name)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return errors.Wrapf(err, "search: append to %s", name)
	}
	return nil
}
