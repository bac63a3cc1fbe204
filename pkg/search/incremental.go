package search

import (
	"bufio"
	"os"
	"strings"

	"github.com/solarisips/pkgclient/pkg/fmri"
)

// AddFast appends f to fast_add.v1, per §4.4's "Incremental add": queries
// fall back to scanning the fast-add manifests directly for tokens not
// yet folded into the main dict. It does not touch main_dict.ascii.v1.
func (s *Store) AddFast(f fmri.FMRI) error {
	if err := s.ensureLogHeader(FastAddFile); err != nil {
		return err
	}
	return appendAtomic(s.dir, FastAddFile, "+"+f.String())
}

// RemoveFast appends f to fast_remove.v1 ("Incremental remove": queries
// filter out hits whose doc_id is in fast-remove).
func (s *Store) RemoveFast(f fmri.FMRI) error {
	if err := s.ensureLogHeader(FastRemoveFile); err != nil {
		return err
	}
	return appendAtomic(s.dir, FastRemoveFile, "-"+f.String())
}

// ensureLogHeader creates name with the standard version header if it
// doesn't exist yet, so a fast-add/fast-remove log started outside a
// Build still carries a readable header.
func (s *Store) ensureLogHeader(name string) error {
	if _, err := os.Stat(s.path(name)); err == nil {
		return nil
	}
	return writeAtomic(s.dir, name, headerBytes())
}

// PendingFastAdds returns every FMRI appended to fast_add.v1 since the
// last full rebuild, in append order. It mirrors pkg/catalog's update-log
// "+"/"-" line convention (parseUpdateLog) rather than inventing a new
// incremental-log grammar.
func (s *Store) PendingFastAdds() ([]fmri.FMRI, error) {
	return s.readFastLog(FastAddFile, '+')
}

// PendingFastRemoves returns every FMRI appended to fast_remove.v1.
func (s *Store) PendingFastRemoves() ([]fmri.FMRI, error) {
	return s.readFastLog(FastRemoveFile, '-')
}

func (s *Store) readFastLog(name string, prefix byte) ([]fmri.FMRI, error) {
	f, err := os.Open(s.path(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if _, err := readHeader(r); err != nil {
		return nil, nil
	}

	var out []fmri.FMRI
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimRight(line, "\n")
		if len(line) > 1 && line[0] == prefix {
			parsed, perr := fmri.Parse(line[1:])
			if perr == nil {
				out = append(out, parsed)
			}
		}
		if err != nil {
			break
		}
	}
	return out, nil
}

// ShouldRebuild implements §4.4's "Threshold" rule: a full rebuild is
// required once the number of pending fast-add entries exceeds
// maxFastIndexed (config.Config.FastIndexThreshold), or the caller
// signals the current operation is a large update. Index.Search calls
// this on every query and triggers the rebuild itself once it trips,
// rather than leaving the index to degrade indefinitely.
func ShouldRebuild(pendingFastAdds, maxFastIndexed int, largeUpdate bool) bool {
	if largeUpdate {
		return true
	}
	return pendingFastAdds > maxFastIndexed
}
