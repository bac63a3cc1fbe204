package planexec

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// journalFile is the rollback journal §5 names: "once execution starts it
// runs to completion per phase but can be aborted between actions,
// leaving a rollback journal that the next invocation uses to finish or
// reverse."
const journalFile = "pkg_plan.journal"

// JournalState is the journal's persisted content: the index of the next
// unapplied step in a specific Plan. The Plan itself isn't persisted -
// BuildPlan is deterministic given the same current/target/variants/
// facets inputs, so the caller rebuilds it and Executor resumes from
// NextStep.
type JournalState struct {
	NextStep int `json:"next_step"`
}

// Journal persists JournalState under an image's metadata directory via
// the same write-temp-then-rename pattern pkg/catalog and pkg/search use,
// so a crash mid-write never leaves a reader-visible partial journal.
type Journal struct {
	dir string
}

// NewJournal returns a Journal rooted at imageRoot's metadata directory
// (<imageRoot>/var/pkg).
func NewJournal(imageRoot string) *Journal {
	return &Journal{dir: filepath.Join(imageRoot, "var", "pkg")}
}

// Load returns the persisted state, or a zero JournalState (NextStep 0)
// if no journal exists - the common case of a plan that hasn't started.
func (j *Journal) Load() (JournalState, error) {
	data, err := os.ReadFile(filepath.Join(j.dir, journalFile))
	if os.IsNotExist(err) {
		return JournalState{}, nil
	}
	if err != nil {
		return JournalState{}, errors.Wrap(err, "planexec: read journal")
	}
	var state JournalState
	if err := json.Unmarshal(data, &state); err != nil {
		return JournalState{}, errors.Wrap(err, "planexec: decode journal")
	}
	return state, nil
}

// Save atomically persists state.
func (j *Journal) Save(state JournalState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "planexec: encode journal")
	}
	return writeAtomic(j.dir, journalFile, data)
}

// Clear removes the journal file, marking the plan as fully applied.
func (j *Journal) Clear() error {
	err := os.Remove(filepath.Join(j.dir, journalFile))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "planexec: clear journal")
	}
	return nil
}

// writeAtomic writes data to name under dir via a temp-file-then-rename,
// the same pattern pkg/catalog's Store and pkg/search use.
func writeAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "planexec: create dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "planexec: create temp file for %s", name)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "planexec: write temp file for %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "planexec: close temp file for %s", name)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "planexec: rename temp file into place for %s", name)
	}
	return nil
}
