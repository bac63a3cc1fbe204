package search

import "errors"

// ErrUnrecognizedVersion is returned by readers when an index file is
// missing or its header doesn't match a version this package understands -
// the trigger for degraded mode per §4.4.
var ErrUnrecognizedVersion = errors.New("search: missing or unrecognized index file version")

// ErrInconsistentIndex is returned when a present, correctly-versioned
// index file can't be parsed - the trigger for InconsistentIndexException.
var ErrInconsistentIndex = errors.New("search: index file structure is unreadable")

// Diagnostic codes Search/Build attach to their Outcome, mirroring the
// three named in §4.4's "Degraded mode" paragraph.
const (
	DiagSlowSearchUsed           = "SlowSearchUsed"
	DiagIncorrectIndexFileHash   = "IncorrectIndexFileHash"
	DiagInconsistentIndexException = "InconsistentIndexException"
)
