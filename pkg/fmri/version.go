// Package fmri implements the Fault Management Resource Identifier -
// the canonical package name used throughout this client: publisher,
// stem, and a dotted, multi-component version with three distinct
// successor constraint modes.
package fmri

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ConstraintMode selects how two Versions are compared for the
// "is-successor" relation used throughout depend-type evaluation and the
// solver's incorporate/parent clauses.
type ConstraintMode int

const (
	// ConstraintNone requires every component tuple of the candidate to
	// dominate the corresponding tuple of the reference, lexicographically.
	ConstraintNone ConstraintMode = iota
	// ConstraintAuto requires the release tuple to agree on every
	// component but the last, with the last component increasing.
	ConstraintAuto
	// ConstraintRelease requires the release tuples to be exactly equal;
	// branch and timestamp are free to differ.
	ConstraintRelease
)

func (m ConstraintMode) String() string {
	switch m {
	case ConstraintNone:
		return "NONE"
	case ConstraintAuto:
		return "AUTO"
	case ConstraintRelease:
		return "RELEASE"
	default:
		return "UNKNOWN"
	}
}

const timestampLayout = "20060102T150405Z"

// Version is the `release,build-release-branch:timestamp` component of an
// FMRI. All three numeric tuples are dotted sequences of non-negative
// integers; Timestamp is the seconds-since-epoch value of the textual
// `YYYYMMDDTHHMMSSZ` timestamp, or zero if the FMRI carried none.
type Version struct {
	Release      []uint32
	BuildRelease []uint32
	Branch       []uint32
	Timestamp    uint64
}

// ParseVersion parses the textual form `release,build-release-branch:timestamp`.
// The build-release, branch, and timestamp segments are all optional; a bare
// release (e.g. "1.0") is a valid Version with zero-valued trailing fields.
func ParseVersion(s string) (Version, error) {
	var v Version
	if s == "" {
		return v, fmt.Errorf("fmri: empty version")
	}

	rest := s
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		ts, err := parseTimestamp(rest[idx+1:])
		if err != nil {
			return v, err
		}
		v.Timestamp = ts
		rest = rest[:idx]
	}

	releasePart := rest
	var branchPart string
	if idx := strings.IndexByte(rest, ','); idx >= 0 {
		releasePart = rest[:idx]
		branchPart = rest[idx+1:]
	}

	release, err := parseTuple(releasePart)
	if err != nil {
		return v, fmt.Errorf("fmri: invalid release in version %q: %w", s, err)
	}
	v.Release = release

	if branchPart != "" {
		buildRelease := branchPart
		var branch string
		if idx := strings.IndexByte(branchPart, '-'); idx >= 0 {
			buildRelease = branchPart[:idx]
			branch = branchPart[idx+1:]
		}
		br, err := parseTuple(buildRelease)
		if err != nil {
			return v, fmt.Errorf("fmri: invalid build-release in version %q: %w", s, err)
		}
		v.BuildRelease = br
		if branch != "" {
			b, err := parseTuple(branch)
			if err != nil {
				return v, fmt.Errorf("fmri: invalid branch in version %q: %w", s, err)
			}
			v.Branch = b
		}
	}

	return v, nil
}

func parseTimestamp(s string) (uint64, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return 0, fmt.Errorf("fmri: invalid timestamp %q: %w", s, err)
	}
	return uint64(t.Unix()), nil
}

func parseTuple(s string) ([]uint32, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ".")
	out := make([]uint32, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", p, err)
		}
		out[i] = uint32(n)
	}
	return out, nil
}

func formatTuple(t []uint32) string {
	parts := make([]string, len(t))
	for i, n := range t {
		parts[i] = strconv.FormatUint(uint64(n), 10)
	}
	return strings.Join(parts, ".")
}

// String renders the canonical textual form. Re-parsing it with
// ParseVersion yields an equal Version (round-trip identity).
func (v Version) String() string {
	var b strings.Builder
	b.WriteString(formatTuple(v.Release))
	if len(v.BuildRelease) > 0 || len(v.Branch) > 0 {
		b.WriteByte(',')
		b.WriteString(formatTuple(v.BuildRelease))
		if len(v.Branch) > 0 {
			b.WriteByte('-')
			b.WriteString(formatTuple(v.Branch))
		}
	}
	if v.Timestamp != 0 {
		b.WriteByte(':')
		b.WriteString(time.Unix(int64(v.Timestamp), 0).UTC().Format(timestampLayout))
	}
	return b.String()
}

// compareTuples lexicographically compares two dotted tuples, treating a
// shorter tuple as zero-padded on the right. Returns -1, 0, or 1.
func compareTuples(a, b []uint32) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var x, y uint32
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x < y {
			return -1
		}
		if x > y {
			return 1
		}
	}
	return 0
}

// Equal reports whether two Versions agree in every component, including
// timestamp. Tuples are compared zero-padded, so "1" and "1.0" are equal.
func (v Version) Equal(o Version) bool {
	return compareTuples(v.Release, o.Release) == 0 &&
		compareTuples(v.BuildRelease, o.BuildRelease) == 0 &&
		compareTuples(v.Branch, o.Branch) == 0 &&
		v.Timestamp == o.Timestamp
}

// IsSuccessor reports whether the receiver is a successor of (or equal to,
// where the mode permits equality) other under the given ConstraintMode.
func (v Version) IsSuccessor(other Version, mode ConstraintMode) bool {
	switch mode {
	case ConstraintRelease:
		return compareTuples(v.Release, other.Release) == 0
	case ConstraintAuto:
		return releaseSuccessorAuto(v.Release, other.Release)
	default: // ConstraintNone
		return compareTuples(v.Release, other.Release) >= 0 &&
			compareTuples(v.BuildRelease, other.BuildRelease) >= 0 &&
			compareTuples(v.Branch, other.Branch) >= 0 &&
			v.Timestamp >= other.Timestamp
	}
}

// SatisfiesIncorporation reports whether v is an acceptable candidate
// under an incorporate dependency pinning ref: every release component
// ref explicitly gives must match exactly; components beyond ref's
// given precision are free to float. This is deliberately distinct from
// IsSuccessor(ref, ConstraintAuto), which permits the last given
// component to increase - an incorporation pins that component too, it
// only frees components *beyond* what was specified.
func (v Version) SatisfiesIncorporation(ref Version) bool {
	for i, want := range ref.Release {
		var have uint32
		if i < len(v.Release) {
			have = v.Release[i]
		}
		if have != want {
			return false
		}
	}
	return true
}

// releaseSuccessorAuto implements CONSTRAINT_AUTO: release components agree
// up to len-1, and the last component differs upward. The shorter of the
// two tuples' length minus one fixes how many leading components must
// agree; if either tuple is empty the comparison falls back to plain
// component-wise dominance so that degenerate (unversioned) inputs don't
// panic on the "last component" lookup.
func releaseSuccessorAuto(a, b []uint32) bool {
	if len(a) == 0 || len(b) == 0 {
		return compareTuples(a, b) >= 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n-1; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	if len(a) != len(b) {
		// Differing lengths with an equal common prefix: the longer
		// tuple is more precise and therefore later, the shorter is
		// earlier - accept either direction as long as the shared
		// prefix (checked above) matched.
		return compareTuples(a, b) >= 0
	}
	return a[n-1] >= b[n-1]
}
