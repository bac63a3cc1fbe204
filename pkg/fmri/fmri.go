package fmri

import (
	"fmt"
	"strings"
)

// FMRI is the fully-qualified, immutable package identifier:
// `pkg://publisher/stem@version`. Publisher is optional; a publisher-less
// FMRI is constructed by input forms `pkg:/stem@version` or bare
// `stem@version`.
type FMRI struct {
	Publisher string // empty means "no publisher"
	Stem      string
	Version   Version
}

// HasPublisher reports whether the FMRI carries an explicit publisher.
func (f FMRI) HasPublisher() bool {
	return f.Publisher != ""
}

// Parse accepts `pkg://publisher/stem@version`, `pkg:/stem@version`, and
// bare `stem@version` input forms.
func Parse(s string) (FMRI, error) {
	var f FMRI
	rest := s

	switch {
	case strings.HasPrefix(rest, "pkg://"):
		rest = strings.TrimPrefix(rest, "pkg://")
		idx := strings.IndexByte(rest, '/')
		if idx < 0 {
			return f, fmt.Errorf("fmri: malformed %q: missing stem after publisher", s)
		}
		f.Publisher = rest[:idx]
		rest = rest[idx+1:]
	case strings.HasPrefix(rest, "pkg:/"):
		rest = strings.TrimPrefix(rest, "pkg:/")
	}

	stem := rest
	var versionPart string
	if idx := strings.IndexByte(rest, '@'); idx >= 0 {
		stem = rest[:idx]
		versionPart = rest[idx+1:]
	}
	if stem == "" {
		return f, fmt.Errorf("fmri: malformed %q: empty stem", s)
	}
	f.Stem = stem

	if versionPart != "" {
		v, err := ParseVersion(versionPart)
		if err != nil {
			return f, fmt.Errorf("fmri: malformed %q: %w", s, err)
		}
		f.Version = v
	}

	return f, nil
}

// String renders the canonical `pkg://publisher/stem@version` form, or
// `pkg:/stem@version` when Publisher is empty. Re-parsing the result with
// Parse yields an equal FMRI (round-trip identity).
func (f FMRI) String() string {
	var b strings.Builder
	if f.Publisher != "" {
		b.WriteString("pkg://")
		b.WriteString(f.Publisher)
		b.WriteByte('/')
	} else {
		b.WriteString("pkg:/")
	}
	b.WriteString(f.Stem)
	if f.Version.Release != nil || f.Version.Timestamp != 0 {
		b.WriteByte('@')
		b.WriteString(f.Version.String())
	}
	return b.String()
}

// SamePublisher reports whether the two FMRIs can be considered to
// originate from compatible publishers for dependency-satisfaction
// purposes: a publisher-less FMRI matches any publisher, and two
// publisher-bearing FMRIs must name the identical publisher.
func (f FMRI) SamePublisher(o FMRI) bool {
	if f.Publisher == "" || o.Publisher == "" {
		return true
	}
	return f.Publisher == o.Publisher
}

// Satisfies reports whether the receiver satisfies a dependency naming
// stem `other.Stem` at version `other.Version` under mode: same stem,
// compatible publisher, and IsSuccessor(other.Version, mode).
func (f FMRI) Satisfies(other FMRI, mode ConstraintMode) bool {
	return f.Stem == other.Stem && f.SamePublisher(other) && f.Version.IsSuccessor(other.Version, mode)
}

// Equal reports whether two FMRIs are identical in stem, publisher, and
// version (exact equality, not dependency satisfaction - see Satisfies).
func (f FMRI) Equal(o FMRI) bool {
	return f.Stem == o.Stem && f.Publisher == o.Publisher && f.Version.Equal(o.Version)
}
