package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solarisips/pkgclient/pkg/solver"
)

// BlameError is the package-oriented shape spec.md §4.1 requires on
// UNSAT: the full set of blamed proposed packages, each with the
// AppliedConstraint(s) that conflicted. Every blamed proposed package
// named by the underlying solver.NotSatisfiable core appears here - the
// aggregation is complete but, per DESIGN.md's Open Questions note, not
// guaranteed subset-minimal.
type BlameError struct {
	Packages map[string][]string // stem -> human-readable conflict descriptions
}

func (e *BlameError) Error() string {
	stems := make([]string, 0, len(e.Packages))
	for s := range e.Packages {
		stems = append(stems, s)
	}
	sort.Strings(stems)
	var parts []string
	for _, s := range stems {
		parts = append(parts, fmt.Sprintf("%s: %s", s, strings.Join(e.Packages[s], "; ")))
	}
	return "no solution: " + strings.Join(parts, " | ")
}

// FromNotSatisfiable groups a solver.NotSatisfiable core by the stem of
// the Variable each AppliedConstraint names, so every blamed proposed
// package is visible to the caller at once rather than only the first
// conflict encountered.
func FromNotSatisfiable(ns solver.NotSatisfiable) *BlameError {
	be := &BlameError{Packages: make(map[string][]string)}
	for _, applied := range ns {
		stem := stemOf(applied.Variable.Identifier())
		be.Packages[stem] = append(be.Packages[stem], applied.String())
	}
	return be
}

// stemOf strips the "fmri:"/"stem:" Identifier prefixes this package
// assigns, recovering a stem@version or bare stem for display.
func stemOf(id solver.Identifier) string {
	s := string(id)
	for _, prefix := range []string{"fmri:", "stem:"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	if idx := strings.IndexByte(s, '@'); idx >= 0 {
		return s[:idx]
	}
	return s
}
