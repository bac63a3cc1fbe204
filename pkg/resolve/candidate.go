// Package resolve translates image state, a proposed operation, and
// catalog candidates into the generic pkg/solver encoding described by
// spec.md §4.1's depend-type table, then turns a solver.NotSatisfiable
// result back into a package-oriented error.
package resolve

import (
	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/manifest"
)

// Candidate is one FMRI a stem could resolve to, together with the
// manifest whose depend actions constrain it and the publisher rank
// that orders it against sibling candidates (lower rank is preferred).
type Candidate struct {
	FMRI          fmri.FMRI
	Manifest      manifest.Manifest
	PublisherRank int
	Obsolete      bool
}

// CatalogView supplies every known candidate for a stem, already sorted
// by preference: publisher rank ascending, then version descending
// (latest-wins), matching the order pkg/solver's Dependency
// constraints expect ("identifiers appearing earlier... have higher
// preference").
type CatalogView interface {
	CandidatesForStem(stem string) []Candidate
}

// OperationKind names one of the proposed operations §4.1 lists.
type OperationKind string

const (
	OpInstall       OperationKind = "install"
	OpUninstall     OperationKind = "uninstall"
	OpUpdate        OperationKind = "update"
	OpUpdateAll     OperationKind = "update-all"
	OpChangeVarcets OperationKind = "change-varcets"
	OpSync          OperationKind = "sync"
)

// Request is the proposed operation plus the modifiers §4.1 names: a
// reject list forcing stems out regardless of dependency, and (for
// OpChangeVarcets) the variant/facet change-set being applied. Variants
// doubles as the image's own effective variants for every other
// operation kind too - BuildVariables filters each candidate's manifest
// through it before deriving dependency constraints, the same
// Manifest.SelectVariants pkg/planexec already applies when building the
// plan, so a variant-gated depend action never contributes a constraint
// the image's actual variant settings would never have delivered.
type Request struct {
	Kind     OperationKind
	Stems    []string // install/uninstall/update targets; ignored for OpUpdateAll/OpSync
	Reject   []string
	Variants map[string]string
	Facets   map[string]bool
}
