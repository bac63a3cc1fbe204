// Package imagestate holds the per-image persistent state spec.md §2/§3
// describes under "Image": the installed catalog (a subset of known
// FMRIs tagged with a state), publisher list with ranking, properties,
// avoid-list, obsolete-list, and linked-image metadata. The image OWNS
// this state; pkg/linkedimage only references it by path.
package imagestate

import (
	"sort"

	"github.com/solarisips/pkgclient/pkg/config"
	"github.com/solarisips/pkgclient/pkg/fmri"
)

// PackageState tags why a stem appears in the installed catalog.
type PackageState string

const (
	StateInstalled PackageState = "installed"
	StateObsolete  PackageState = "obsolete"
)

// InstalledEntry is one stem's installed-catalog entry.
type InstalledEntry struct {
	FMRI  fmri.FMRI
	State PackageState
}

// State is the full persistent state of one image.
type State struct {
	ImageRoot string

	// Installed is keyed by stem so at most one FMRI is installed per
	// stem, per §3's "one FMRI per retained stem" invariant.
	Installed map[string]InstalledEntry

	Publishers []config.Publisher

	Properties map[string]string

	// AvoidList holds stems that `group`/`group-any` depends do not pull
	// in: an avoided stem counts as satisfying them (§3 table). Other
	// depend types, such as `require`, can still select an avoided stem.
	AvoidList map[string]struct{}

	// Variants/Facets are the image's effective build-time selection.
	// The solver drops variant-mismatched actions from each candidate's
	// manifest; the candidates themselves are not excluded. The planner
	// elides facet-disabled actions.
	Variants map[string]string
	Facets   map[string]bool

	// Children/Parent are linked-image metadata the image owns. See
	// pkg/linkedimage for the graph operations that mutate these.
	Children map[string]ChildLink
	Parent   *ParentLink
}

// New returns an empty State rooted at root.
func New(root string) *State {
	return &State{
		ImageRoot:  root,
		Installed:  make(map[string]InstalledEntry),
		Properties: make(map[string]string),
		AvoidList:  make(map[string]struct{}),
		Variants:   make(map[string]string),
		Facets:     make(map[string]bool),
		Children:   make(map[string]ChildLink),
	}
}

// Lookup returns the installed FMRI for stem, if any.
func (s *State) Lookup(stem string) (fmri.FMRI, bool) {
	e, ok := s.Installed[stem]
	if !ok {
		return fmri.FMRI{}, false
	}
	return e.FMRI, true
}

// IsInstalled reports whether stem has an Installed-state entry
// (obsolete entries are tracked but do not count as installed for
// `require` satisfaction — §3: "required dependency on obsolete").
func (s *State) IsInstalled(stem string) bool {
	e, ok := s.Installed[stem]
	return ok && e.State == StateInstalled
}

// IsObsolete reports whether stem's installed-catalog entry is obsolete.
func (s *State) IsObsolete(stem string) bool {
	e, ok := s.Installed[stem]
	return ok && e.State == StateObsolete
}

// IsAvoided reports whether stem is on the avoid-list.
func (s *State) IsAvoided(stem string) bool {
	_, ok := s.AvoidList[stem]
	return ok
}

// SatisfiesGroup reports whether stem satisfies a `group`/`group-any`
// depend: installed, obsolete, or on the avoid-list all count (§3).
func (s *State) SatisfiesGroup(stem string) bool {
	if s.IsInstalled(stem) || s.IsObsolete(stem) {
		return true
	}
	return s.IsAvoided(stem)
}

// Put records stem as installed at f.
func (s *State) Put(stem string, f fmri.FMRI, state PackageState) {
	s.Installed[stem] = InstalledEntry{FMRI: f, State: state}
}

// Remove drops stem from the installed catalog entirely.
func (s *State) Remove(stem string) {
	delete(s.Installed, stem)
}

// InstalledFMRIs returns every installed (not merely obsolete) FMRI, in
// stem-sorted order, for deterministic downstream hashing (§4.4's
// `Hash(sorted(installed FMRIs))`).
func (s *State) InstalledFMRIs() []fmri.FMRI {
	stems := make([]string, 0, len(s.Installed))
	for stem, e := range s.Installed {
		if e.State == StateInstalled {
			stems = append(stems, stem)
		}
	}
	sort.Strings(stems)
	out := make([]fmri.FMRI, 0, len(stems))
	for _, stem := range stems {
		out = append(out, s.Installed[stem].FMRI)
	}
	return out
}

// PublisherByPrefix finds a configured publisher, honoring none of the
// ranking logic itself (that lives in pkg/resolve's candidate ordering).
func (s *State) PublisherByPrefix(prefix string) (config.Publisher, bool) {
	for _, p := range s.Publishers {
		if p.Prefix == prefix {
			return p, true
		}
	}
	return config.Publisher{}, false
}
