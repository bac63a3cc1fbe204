package resolve

import (
	"fmt"
	"sort"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/depend"
	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/solver"
)

// candidateID names the solver.Variable standing for one concrete FMRI.
func candidateID(f fmri.FMRI) solver.Identifier {
	return solver.IdentifierFromString("fmri:" + f.Stem + "@" + f.Version.String())
}

// CandidateID exports candidateID so a caller holding a resolved
// []solver.Variable can match each Identifier back to the originating
// Candidate, without the solver layer ever needing to know about FMRIs
// directly.
func CandidateID(f fmri.FMRI) solver.Identifier {
	return candidateID(f)
}

// stemID names the solver.Variable standing for "some version of this
// stem is selected" - used only for anchored stems (installed-preserved
// or explicitly requested), since only those need a Mandatory anchor.
func stemID(stem string) solver.Identifier {
	return solver.IdentifierFromString("stem:" + stem)
}

type fmriVariable struct {
	id          solver.Identifier
	constraints []solver.Constraint
}

func (v fmriVariable) Identifier() solver.Identifier    { return v.id }
func (v fmriVariable) Constraints() []solver.Constraint { return v.constraints }

func newVariable(id solver.Identifier, cs ...solver.Constraint) solver.Variable {
	return fmriVariable{id: id, constraints: cs}
}

// reqCollection is the mutable state threaded through the candidate
// expansion BFS and final variable assembly.
type reqCollection struct {
	state    *imagestate.State
	parent   *imagestate.State
	catalog  CatalogView
	rejected map[string]struct{}

	candidates map[string][]Candidate // stem -> candidates, filtered for reject
	visited    map[string]bool
}

// BuildVariables translates state + req + catalog into the solver.Variable
// set for a single Solve call, expanding the dependency closure of every
// anchored stem (installed-preserved or explicitly requested) so the
// solver has every candidate it might need to satisfy a require/exclude/
// incorporate/conditional/group clause.
func BuildVariables(state *imagestate.State, parent *imagestate.State, req Request, catalog CatalogView) ([]solver.Variable, error) {
	rc := &reqCollection{
		state:      state,
		parent:     parent,
		catalog:    catalog,
		rejected:   toSet(req.Reject),
		candidates: make(map[string][]Candidate),
		visited:    make(map[string]bool),
	}

	anchors, err := anchorStems(state, req)
	if err != nil {
		return nil, err
	}

	queue := append([]string(nil), anchors...)
	for len(queue) > 0 {
		stem := queue[0]
		queue = queue[1:]
		if rc.visited[stem] {
			continue
		}
		rc.visited[stem] = true

		var candidates []Candidate
		if _, rejected := rc.rejected[stem]; !rejected {
			candidates = selectVariants(catalog.CandidatesForStem(stem), req.Variants)
		}
		rc.candidates[stem] = candidates

		for _, c := range candidates {
			targets, err := dependTargetStems(c)
			if err != nil {
				return nil, err
			}
			for _, t := range targets {
				if !rc.visited[t] {
					queue = append(queue, t)
				}
			}
		}
	}

	updateTargets := toSet(nil)
	if req.Kind == OpUpdate {
		updateTargets = toSet(req.Stems)
	}
	uninstallTargets := toSet(nil)
	if req.Kind == OpUninstall {
		uninstallTargets = toSet(req.Stems)
	}

	var variables []solver.Variable
	stems := sortedKeys(rc.candidates)
	for _, stem := range stems {
		candidates := rc.candidates[stem]
		ids := make([]solver.Identifier, len(candidates))
		for i, c := range candidates {
			ids[i] = candidateID(c.FMRI)
		}

		_, mustAdvance := updateTargets[stem]
		_, mustVanish := uninstallTargets[stem]
		installed, hasInstalled := state.Lookup(stem)

		for i, c := range candidates {
			cs, err := constraintsFor(rc, c)
			if err != nil {
				return nil, err
			}
			if i == 0 && len(ids) > 0 {
				cs = append(cs, solver.AtMost(1, ids...))
			}
			if mustAdvance && hasInstalled && c.FMRI.Version.Equal(installed.Version) {
				// An explicit "update" target must resolve to something
				// other than what's already installed - remaining at the
				// same version isn't progress, and staying put would make
				// an otherwise-blocked update silently succeed as a no-op.
				cs = append(cs, solver.Prohibited())
			}
			if mustVanish {
				// An uninstall target may never resolve to any installed
				// version. If some other package that stays installed
				// still requires this stem, its own Dependency constraint
				// now has nothing left to satisfy and the whole request
				// comes back NotSatisfiable, instead of the uninstall
				// silently no-oping because nothing forced the stem out.
				cs = append(cs, solver.Prohibited())
			}
			variables = append(variables, newVariable(candidateID(c.FMRI), cs...))
		}

		if isAnchor(stem, anchors) {
			variables = append(variables, newVariable(stemID(stem), solver.Mandatory(), solver.Dependency(ids...)))
		}
	}

	return variables, nil
}

// anchorStems returns the stems that must resolve to exactly one
// installed version: everything currently installed except uninstall/
// reject targets, plus every install/update target.
func anchorStems(state *imagestate.State, req Request) ([]string, error) {
	rejected := toSet(req.Reject)
	uninstall := toSet(nil)
	if req.Kind == OpUninstall {
		uninstall = toSet(req.Stems)
	}

	var out []string
	seen := map[string]struct{}{}
	add := func(stem string) {
		if _, ok := seen[stem]; ok {
			return
		}
		seen[stem] = struct{}{}
		out = append(out, stem)
	}

	for stem := range state.Installed {
		if !state.IsInstalled(stem) {
			continue // obsolete entries are not re-anchored
		}
		if _, ok := uninstall[stem]; ok {
			continue
		}
		if _, ok := rejected[stem]; ok {
			continue
		}
		add(stem)
	}

	switch req.Kind {
	case OpInstall, OpUpdate:
		for _, stem := range req.Stems {
			if _, ok := rejected[stem]; ok {
				return nil, fmt.Errorf("resolve: stem %q is both requested and rejected", stem)
			}
			add(stem)
		}
	case OpUpdateAll, OpChangeVarcets, OpSync:
		// Neither changes which stems are installed - update-all lets
		// every anchored stem float to a newer version, change-varcets
		// only changes which of an already-installed package's actions
		// apply, and sync re-evaluates every depend.Parent constraint
		// against the parent's current state - so anchors already cover
		// everything these three need.
	}

	sort.Strings(out)
	return out, nil
}

// selectVariants filters each candidate's manifest through variants
// before it ever reaches dependTargetStems/constraintsFor, so a
// depend action gated by a `variant.*` attribute the image doesn't carry
// is excluded from the solver encoding exactly as pkg/planexec's own
// Manifest.SelectVariants excludes it from the delivered plan. The
// original, unfiltered Manifest the caller fetched from CatalogView is
// left untouched - this only governs what BuildVariables itself derives.
func selectVariants(candidates []Candidate, variants map[string]string) []Candidate {
	if len(variants) == 0 {
		return candidates
	}
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		c.Manifest = c.Manifest.SelectVariants(variants)
		out[i] = c
	}
	return out
}

func isAnchor(stem string, anchors []string) bool {
	for _, a := range anchors {
		if a == stem {
			return true
		}
	}
	return false
}

// dependTargetStems extracts every stem a candidate's depend actions
// might pull into the solve, so the BFS can fetch their candidates too.
func dependTargetStems(c Candidate) ([]string, error) {
	var out []string
	for _, a := range c.Manifest.Actions {
		if a.Kind != action.Depend {
			continue
		}
		d, err := depend.Parse(a, c.FMRI)
		if err != nil {
			return nil, fmt.Errorf("resolve: %s: %w", c.FMRI, err)
		}
		switch d.Type {
		case depend.Require, depend.RequireAny, depend.Group, depend.GroupAny, depend.Exclude, depend.Optional, depend.Incorporate:
			for _, t := range d.Targets {
				out = append(out, t.Stem)
			}
		case depend.Conditional:
			out = append(out, d.Targets[0].Stem, d.Predicate.Stem)
		case depend.Origin, depend.Parent:
			// Evaluated against fixed, already-known state; never
			// widens the candidate search.
		}
	}
	return out, nil
}

func toSet(stems []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stems))
	for _, s := range stems {
		m[s] = struct{}{}
	}
	return m
}

func sortedKeys(m map[string][]Candidate) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
