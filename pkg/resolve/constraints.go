package resolve

import (
	"fmt"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/depend"
	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/solver"
)

// constraintsFor translates every depend action in c's manifest into
// solver.Constraints attached to c's own candidate Variable, per the
// type table in spec.md §3.
func constraintsFor(rc *reqCollection, c Candidate) ([]solver.Constraint, error) {
	var out []solver.Constraint
	for _, a := range c.Manifest.Actions {
		if a.Kind != action.Depend {
			continue
		}
		d, err := depend.Parse(a, c.FMRI)
		if err != nil {
			return nil, fmt.Errorf("resolve: %s: %w", c.FMRI, err)
		}
		switch d.Type {
		case depend.Require:
			ids := acceptableIDs(rc, d.Targets[0], false)
			out = append(out, solver.Dependency(ids...))
		case depend.RequireAny:
			var ids []solver.Identifier
			for _, t := range d.Targets {
				ids = append(ids, acceptableIDs(rc, t, false)...)
			}
			out = append(out, solver.Dependency(ids...))
		case depend.Exclude:
			for _, id := range acceptableIDs(rc, d.Targets[0], true) {
				out = append(out, solver.Conflict(id))
			}
		case depend.Optional:
			for _, id := range unacceptableIDs(rc, d.Targets[0]) {
				out = append(out, solver.Conflict(id))
			}
		case depend.Incorporate:
			for _, other := range rc.candidates[d.Targets[0].Stem] {
				if !other.FMRI.Version.SatisfiesIncorporation(d.Targets[0].Version) {
					out = append(out, solver.Conflict(candidateID(other.FMRI)))
				}
			}
		case depend.Conditional:
			targetIDs := acceptableIDs(rc, d.Targets[0], false)
			for _, predID := range acceptableIDs(rc, d.Predicate, true) {
				out = append(out, solver.ConditionalDependency(predID, targetIDs...))
			}
		case depend.Group:
			if rc.state.IsAvoided(d.Targets[0].Stem) {
				continue
			}
			ids := acceptableIDs(rc, d.Targets[0], true)
			out = append(out, solver.Dependency(ids...))
		case depend.GroupAny:
			anyAvoided := false
			for _, t := range d.Targets {
				if rc.state.IsAvoided(t.Stem) {
					anyAvoided = true
					break
				}
			}
			if anyAvoided {
				continue
			}
			var ids []solver.Identifier
			for _, t := range d.Targets {
				ids = append(ids, acceptableIDs(rc, t, true)...)
			}
			out = append(out, solver.Dependency(ids...))
		case depend.Origin:
			base := rc.state
			if d.RootImage {
				base = nil // evaluate against "/": no pkg state tracked here, treated as always-satisfied.
			}
			if base != nil {
				if installed, ok := base.Lookup(d.Targets[0].Stem); !ok || !installed.Satisfies(d.Targets[0], fmri.ConstraintNone) {
					out = append(out, solver.Prohibited())
				}
			}
		case depend.Parent:
			if rc.parent == nil {
				continue // ignored if image has no parent, per §4.3.
			}
			target := d.Targets[0]
			mode := fmri.ConstraintNone
			strictEqual := d.TargetsSelf(c.FMRI)
			installed, ok := rc.parent.Lookup(target.Stem)
			satisfied := ok && (strictEqual && installed.Version.Equal(target.Version) || !strictEqual && installed.Satisfies(target, mode))
			if !satisfied {
				out = append(out, solver.Prohibited())
			}
		}
	}
	return out, nil
}

// acceptableIDs returns the candidate identifiers of target.Stem that
// satisfy target as a successor under CONSTRAINT_NONE. Obsolete
// candidates are excluded unless allowObsolete is set (group/group-any
// per §3 table; require/require-any never accept an obsolete-only
// satisfier - "required dependency on obsolete").
func acceptableIDs(rc *reqCollection, target fmri.FMRI, allowObsolete bool) []solver.Identifier {
	var ids []solver.Identifier
	for _, c := range rc.candidates[target.Stem] {
		if c.Obsolete && !allowObsolete {
			continue
		}
		if c.FMRI.Satisfies(target, fmri.ConstraintNone) {
			ids = append(ids, candidateID(c.FMRI))
		}
	}
	return ids
}

// unacceptableIDs returns the candidate identifiers of target.Stem that
// do NOT satisfy target as a successor - the versions an `optional`
// depend forbids coexisting with.
func unacceptableIDs(rc *reqCollection, target fmri.FMRI) []solver.Identifier {
	var ids []solver.Identifier
	for _, c := range rc.candidates[target.Stem] {
		if !c.FMRI.Satisfies(target, fmri.ConstraintNone) {
			ids = append(ids, candidateID(c.FMRI))
		}
	}
	return ids
}
