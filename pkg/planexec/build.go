package planexec

import (
	"sort"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/manifest"
)

// BuildPlan diffs current against target (both keyed by stem) and returns
// the ordered Plan to get from one to the other. variants/facets are the
// image's effective settings: variant-mismatched actions are elided
// before diffing (they were never delivered to this image), and
// facet-disabled actions are kept in the manifest but excluded from the
// plan's Install steps (manifest.Manifest.FacetEnabled - they remain
// "known" to the image without being written to disk).
func BuildPlan(current, target map[string]Package, variants map[string]string, facets map[string]bool) *Plan {
	stems := make(map[string]struct{}, len(current)+len(target))
	for stem := range current {
		stems[stem] = struct{}{}
	}
	for stem := range target {
		stems[stem] = struct{}{}
	}

	var adds, removes []Step
	for _, stem := range sortedStems(stems) {
		oldPkg, hadOld := current[stem]
		newPkg, hasNew := target[stem]

		oldManifest := manifest.Manifest{}
		if hadOld {
			oldManifest = oldPkg.Manifest.SelectVariants(variants)
		}
		newManifest := manifest.Manifest{}
		if hasNew {
			newManifest = newPkg.Manifest.SelectVariants(variants)
		}

		diff := oldManifest.Diff(newManifest)

		for _, a := range diff.Added {
			if newManifest.FacetEnabled(a, facets) {
				adds = append(adds, Step{Phase: PhaseInstall, FMRI: newPkg.FMRI, Action: a})
				if a.Kind == action.Driver {
					adds = append(adds, Step{Phase: PhasePostInstall, FMRI: newPkg.FMRI, Action: a})
				}
			}
		}
		for _, c := range diff.Changed {
			removes = append(removes, Step{Phase: PhaseRemove, FMRI: oldPkg.FMRI, Action: c.Old})
			if newManifest.FacetEnabled(c.New, facets) {
				adds = append(adds, Step{Phase: PhaseInstall, FMRI: newPkg.FMRI, Action: c.New})
			}
		}
		for _, a := range diff.Removed {
			removes = append(removes, Step{Phase: PhaseRemove, FMRI: oldPkg.FMRI, Action: a})
			if a.Kind == action.Driver {
				removes = append(removes, Step{Phase: PhasePreRemove, FMRI: oldPkg.FMRI, Action: a})
			}
		}
	}

	sortPhaseSteps(adds)
	sortPhaseSteps(removes)

	var steps []Step
	for _, phase := range []Phase{PhasePreInstall, PhaseInstall, PhasePostInstall} {
		for _, s := range adds {
			if s.Phase == phase {
				steps = append(steps, s)
			}
		}
	}
	for _, phase := range []Phase{PhasePreRemove, PhaseRemove, PhasePostRemove} {
		for _, s := range removes {
			if s.Phase == phase {
				steps = append(steps, s)
			}
		}
	}

	return &Plan{Steps: steps}
}

func sortPhaseSteps(steps []Step) {
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].Phase != steps[j].Phase {
			return phaseRank(steps[i].Phase) < phaseRank(steps[j].Phase)
		}
		return lessForPhase(steps[i].Phase, steps[i].Action, steps[j].Action)
	})
}

func phaseRank(p Phase) int {
	for i, ph := range Phases {
		if ph == p {
			return i
		}
	}
	return len(Phases)
}

func sortedStems(stems map[string]struct{}) []string {
	out := make([]string, 0, len(stems))
	for s := range stems {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
