package main

import (
	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/manifest"
	"github.com/solarisips/pkgclient/pkg/planexec"
	"github.com/solarisips/pkgclient/pkg/resolve"
	"github.com/solarisips/pkgclient/pkg/solver"
)

// candidateByID finds the Candidate among view's known stems whose
// resolve.CandidateID matches id - the only way to recover an FMRI from
// a solver.Variable, since Identifier is an opaque string to the solver
// layer itself.
func candidateByID(view resolve.CatalogView, stems []string, id solver.Identifier) (resolve.Candidate, bool) {
	for _, stem := range stems {
		for _, c := range view.CandidatesForStem(stem) {
			if resolve.CandidateID(c.FMRI) == id {
				return c, true
			}
		}
	}
	return resolve.Candidate{}, false
}

// currentPackages builds the planexec.Package map for everything
// installed in state, pulling each package's manifest from view so
// BuildPlan can diff against it.
func currentPackages(state *imagestate.State, view resolve.CatalogView) map[string]planexec.Package {
	out := make(map[string]planexec.Package, len(state.Installed))
	for stem, entry := range state.Installed {
		m := manifest.Manifest{}
		for _, c := range view.CandidatesForStem(stem) {
			if c.FMRI.Equal(entry.FMRI) {
				m = c.Manifest
				break
			}
		}
		out[stem] = planexec.Package{FMRI: entry.FMRI, Manifest: m}
	}
	return out
}

// targetPackages turns a solver's chosen variables into the
// planexec.Package map BuildPlan's target side expects, resolving each
// fmri:... identifier against every stem named in allStems.
func targetPackages(vars []solver.Variable, view resolve.CatalogView, allStems []string) map[string]planexec.Package {
	out := make(map[string]planexec.Package)
	for _, v := range vars {
		c, ok := candidateByID(view, allStems, v.Identifier())
		if !ok {
			continue
		}
		out[c.FMRI.Stem] = planexec.Package{FMRI: c.FMRI, Manifest: c.Manifest}
	}
	return out
}
