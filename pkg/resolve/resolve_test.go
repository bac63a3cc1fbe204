package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/manifest"
	"github.com/solarisips/pkgclient/pkg/solver"
)

type fakeCatalog map[string][]Candidate

func (f fakeCatalog) CandidatesForStem(stem string) []Candidate { return f[stem] }

func mustFMRI(t *testing.T, s string) fmri.FMRI {
	t.Helper()
	f, err := fmri.Parse(s)
	require.NoError(t, err)
	return f
}

func dependAction(t *testing.T, typ, target string) action.Action {
	t.Helper()
	a := action.New(action.Depend)
	a.Attrs.Add("type", typ)
	a.Attrs.Add("fmri", target)
	return a
}

func TestBasicInstall(t *testing.T) {
	examplePkg := mustFMRI(t, "pkg://test/example_pkg@1.0,5.11-0")
	catalog := fakeCatalog{
		"example_pkg": {{FMRI: examplePkg, Manifest: manifest.New(nil), PublisherRank: 0}},
	}

	state := imagestate.New("/")
	req := Request{Kind: OpInstall, Stems: []string{"example_pkg"}}

	vars, err := BuildVariables(state, nil, req, catalog)
	require.NoError(t, err)

	s, err := solver.New(solver.WithInput(vars))
	require.NoError(t, err)
	result, err := s.Solve(context.Background())
	require.NoError(t, err)

	assert.Contains(t, identifiers(result), candidateID(examplePkg))
}

func TestIncorporationConstrainsUpdate(t *testing.T) {
	incorp10 := mustFMRI(t, "pkg://test/incorp_pkg@1.0,5.11-0")
	example10 := mustFMRI(t, "pkg://test/example_pkg@1.0,5.11-0")
	example11 := mustFMRI(t, "pkg://test/example_pkg@1.1,5.11-0")

	incorpManifest := manifest.New([]action.Action{dependAction(t, "incorporate", "example_pkg@1.0,5.11-0")})

	catalog := fakeCatalog{
		"incorp_pkg":  {{FMRI: incorp10, Manifest: incorpManifest}},
		"example_pkg": {{FMRI: example11}, {FMRI: example10}},
	}

	state := imagestate.New("/")
	state.Put("incorp_pkg", incorp10, imagestate.StateInstalled)
	state.Put("example_pkg", example10, imagestate.StateInstalled)

	req := Request{Kind: OpUpdate, Stems: []string{"example_pkg"}}
	vars, err := BuildVariables(state, nil, req, catalog)
	require.NoError(t, err)

	s, err := solver.New(solver.WithInput(vars))
	require.NoError(t, err)
	_, err = s.Solve(context.Background())
	require.Error(t, err)

	var ns solver.NotSatisfiable
	require.ErrorAs(t, err, &ns)
	be := FromNotSatisfiable(ns)
	assert.Contains(t, be.Packages, "incorp_pkg")
}

func TestUninstallStillRequiredFails(t *testing.T) {
	leafPkg := mustFMRI(t, "pkg://test/leaf_pkg@1.0,5.11-0")
	rootPkg := mustFMRI(t, "pkg://test/root_pkg@1.0,5.11-0")

	rootManifest := manifest.New([]action.Action{dependAction(t, "require", "leaf_pkg")})

	catalog := fakeCatalog{
		"leaf_pkg": {{FMRI: leafPkg}},
		"root_pkg": {{FMRI: rootPkg, Manifest: rootManifest}},
	}

	state := imagestate.New("/")
	state.Put("leaf_pkg", leafPkg, imagestate.StateInstalled)
	state.Put("root_pkg", rootPkg, imagestate.StateInstalled)

	req := Request{Kind: OpUninstall, Stems: []string{"leaf_pkg"}}
	vars, err := BuildVariables(state, nil, req, catalog)
	require.NoError(t, err)

	s, err := solver.New(solver.WithInput(vars))
	require.NoError(t, err)
	_, err = s.Solve(context.Background())
	require.Error(t, err)

	var ns solver.NotSatisfiable
	require.ErrorAs(t, err, &ns)
}

func TestUninstallUnrequiredLeafSucceeds(t *testing.T) {
	leafPkg := mustFMRI(t, "pkg://test/leaf_pkg@1.0,5.11-0")

	catalog := fakeCatalog{
		"leaf_pkg": {{FMRI: leafPkg}},
	}

	state := imagestate.New("/")
	state.Put("leaf_pkg", leafPkg, imagestate.StateInstalled)

	req := Request{Kind: OpUninstall, Stems: []string{"leaf_pkg"}}
	vars, err := BuildVariables(state, nil, req, catalog)
	require.NoError(t, err)

	s, err := solver.New(solver.WithInput(vars))
	require.NoError(t, err)
	result, err := s.Solve(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, identifiers(result), candidateID(leafPkg))
}

func identifiers(vars []solver.Variable) []solver.Identifier {
	out := make([]solver.Identifier, len(vars))
	for i, v := range vars {
		out[i] = v.Identifier()
	}
	return out
}
