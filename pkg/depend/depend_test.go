package depend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/fmri"
)

func mustFMRI(t *testing.T, s string) fmri.FMRI {
	t.Helper()
	f, err := fmri.Parse(s)
	require.NoError(t, err)
	return f
}

func TestParseRequire(t *testing.T) {
	pkg := mustFMRI(t, "pkg://test/my_pkg@1.0")
	a, err := action.Parse(`depend fmri=pkg:/example_pkg@1.0 type=require`)
	require.NoError(t, err)
	d, err := Parse(a, pkg)
	require.NoError(t, err)
	assert.Equal(t, Require, d.Type)
	require.Len(t, d.Targets, 1)
	assert.Equal(t, "example_pkg", d.Targets[0].Stem)
}

func TestParseSelfPlaceholder(t *testing.T) {
	pkg := mustFMRI(t, "pkg://test/my_pkg@1.0")
	a, err := action.Parse(`depend fmri=feature/package/dependency/self type=parent`)
	require.NoError(t, err)
	d, err := Parse(a, pkg)
	require.NoError(t, err)
	assert.True(t, d.Targets[0].Equal(pkg))
	assert.True(t, d.TargetsSelf(pkg))
}

func TestParseRequireAnyAllowsMultiple(t *testing.T) {
	pkg := mustFMRI(t, "pkg://test/my_pkg@1.0")
	a, err := action.Parse(`depend fmri=pkg:/a@1.0 fmri=pkg:/b@1.0 type=require-any`)
	require.NoError(t, err)
	d, err := Parse(a, pkg)
	require.NoError(t, err)
	assert.Len(t, d.Targets, 2)
}

func TestParseRejectsMultipleForRequire(t *testing.T) {
	pkg := mustFMRI(t, "pkg://test/my_pkg@1.0")
	a, err := action.Parse(`depend fmri=pkg:/a@1.0 fmri=pkg:/b@1.0 type=require`)
	require.NoError(t, err)
	_, err = Parse(a, pkg)
	assert.Error(t, err)
}

func TestParseConditionalRequiresPredicate(t *testing.T) {
	pkg := mustFMRI(t, "pkg://test/my_pkg@1.0")
	a, err := action.Parse(`depend fmri=pkg:/a@1.0 type=conditional`)
	require.NoError(t, err)
	_, err = Parse(a, pkg)
	assert.Error(t, err)

	a2, err := action.Parse(`depend fmri=pkg:/a@1.0 type=conditional predicate=pkg:/b@1.0`)
	require.NoError(t, err)
	d, err := Parse(a2, pkg)
	require.NoError(t, err)
	assert.Equal(t, "b", d.Predicate.Stem)
}

func TestParseRootImageOnlyOnOrigin(t *testing.T) {
	pkg := mustFMRI(t, "pkg://test/my_pkg@1.0")
	a, err := action.Parse(`depend fmri=pkg:/a@1.0 type=require root-image=true`)
	require.NoError(t, err)
	_, err = Parse(a, pkg)
	assert.Error(t, err)

	a2, err := action.Parse(`depend fmri=pkg:/a@1.0 type=origin root-image=true`)
	require.NoError(t, err)
	d, err := Parse(a2, pkg)
	require.NoError(t, err)
	assert.True(t, d.RootImage)
}

func TestParseUnknownTypeRejected(t *testing.T) {
	pkg := mustFMRI(t, "pkg://test/my_pkg@1.0")
	a, err := action.Parse(`depend fmri=pkg:/a@1.0 type=bogus`)
	require.NoError(t, err)
	_, err = Parse(a, pkg)
	assert.Error(t, err)
}
