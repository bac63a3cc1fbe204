package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarisips/pkgclient/pkg/fmri"
)

func TestBuildCandidateViewGroupsByStemLatestFirst(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	part := Part{Name: BasePart, Lines: []string{
		"set name=pkg.fmri value=pkg://test/example_pkg@1.0,5.11-0",
		"set name=pkg.fmri value=pkg://test/example_pkg@1.1,5.11-0",
		"set name=pkg.fmri value=pkg://test/other_pkg@2.0,5.11-0",
	}}
	require.NoError(t, store.SavePart(part))

	view, err := BuildCandidateView(store, nil)
	require.NoError(t, err)

	cands := view.CandidatesForStem("example_pkg")
	require.Len(t, cands, 2)
	assert.Equal(t, "1.1,5.11-0", cands[0].FMRI.Version.String())
	assert.Equal(t, "1.0,5.11-0", cands[1].FMRI.Version.String())

	assert.Len(t, view.CandidatesForStem("other_pkg"), 1)
	assert.Empty(t, view.CandidatesForStem("nonexistent"))
}

type fakeManifestFetcher map[string][]byte

func (f fakeManifestFetcher) FetchManifest(_ context.Context, fm fmri.FMRI) ([]byte, error) {
	return f[fm.String()], nil
}

func TestCandidateViewFetchesAndCachesManifests(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	target := "pkg://test/example_pkg@1.0,5.11-0"
	require.NoError(t, store.SavePart(Part{Name: BasePart, Lines: []string{
		"set name=pkg.fmri value=" + target,
	}}))

	f, err := fmri.Parse(target)
	require.NoError(t, err)

	fetcher := fakeManifestFetcher{f.String(): []byte("dir path=usr/bin\n")}
	view, err := BuildCandidateView(store, fetcher)
	require.NoError(t, err)

	cands := view.CandidatesForStem("example_pkg")
	require.Len(t, cands, 1)
	require.Len(t, cands[0].Manifest.Actions, 1)
	assert.Equal(t, "usr/bin", cands[0].Manifest.Actions[0].Attrs.Get("path"))
}
