package search

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/manifest"
)

func mustFMRI(t *testing.T, s string) fmri.FMRI {
	t.Helper()
	f, err := fmri.Parse(s)
	require.NoError(t, err)
	return f
}

func fileAction(path, hash string) action.Action {
	a := action.New(action.File)
	a.Attrs.Set("path", path)
	a.Hash = hash
	return a
}

func sampleEntries(t *testing.T) []Entry {
	t.Helper()
	return []Entry{
		{
			FMRI:     mustFMRI(t, "pkg://test/example_pkg@1.0,5.11-0"),
			Manifest: manifest.New([]action.Action{fileAction("usr/bin/example", "abc123")}),
		},
		{
			FMRI:     mustFMRI(t, "pkg://test/other_pkg@2.0,5.11-0"),
			Manifest: manifest.New([]action.Action{fileAction("usr/bin/other", "def456")}),
		},
	}
}

func TestBuildThenSearchFindsToken(t *testing.T) {
	store := NewStore(t.TempDir())
	entries := sampleEntries(t)
	stats, err := store.Build(entries)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Value.Packages)

	q, err := ParseQuery("example")
	require.NoError(t, err)

	out, err := Search(store, q, entries, 10)
	require.NoError(t, err)
	assert.Empty(t, out.Diagnostics)
	require.Len(t, out.Value, 1)
	assert.Equal(t, "example_pkg", out.Value[0].FMRI.Stem)
}

func TestSearchDegradedModeOnMissingIndex(t *testing.T) {
	store := NewStore(t.TempDir())
	entries := sampleEntries(t)

	q, err := ParseQuery("other")
	require.NoError(t, err)

	out, err := Search(store, q, entries, 10)
	require.NoError(t, err)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, DiagSlowSearchUsed, out.Diagnostics[0].Code)
	require.Len(t, out.Value, 1)
	assert.Equal(t, "other_pkg", out.Value[0].FMRI.Stem)
}

func TestSearchDetectsHashMismatch(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	entries := sampleEntries(t)
	_, err := store.Build(entries)
	require.NoError(t, err)

	// Corrupt the recorded hash without touching full_fmri_list itself,
	// simulating the "restored from backup" / partial-write case §4.4
	// names IncorrectIndexFileHash for.
	require.NoError(t, writeAtomic(dir, FullFMRIListHash, []byte("not-a-real-hash\n")))

	q, err := ParseQuery("example")
	require.NoError(t, err)
	out, err := Search(store, q, entries, 10)
	require.NoError(t, err)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, DiagIncorrectIndexFileHash, out.Diagnostics[0].Code)
	require.Len(t, out.Value, 1)
}

func TestFastAddOverlayFindsUnrebuiltPackage(t *testing.T) {
	store := NewStore(t.TempDir())
	entries := sampleEntries(t)
	_, err := store.Build(entries)
	require.NoError(t, err)

	added := mustFMRI(t, "pkg://test/fresh_pkg@1.0,5.11-0")
	require.NoError(t, store.AddFast(added))
	all := append(append([]Entry{}, entries...), Entry{
		FMRI:     added,
		Manifest: manifest.New([]action.Action{fileAction("usr/bin/fresh", "aa11")}),
	})

	q, err := ParseQuery("fresh")
	require.NoError(t, err)
	out, err := Search(store, q, all, 10)
	require.NoError(t, err)
	require.Len(t, out.Value, 1)
	assert.Equal(t, "fresh_pkg", out.Value[0].FMRI.Stem)
}

func TestShouldRebuildTriggersPastThreshold(t *testing.T) {
	store := NewStore(t.TempDir())
	for i := 0; i < 11; i++ {
		require.NoError(t, store.AddFast(mustFMRI(t, fmt.Sprintf("pkg://test/p%d@1.0,5.11-0", i))))
	}
	pending, err := store.PendingFastAdds()
	require.NoError(t, err)
	assert.True(t, ShouldRebuild(len(pending), 10, false))
	assert.False(t, ShouldRebuild(5, 10, false))
	assert.True(t, ShouldRebuild(0, 10, true))
}

func TestParseQueryBooleanAndField(t *testing.T) {
	q, err := ParseQuery(`*:file::abc123 AND example`)
	require.NoError(t, err)
	require.Equal(t, OpAnd, q.Op)
	assert.True(t, q.Left.IsField)
	assert.Equal(t, "abc123", q.Left.Field.Value)
	assert.Equal(t, "file", q.Left.Field.Action)
	assert.Equal(t, "*", q.Left.Field.Pkg)
}

func TestParseQueryPackageWrapper(t *testing.T) {
	q, err := ParseQuery(`<example*>`)
	require.NoError(t, err)
	assert.True(t, q.PackageWrapper)
	assert.Equal(t, "example*", q.Term)
}

func TestParseQueryRejectsMixedPackageAndActionBoolean(t *testing.T) {
	_, err := ParseQuery(`<example*> AND other`)
	assert.ErrorIs(t, err, ErrMixedQuery)
}

func TestIndexSearchFlagsFingerprintDrift(t *testing.T) {
	dir := t.TempDir()
	idx := NewIndex(NewStore(dir), nil)
	entries := sampleEntries(t)

	state := imagestate.New("/image")
	state.Installed["example_pkg"] = imagestate.InstalledEntry{FMRI: entries[0].FMRI, State: imagestate.StateInstalled}

	_, err := idx.Build(entries, state)
	require.NoError(t, err)

	q, err := ParseQuery("example")
	require.NoError(t, err)
	out, err := idx.Search(q, entries, state, 10)
	require.NoError(t, err)
	assert.Empty(t, out.Diagnostics)

	state.Installed["other_pkg"] = imagestate.InstalledEntry{FMRI: entries[1].FMRI, State: imagestate.StateInstalled}
	out, err = idx.Search(q, entries, state, 10)
	require.NoError(t, err)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, DiagIncorrectIndexFileHash, out.Diagnostics[0].Code)
}

func TestMatchesGlob(t *testing.T) {
	assert.True(t, Matches("example*", "example_pkg"))
	assert.False(t, Matches("example*", "other_pkg"))
	assert.True(t, Matches("exact", "exact"))
}
