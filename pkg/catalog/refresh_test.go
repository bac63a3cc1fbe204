package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarisips/pkgclient/pkg/transport"
)

type fakeFetcher struct {
	parts map[string][]byte
	err   error
}

func (f *fakeFetcher) FetchCatalogPart(ctx context.Context, origins []transport.Origin, name string, cc transport.CacheControl) (transport.FetchResult, error) {
	if f.err != nil {
		return transport.FetchResult{}, f.err
	}
	body, ok := f.parts[name]
	if !ok {
		return transport.FetchResult{}, transport.ErrNotFound
	}
	return transport.FetchResult{Body: body}, nil
}

func TestRefreshEmptyPublisherOn404(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	fetcher := &fakeFetcher{parts: map[string][]byte{}}
	res, err := Refresh(context.Background(), store, fetcher, []transport.Origin{{URL: "http://example"}}, "test")
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmpty, res.Outcome)
}

func TestRefreshFullWhenNoLocalCatalog(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	base := Part{Name: BasePart, Lines: []string{"set name=pkg.fmri value=pkg://test/foo@1.0"}}
	attrs := Attrs{
		Version:      1,
		LastModified: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PackageCount: 1,
		Parts: map[string]PartMeta{
			BasePart: {SignatureSHA1: base.Signature(), LastModified: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
	attrsBytes, err := MarshalAttrs(attrs)
	require.NoError(t, err)

	fetcher := &fakeFetcher{parts: map[string][]byte{
		AttrsFile: attrsBytes,
		BasePart:  base.Render(),
	}}

	res, err := Refresh(context.Background(), store, fetcher, []transport.Origin{{URL: "http://example"}}, "test")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFull, res.Outcome)

	got, err := store.LoadPart(BasePart)
	require.NoError(t, err)
	assert.Equal(t, base.Signature(), got.Signature())
}

func TestRefreshIncrementalAppliesUpdateLog(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	oldTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newTime := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	localBase := Part{Name: BasePart, Lines: []string{"set name=pkg.fmri value=pkg://test/foo@1.0"}}
	require.NoError(t, store.SavePart(localBase))
	require.NoError(t, store.SaveAttrs(Attrs{
		Version:      1,
		LastModified: oldTime,
		Parts: map[string]PartMeta{
			BasePart: {SignatureSHA1: localBase.Signature(), LastModified: oldTime},
		},
	}))

	updatedBase := Part{Name: BasePart, Lines: append(append([]string{}, localBase.Lines...), "set name=pkg.fmri value=pkg://test/bar@1.0")}
	updateLogName := "update.20260102T000000Z"
	updateLogBody := []byte("+set name=pkg.fmri value=pkg://test/bar@1.0\n")

	remoteAttrs := Attrs{
		Version:      2,
		LastModified: newTime,
		Parts: map[string]PartMeta{
			BasePart: {SignatureSHA1: updatedBase.Signature(), LastModified: newTime},
		},
		UpdateOrder: []string{updateLogName},
		Updates: map[string]PartMeta{
			updateLogName: {LastModified: newTime},
		},
	}
	remoteAttrsBytes, err := MarshalAttrs(remoteAttrs)
	require.NoError(t, err)

	fetcher := &fakeFetcher{parts: map[string][]byte{
		AttrsFile:     remoteAttrsBytes,
		updateLogName: updateLogBody,
	}}

	res, err := Refresh(context.Background(), store, fetcher, []transport.Origin{{URL: "http://example"}}, "test")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIncremental, res.Outcome)

	got, err := store.LoadPart(BasePart)
	require.NoError(t, err)
	assert.Equal(t, updatedBase.Signature(), got.Signature())
}

func TestRefreshRollbackForcesFull(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	future := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	base := Part{Name: BasePart, Lines: []string{"set name=pkg.fmri value=pkg://test/foo@1.0"}}
	require.NoError(t, store.SavePart(base))
	require.NoError(t, store.SaveAttrs(Attrs{
		Version:      5,
		LastModified: future, // local claims to be newer than server: rollback
		Parts: map[string]PartMeta{
			BasePart: {SignatureSHA1: base.Signature(), LastModified: future},
		},
	}))

	remoteAttrs := Attrs{
		Version:      2,
		LastModified: past,
		Parts: map[string]PartMeta{
			BasePart: {SignatureSHA1: base.Signature(), LastModified: past},
		},
	}
	remoteAttrsBytes, err := MarshalAttrs(remoteAttrs)
	require.NoError(t, err)

	fetcher := &fakeFetcher{parts: map[string][]byte{
		AttrsFile: remoteAttrsBytes,
		BasePart:  base.Render(),
	}}

	res, err := Refresh(context.Background(), store, fetcher, []transport.Origin{{URL: "http://example"}}, "test")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFull, res.Outcome)
}

func TestPartSignatureStableUnderLineOrder(t *testing.T) {
	a := Part{Name: BasePart, Lines: []string{"b", "a", "c"}}
	b := Part{Name: BasePart, Lines: []string{"a", "b", "c"}}
	assert.Equal(t, a.Signature(), b.Signature())
}
