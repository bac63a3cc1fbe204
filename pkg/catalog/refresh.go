package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/solarisips/pkgclient/pkg/metrics"
	"github.com/solarisips/pkgclient/pkg/pkgerrors"
	"github.com/solarisips/pkgclient/pkg/transport"
)

// PartFetcher is the narrow transport capability Refresh needs: fetching
// a named catalog part or attrs file from a publisher's origins. The
// transport.Client in pkg/transport satisfies this by method shape.
type PartFetcher interface {
	FetchCatalogPart(ctx context.Context, origins []transport.Origin, name string, cc transport.CacheControl) (transport.FetchResult, error)
}

// Outcome names how a Refresh concluded.
type Outcome string

const (
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeIncremental Outcome = "incremental"
	OutcomeFull        Outcome = "full"
	OutcomeEmpty       Outcome = "empty"
)

// Result is the summary of one Refresh call.
type Result struct {
	Outcome Outcome
	Attrs   Attrs
}

// Refresh implements spec.md §4.2's client refresh protocol:
//
//  1. GET catalog.attrs. A 404 means an empty publisher.
//  2. Compare last-modified against the local copy; equal means done.
//  3. Decide FULL refresh if there is no local catalog, the local
//     last-modified is newer than the server's (rollback), or a locally
//     cached part fails its recorded signature (corruption).
//  4. Otherwise apply update logs dated after the local last-modified,
//     in order, and verify the resulting signature; a mismatch falls
//     back to FULL.
//  5. Persist the new catalog.attrs (and any rewritten parts) via
//     write-then-rename.
func Refresh(ctx context.Context, store *Store, fetcher PartFetcher, origins []transport.Origin, publisher string) (Result, error) {
	local, err := store.LoadAttrs()
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.KindCatalog, err, "load local catalog.attrs")
	}

	cc := transport.CacheControl{}
	if local.Empty() {
		cc.NoCache = true
	} else {
		cc.HasIfModifiedSince = true
		cc.IfModifiedSince = local.LastModified
	}

	res, err := fetcher.FetchCatalogPart(ctx, origins, AttrsFile, cc)
	if transport.IsNotFound(err) {
		metrics.EmitCatalogRefresh(publisher, "empty")
		return Result{Outcome: OutcomeEmpty}, nil
	}
	if transport.IsNotModified(err) {
		metrics.EmitCatalogRefresh(publisher, "unchanged")
		return Result{Outcome: OutcomeUnchanged, Attrs: local}, nil
	}
	if err != nil {
		metrics.EmitCatalogRefresh(publisher, "error")
		return Result{}, pkgerrors.Wrap(pkgerrors.KindTransport, err, "fetch catalog.attrs")
	}

	remote, err := UnmarshalAttrs(res.Body)
	if err != nil {
		metrics.EmitCatalogRefresh(publisher, "error")
		return Result{}, pkgerrors.Wrap(pkgerrors.KindCatalog, err, "parse remote catalog.attrs")
	}
	if !local.Empty() && remote.LastModified.Equal(local.LastModified) {
		metrics.EmitCatalogRefresh(publisher, "unchanged")
		return Result{Outcome: OutcomeUnchanged, Attrs: local}, nil
	}

	if needsFullRefresh(store, local, remote) {
		if err := fullRefresh(ctx, store, fetcher, origins, remote); err != nil {
			metrics.EmitCatalogRefresh(publisher, "error")
			return Result{}, err
		}
		metrics.EmitCatalogRefresh(publisher, "full")
		return Result{Outcome: OutcomeFull, Attrs: remote}, nil
	}

	if err := incrementalRefresh(ctx, store, fetcher, origins, local, remote); err != nil {
		// Fall back to a full refresh rather than leave a half-applied
		// catalog in place.
		if fbErr := fullRefresh(ctx, store, fetcher, origins, remote); fbErr != nil {
			metrics.EmitCatalogRefresh(publisher, "error")
			return Result{}, fbErr
		}
		metrics.EmitCatalogRefresh(publisher, "full")
		return Result{Outcome: OutcomeFull, Attrs: remote}, nil
	}
	metrics.EmitCatalogRefresh(publisher, "incremental")
	return Result{Outcome: OutcomeIncremental, Attrs: remote}, nil
}

// needsFullRefresh reports whether the local catalog can't be trusted to
// incrementally update: absent, rolled back relative to the server, or
// locally corrupted (recorded signature no longer matches on-disk
// content).
func needsFullRefresh(store *Store, local, remote Attrs) bool {
	if local.Empty() {
		return true
	}
	if local.LastModified.After(remote.LastModified) {
		return true
	}
	for name, meta := range local.Parts {
		part, err := store.LoadPart(name)
		if err != nil {
			return true
		}
		if part.Signature() != meta.SignatureSHA1 {
			return true
		}
	}
	return false
}

func fullRefresh(ctx context.Context, store *Store, fetcher PartFetcher, origins []transport.Origin, remote Attrs) error {
	for _, name := range []string{BasePart, DependencyPart, SummaryPart} {
		meta, ok := remote.Parts[name]
		if !ok {
			continue
		}
		res, err := fetcher.FetchCatalogPart(ctx, origins, name, transport.CacheControl{NoCache: true})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.KindTransport, err, "fetch part "+name)
		}
		part := ParsePart(name, res.Body)
		if part.Signature() != meta.SignatureSHA1 {
			return pkgerrors.New(pkgerrors.KindCatalog, "signature mismatch on full refresh of "+name)
		}
		if err := store.SavePart(part); err != nil {
			return err
		}
	}
	return store.SaveAttrs(remote)
}

// updateOp is one entry in an update log: an addition or removal of a
// single part line.
type updateOp struct {
	Add  bool
	Line string
}

func parseUpdateLog(raw []byte) []updateOp {
	var ops []updateOp
	for _, line := range strings.Split(string(raw), "\n") {
		if len(line) < 2 {
			continue
		}
		switch line[0] {
		case '+':
			ops = append(ops, updateOp{Add: true, Line: strings.TrimSpace(line[1:])})
		case '-':
			ops = append(ops, updateOp{Add: false, Line: strings.TrimSpace(line[1:])})
		}
	}
	return ops
}

// incrementalRefresh applies every update log dated after the local
// last-modified, in chronological order, to the locally cached base
// part, then verifies the result's signature against the value the
// server recorded for it.
func incrementalRefresh(ctx context.Context, store *Store, fetcher PartFetcher, origins []transport.Origin, local, remote Attrs) error {
	type pending struct {
		name string
		meta PartMeta
	}
	var logs []pending
	for _, name := range remote.UpdateOrder {
		meta, ok := remote.Updates[name]
		if !ok {
			continue
		}
		if !meta.LastModified.After(local.LastModified) {
			continue
		}
		logs = append(logs, pending{name: name, meta: meta})
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].meta.LastModified.Before(logs[j].meta.LastModified) })

	base, err := store.LoadPart(BasePart)
	if err != nil {
		return err
	}

	for _, lg := range logs {
		res, err := fetcher.FetchCatalogPart(ctx, origins, lg.name, transport.CacheControl{})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.KindTransport, err, "fetch update log "+lg.name)
		}
		for _, op := range parseUpdateLog(res.Body) {
			if op.Add {
				base.Lines = append(base.Lines, op.Line)
			} else {
				base.Lines = removeLine(base.Lines, op.Line)
			}
		}
	}

	wantMeta, ok := remote.Parts[BasePart]
	if !ok || base.Signature() != wantMeta.SignatureSHA1 {
		return pkgerrors.New(pkgerrors.KindCatalog, "incremental refresh signature mismatch on "+BasePart)
	}
	if err := store.SavePart(base); err != nil {
		return err
	}
	return store.SaveAttrs(remote)
}

func removeLine(lines []string, target string) []string {
	out := lines[:0]
	for _, l := range lines {
		if l != target {
			out = append(out, l)
		}
	}
	return out
}
