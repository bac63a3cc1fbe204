package search

import (
	"errors"
	"sort"
	"strings"

	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/pkgerrors"
)

// Hit is one matched (package, action, key, value) tuple, or - for a
// package-wrapped query - a bare package match with Action/Key/Value left
// zero.
type Hit struct {
	FMRI   fmri.FMRI
	Action string
	Key    string
	Value  string
}

func (h Hit) line() string {
	if h.Action == "" {
		return h.FMRI.String()
	}
	return h.FMRI.String() + " " + h.Action + " " + h.Key + "=" + h.Value
}

// Search resolves q against the on-disk index, falling back to a direct
// scan of entries (degraded mode, §4.4) when the index is missing,
// unversioned, structurally broken, or its full_fmri_list.hash does not
// match its full_fmri_list. entries is also consulted for
// fast_add/fast_remove overlays on a healthy index.
func Search(store *Store, q *Query, entries []Entry, maxFastIndexed int) (pkgerrors.Outcome[[]Hit], error) {
	var out pkgerrors.Outcome[[]Hit]

	idx, err := store.Load()
	switch {
	case errors.Is(err, ErrInconsistentIndex):
		out = out.WithDiagnostic(DiagInconsistentIndexException, err.Error())
		idx = InMemorySnapshot(entries)
	case err != nil:
		out = out.WithDiagnostic(DiagSlowSearchUsed, err.Error())
		idx = InMemorySnapshot(entries)
	case !idx.VerifyHash():
		out = out.WithDiagnostic(DiagIncorrectIndexFileHash, "full_fmri_list.hash does not match full_fmri_list")
		idx = InMemorySnapshot(entries)
	default:
		idx, out = overlayFastLogs(store, idx, out, entries, maxFastIndexed)
	}

	docs := evalDocs(q, idx)
	hits := flatten(docs, q.PackageWrapper)
	out.Value = dedupLines(hits)
	return out, nil
}

// overlayFastLogs folds fast_add.v1/fast_remove.v1 into an otherwise
// healthy in-memory Index: removed FMRIs' postings are dropped, and
// tokens from fast-add packages not yet in the main dict are merged in
// (manifests for fast-added packages are looked up from entries, mirroring
// how a live caller would hold installed-manifest data in memory already).
func overlayFastLogs(store *Store, idx *Snapshot, out pkgerrors.Outcome[[]Hit], entries []Entry, maxFastIndexed int) (*Snapshot, pkgerrors.Outcome[[]Hit]) {
	removed, _ := store.PendingFastRemoves()
	added, _ := store.PendingFastAdds()
	if len(removed) == 0 && len(added) == 0 {
		return idx, out
	}
	if ShouldRebuild(len(added), maxFastIndexed, false) {
		out = out.WithDiagnostic(DiagSlowSearchUsed, "pending fast-add count exceeds threshold, scanning manifests directly pending rebuild")
	}

	removedDoc := make(map[int]bool, len(removed))
	byFMRI := make(map[string]int, len(idx.FullFMRIs))
	for i, f := range idx.FullFMRIs {
		byFMRI[f.String()] = i
	}
	for _, f := range removed {
		if id, ok := byFMRI[f.String()]; ok {
			removedDoc[id] = true
		}
	}

	merged := &Snapshot{
		Postings:  map[string][]Posting{},
		IDToValue: idx.IDToValue,
		ValueToID: idx.ValueToID,
		FullFMRIs: append([]fmri.FMRI(nil), idx.FullFMRIs...),
		FMRIHash:  idx.FMRIHash,
	}
	for tok, postings := range idx.Postings {
		for _, p := range postings {
			if !removedDoc[p.DocID] {
				merged.Postings[tok] = append(merged.Postings[tok], p)
			}
		}
	}

	// fast-add packages not yet folded into the main dict: tokenize their
	// manifest (as found among entries, the caller's installed set) and
	// append under freshly allocated doc IDs, per §4.4's "queries fall
	// back to scanning fast-add manifests for tokens not in main dict".
	byEntryFMRI := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byEntryFMRI[e.FMRI.String()] = e
	}
	for _, f := range added {
		if _, already := byFMRI[f.String()]; already {
			continue
		}
		e, ok := byEntryFMRI[f.String()]
		if !ok {
			continue
		}
		docID := len(merged.FullFMRIs)
		merged.FullFMRIs = append(merged.FullFMRIs, f)
		values := &valueTable{idToValue: merged.IDToValue, valueToID: merged.ValueToID, next: len(merged.IDToValue)}
		for _, act := range e.Manifest.Actions {
			for _, tok := range Tokenize(f, act) {
				merged.Postings[tok] = append(merged.Postings[tok], Posting{
					DocID:   docID,
					Action:  act.Kind,
					Key:     act.KeyAttr,
					ValueID: values.intern(act.KeyValue()),
				})
			}
		}
	}

	return merged, out
}

// evalDocs evaluates q against idx, returning every matching doc's
// contributed hits keyed by doc ID.
func evalDocs(q *Query, idx *Snapshot) map[int][]Hit {
	switch q.Op {
	case OpAnd:
		left := evalDocs(q.Left, idx)
		right := evalDocs(q.Right, idx)
		out := make(map[int][]Hit)
		for id, lh := range left {
			if rh, ok := right[id]; ok {
				out[id] = append(append([]Hit{}, lh...), rh...)
			}
		}
		return out
	case OpOr:
		left := evalDocs(q.Left, idx)
		right := evalDocs(q.Right, idx)
		out := make(map[int][]Hit)
		for id, lh := range left {
			out[id] = append(out[id], lh...)
		}
		for id, rh := range right {
			out[id] = append(out[id], rh...)
		}
		return out
	default:
		return evalLeaf(q, idx)
	}
}

func evalLeaf(q *Query, idx *Snapshot) map[int][]Hit {
	var postings []Posting
	if q.IsField && q.Field.Value == "" {
		for _, ps := range idx.Postings {
			postings = append(postings, ps...)
		}
	} else {
		postings = lookupToken(q.Term, idx)
	}

	out := make(map[int][]Hit)
	for _, p := range postings {
		if p.DocID < 0 || p.DocID >= len(idx.FullFMRIs) {
			continue
		}
		f := idx.FullFMRIs[p.DocID]
		if q.IsField {
			if q.Field.Pkg != "" && !Matches(q.Field.Pkg, f.Stem) {
				continue
			}
			if q.Field.Action != "" && !Matches(q.Field.Action, string(p.Action)) {
				continue
			}
			if q.Field.Key != "" && !Matches(q.Field.Key, p.Key) {
				continue
			}
		}
		out[p.DocID] = append(out[p.DocID], Hit{
			FMRI:   f,
			Action: string(p.Action),
			Key:    p.Key,
			Value:  idx.IDToValue[p.ValueID],
		})
	}
	return out
}

func lookupToken(term string, idx *Snapshot) []Posting {
	if term == "" {
		var all []Posting
		for _, ps := range idx.Postings {
			all = append(all, ps...)
		}
		return all
	}
	if !strings.ContainsAny(term, "*?[") {
		return idx.Postings[term]
	}
	var out []Posting
	for tok, postings := range idx.Postings {
		if Matches(term, tok) {
			out = append(out, postings...)
		}
	}
	return out
}

// flatten collapses per-doc hits into a flat list. For a package-wrapped
// query it emits one bare-package Hit per matching doc rather than its
// action-level hits.
func flatten(docs map[int][]Hit, packageWrapper bool) []Hit {
	var out []Hit
	for _, hits := range docs {
		if packageWrapper {
			if len(hits) > 0 {
				out = append(out, Hit{FMRI: hits[0].FMRI})
			}
			continue
		}
		out = append(out, hits...)
	}
	return out
}

// dedupLines sorts hits into a stable order and collapses consecutive
// duplicates, per §4.4's "dedup consecutive duplicate lines in output".
func dedupLines(hits []Hit) []Hit {
	sort.Slice(hits, func(i, j int) bool { return hits[i].line() < hits[j].line() })
	out := hits[:0]
	var prev string
	for i, h := range hits {
		line := h.line()
		if i > 0 && line == prev {
			continue
		}
		out = append(out, h)
		prev = line
	}
	return out
}
