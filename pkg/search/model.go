package search

import (
	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/manifest"
)

// Entry is one installed (or otherwise indexable) package handed to
// Build/AddFast: its identity plus the manifest whose actions get
// tokenized.
type Entry struct {
	FMRI     fmri.FMRI
	Manifest manifest.Manifest
}

// Posting is one occurrence of a token against an action, the tuple
// literally named in §4.4: "(doc_id, action, key, value_id, offset,
// variant_mask)".
type Posting struct {
	DocID       int
	Action      action.Kind
	Key         string
	ValueID     int
	Offset      int64
	VariantMask uint32
}

// docTable assigns stable, dense integer doc IDs to FMRIs for one Build,
// in the sorted order full_fmri_list records them in.
type docTable struct {
	fmris []fmri.FMRI
	byKey map[string]int
}

func newDocTable(entries []Entry) *docTable {
	t := &docTable{byKey: make(map[string]int, len(entries))}
	for _, e := range entries {
		t.fmris = append(t.fmris, e.FMRI)
	}
	sortFMRIs(t.fmris)
	for i, f := range t.fmris {
		t.byKey[f.String()] = i
	}
	return t
}

func (t *docTable) idOf(f fmri.FMRI) int {
	return t.byKey[f.String()]
}

// indexEntries tokenizes every action of every entry into postings,
// assigning doc IDs and interning key-attribute values along the way.
// Build uses this to produce the on-disk index; the degraded-mode search
// path reuses it to build an equivalent in-memory Snapshot without touching
// disk, so both paths match queries identically.
func indexEntries(entries []Entry) (*docTable, *valueTable, map[string][]Posting) {
	docs := newDocTable(entries)
	byFMRI := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byFMRI[e.FMRI.String()] = e
	}

	values := newValueTable()
	postings := make(map[string][]Posting)
	for docID, f := range docs.fmris {
		e := byFMRI[f.String()]
		for _, act := range e.Manifest.Actions {
			for _, tok := range Tokenize(f, act) {
				postings[tok] = append(postings[tok], Posting{
					DocID:   docID,
					Action:  act.Kind,
					Key:     act.KeyAttr,
					ValueID: values.intern(act.KeyValue()),
				})
			}
		}
	}
	return docs, values, postings
}

// InMemorySnapshot builds a Snapshot equivalent to what Build would persist,
// without touching disk - the degraded-mode search path's substitute for
// a trustworthy on-disk index.
func InMemorySnapshot(entries []Entry) *Snapshot {
	docs, values, postings := indexEntries(entries)
	return &Snapshot{
		Postings:  postings,
		IDToValue: values.idToValue,
		ValueToID: values.valueToID,
		FullFMRIs: docs.fmris,
		FMRIHash:  fmriListHash(docs.fmris),
	}
}
