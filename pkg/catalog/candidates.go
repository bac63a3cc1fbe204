package catalog

import (
	"context"
	"sort"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/manifest"
	"github.com/solarisips/pkgclient/pkg/resolve"
)

// ManifestFetcher retrieves one package's manifest by FMRI. A
// resolve.CatalogView built without one still reports every known FMRI
// per stem, just with empty manifests - candidates resolve by name and
// version but carry no depend constraints.
type ManifestFetcher interface {
	FetchManifest(ctx context.Context, f fmri.FMRI) ([]byte, error)
}

// CandidateView turns a Store's loaded base part into the
// resolve.CatalogView the solver consumes. It applies no variant
// filtering: manifests are returned as fetched, and resolve.BuildVariables
// filters them through the image's variants.
type CandidateView struct {
	byStem    map[string][]resolve.Candidate
	fetcher   ManifestFetcher
	manifests map[string]manifest.Manifest
}

// BuildCandidateView parses store's base part (the only part §4.2's
// client-side refresh keeps current, see DESIGN.md) into one
// resolve.Candidate per "set name=pkg.fmri value=..." line, grouped by
// stem and ordered latest-version-first per publisher rank, as
// resolve.CatalogView requires. fetcher may be nil.
func BuildCandidateView(store *Store, fetcher ManifestFetcher) (*CandidateView, error) {
	part, err := store.LoadPart(BasePart)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]resolve.Candidate)
	for _, line := range part.Lines {
		a, err := action.Parse(line)
		if err != nil {
			continue
		}
		if a.Kind != action.Set || a.Attrs.Get("name") != "pkg.fmri" {
			continue
		}
		f, err := fmri.Parse(a.Attrs.Get("value"))
		if err != nil {
			continue
		}
		grouped[f.Stem] = append(grouped[f.Stem], resolve.Candidate{FMRI: f})
	}

	for stem, cands := range grouped {
		sort.Slice(cands, func(i, j int) bool {
			return versionLess(cands[j].FMRI.Version, cands[i].FMRI.Version)
		})
		grouped[stem] = cands
	}

	return &CandidateView{byStem: grouped, fetcher: fetcher, manifests: map[string]manifest.Manifest{}}, nil
}

// versionLess orders two Versions by Release, BuildRelease, then Branch
// component tuples, lexicographically, with Timestamp breaking ties. No
// Compare method exists on fmri.Version; this mirrors ParseVersion's own
// component precedence.
func versionLess(a, b fmri.Version) bool {
	if c := compareTuples(a.Release, b.Release); c != 0 {
		return c < 0
	}
	if c := compareTuples(a.BuildRelease, b.BuildRelease); c != 0 {
		return c < 0
	}
	if c := compareTuples(a.Branch, b.Branch); c != 0 {
		return c < 0
	}
	return a.Timestamp < b.Timestamp
}

func compareTuples(a, b []uint32) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

// Stems returns every stem this view has at least one candidate for,
// used by callers that need to resolve a solver.Variable back to its
// Candidate without already knowing which stems the solve touched (e.g.
// a dependency the request never named directly).
func (v *CandidateView) Stems() []string {
	out := make([]string, 0, len(v.byStem))
	for stem := range v.byStem {
		out = append(out, stem)
	}
	return out
}

// CandidatesForStem implements resolve.CatalogView, lazily fetching and
// caching each candidate's manifest when a ManifestFetcher is configured.
func (v *CandidateView) CandidatesForStem(stem string) []resolve.Candidate {
	cands := v.byStem[stem]
	if v.fetcher == nil {
		return cands
	}
	out := make([]resolve.Candidate, len(cands))
	for i, c := range cands {
		out[i] = c
		key := c.FMRI.String()
		if m, ok := v.manifests[key]; ok {
			out[i].Manifest = m
			continue
		}
		raw, err := v.fetcher.FetchManifest(context.Background(), c.FMRI)
		if err != nil {
			continue
		}
		m, err := manifest.Parse(raw)
		if err != nil {
			continue
		}
		v.manifests[key] = m
		out[i].Manifest = m
	}
	return out
}
