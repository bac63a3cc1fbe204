package e2e

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"

	. "github.com/onsi/gomega"

	"github.com/solarisips/pkgclient/pkg/action"
	"github.com/solarisips/pkgclient/pkg/catalog"
	"github.com/solarisips/pkgclient/pkg/fmri"
	"github.com/solarisips/pkgclient/pkg/manifest"
	"github.com/solarisips/pkgclient/pkg/planexec"
	"github.com/solarisips/pkgclient/pkg/resolve"
	"github.com/solarisips/pkgclient/pkg/solver"
	"github.com/solarisips/pkgclient/pkg/transport"
)

func mustFMRI(s string) fmri.FMRI {
	f, err := fmri.Parse(s)
	Expect(err).NotTo(HaveOccurred())
	return f
}

// fileAction builds a `file` action carrying content's sha1 digest as its
// payload hash and the given octal mode, the same shape
// planexec.filePerm/primaryHash expect.
func fileAction(path, mode string, content []byte) action.Action {
	a := action.New(action.File)
	a.Attrs.Set("path", path)
	a.Attrs.Set("mode", mode)
	a.Attrs.Set("owner", "root")
	a.Attrs.Set("group", "bin")
	sum := sha1.Sum(content)
	a.PayloadHash = map[string]string{"sha1": hex.EncodeToString(sum[:])}
	return a
}

func dependAction(typ, target string) action.Action {
	a := action.New(action.Depend)
	a.Attrs.Set("type", typ)
	a.Attrs.Set("fmri", target)
	return a
}

// renderManifest joins actions into the raw bytes a manifestFetcher
// would return, the inverse of manifest.Parse.
func renderManifest(actions ...action.Action) []byte {
	lines := make([]string, len(actions))
	for i, a := range actions {
		lines[i] = a.String()
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

// fakeManifestFetcher serves pre-rendered manifest bytes by FMRI string,
// standing in for pkg/transport.Client.FetchManifest the way
// pkg/catalog's own fakeFetcher stands in for FetchCatalogPart.
type fakeManifestFetcher map[string][]byte

func (f fakeManifestFetcher) FetchManifest(_ context.Context, fm fmri.FMRI) ([]byte, error) {
	return f[fm.String()], nil
}

// fakePayloads serves payload content by the hash recorded on a file
// action, the same fakePayloads shape pkg/planexec's own tests use.
type fakePayloads map[string][]byte

func (f fakePayloads) Payload(_ context.Context, hash string) ([]byte, error) {
	return f[hash], nil
}

// fakePartFetcher serves catalog part/attrs bytes by name, mirroring
// pkg/catalog's own refresh_test.go fakeFetcher.
type fakePartFetcher struct {
	parts map[string][]byte
	err   error
}

func (f *fakePartFetcher) FetchCatalogPart(_ context.Context, _ []transport.Origin, name string, _ transport.CacheControl) (transport.FetchResult, error) {
	if f.err != nil {
		return transport.FetchResult{}, f.err
	}
	body, ok := f.parts[name]
	if !ok {
		return transport.FetchResult{}, transport.ErrNotFound
	}
	return transport.FetchResult{Body: body}, nil
}

// baseLine renders the "set name=pkg.fmri value=..." catalog line
// catalog.BuildCandidateView parses per-stem candidates out of.
func baseLine(f fmri.FMRI) string {
	a := action.New(action.Set)
	a.Attrs.Set("name", "pkg.fmri")
	a.Attrs.Set("value", f.String())
	return a.String()
}

func newBasePart(fmris ...fmri.FMRI) catalog.Part {
	lines := make([]string, len(fmris))
	for i, f := range fmris {
		lines[i] = baseLine(f)
	}
	return catalog.Part{Name: catalog.BasePart, Lines: lines}
}

func mustManifest(actions ...action.Action) manifest.Manifest {
	return manifest.New(actions)
}

// resolvedPackages turns a solved []solver.Variable back into the
// planexec.Package map BuildPlan wants, the same Identifier-recomputing
// match cmd/pkgclient's candidateByID uses - the solver's opaque
// Identifier carries no publisher, so candidates are matched by
// recomputing resolve.CandidateID rather than parsing the identifier.
func resolvedPackages(vars []solver.Variable, view resolve.CatalogView, stems []string) map[string]planexec.Package {
	out := make(map[string]planexec.Package, len(vars))
	for _, v := range vars {
		for _, stem := range stems {
			for _, c := range view.CandidatesForStem(stem) {
				if resolve.CandidateID(c.FMRI) == v.Identifier() {
					out[c.FMRI.Stem] = planexec.Package{FMRI: c.FMRI, Manifest: c.Manifest}
				}
			}
		}
	}
	return out
}
