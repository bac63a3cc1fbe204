package e2e

import (
	"context"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/solarisips/pkgclient/pkg/catalog"
	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/resolve"
)

var _ = Describe("Incorporation constrains update", func() {
	It("reports incorp_pkg as blame and leaves the installed set unchanged", func() {
		imageRoot := GinkgoT().TempDir()

		incorp10 := mustFMRI("pkg://test/incorp_pkg@1.0,5.11-0")
		example10 := mustFMRI("pkg://test/example_pkg@1.0,5.11-0")
		example11 := mustFMRI("pkg://test/example_pkg@1.1,5.11-0")

		store, err := catalog.NewStore(filepath.Join(imageRoot, "var", "pkg", "cache", "test", "catalog"))
		Expect(err).NotTo(HaveOccurred())
		Expect(store.SavePart(newBasePart(incorp10, example10, example11))).To(Succeed())

		incorpManifest := renderManifest(dependAction("incorporate", "example_pkg@1.0,5.11-0"))
		fetcher := fakeManifestFetcher{incorp10.String(): incorpManifest}
		view, err := catalog.BuildCandidateView(store, fetcher)
		Expect(err).NotTo(HaveOccurred())

		state := imagestate.New(imageRoot)
		state.Put("incorp_pkg", incorp10, imagestate.StateInstalled)
		state.Put("example_pkg", example10, imagestate.StateInstalled)

		req := resolve.Request{Kind: resolve.OpUpdate, Stems: []string{"example_pkg"}}
		resolver := resolve.NewResolver(nil)
		_, err = resolver.Resolve(context.Background(), state, nil, req, view)
		Expect(err).To(HaveOccurred())

		var blame *resolve.BlameError
		Expect(errors.As(err, &blame)).To(BeTrue())
		Expect(blame.Packages).To(HaveKey("incorp_pkg"))

		By("checking the installed set didn't move")
		got, ok := state.Lookup("example_pkg")
		Expect(ok).To(BeTrue())
		Expect(got.Equal(example10)).To(BeTrue())
	})
})
