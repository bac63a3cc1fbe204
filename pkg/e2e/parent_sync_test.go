package e2e

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/solarisips/pkgclient/pkg/catalog"
	"github.com/solarisips/pkgclient/pkg/depend"
	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/resolve"
)

var _ = Describe("Parent-sync rejects divergence", func() {
	It("lets an unrelated install through but rejects updating the synced package past the parent", func() {
		parentRoot := GinkgoT().TempDir()
		childRoot := GinkgoT().TempDir()

		sync11 := mustFMRI("pkg://test/sync1@1.1,5.11-0")
		sync12 := mustFMRI("pkg://test/sync1@1.2,5.11-0")
		sync10 := mustFMRI("pkg://test/sync1@1.0,5.11-0")
		fooPkg := mustFMRI("pkg://test/foo@1.0,5.11-0")

		parent := imagestate.New(parentRoot)
		parent.Put("sync1", sync12, imagestate.StateInstalled)

		child := imagestate.New(childRoot)
		child.Put("sync1", sync11, imagestate.StateInstalled)

		store, err := catalog.NewStore(filepath.Join(childRoot, "var", "pkg", "cache", "test", "catalog"))
		Expect(err).NotTo(HaveOccurred())
		Expect(store.SavePart(newBasePart(sync11, sync10, fooPkg))).To(Succeed())

		// sync1@1.1 is the version already in lockstep with the parent at
		// install time and carries no parent constraint of its own;
		// sync1@1.0 is the only other version this repo offers, and it
		// insists (via the self-referencing parent depend) that whatever
		// version the parent has installed match it exactly.
		fetcher := fakeManifestFetcher{
			sync10.String(): renderManifest(dependAction("parent", depend.SelfFMRI)),
			fooPkg.String(): renderManifest(),
		}
		view, err := catalog.BuildCandidateView(store, fetcher)
		Expect(err).NotTo(HaveOccurred())

		resolver := resolve.NewResolver(nil)

		By("installing an unrelated package")
		installReq := resolve.Request{Kind: resolve.OpInstall, Stems: []string{"foo"}}
		vars, err := resolver.Resolve(context.Background(), child, parent, installReq, view)
		Expect(err).NotTo(HaveOccurred())

		target := resolvedPackages(vars, view, view.Stems())
		Expect(target).To(HaveKey("foo"))
		Expect(target["sync1"].FMRI.Equal(sync11)).To(BeTrue(), "sync1 must stay untouched at 1.1")

		By("attempting to update sync1 to the only other version on offer")
		updateReq := resolve.Request{Kind: resolve.OpUpdate, Stems: []string{"sync1"}}
		_, err = resolver.Resolve(context.Background(), child, parent, updateReq, view)
		Expect(err).To(HaveOccurred())

		got, ok := child.Lookup("sync1")
		Expect(ok).To(BeTrue())
		Expect(got.Equal(sync11)).To(BeTrue(), "a failed resolve must never have mutated child state")
	})
})
