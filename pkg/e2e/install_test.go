package e2e

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/solarisips/pkgclient/pkg/catalog"
	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/planexec"
	"github.com/solarisips/pkgclient/pkg/resolve"
)

var _ = Describe("Basic install", func() {
	It("installs example_pkg and delivers its file payload", func() {
		imageRoot := GinkgoT().TempDir()
		content := []byte("magic banana")

		examplePkg := mustFMRI("pkg://test/example_pkg@1.0,5.11-0")
		fileAct := fileAction("bin/example_path", "0555", content)

		store, err := catalog.NewStore(filepath.Join(imageRoot, "var", "pkg", "cache", "test", "catalog"))
		Expect(err).NotTo(HaveOccurred())
		Expect(store.SavePart(newBasePart(examplePkg))).To(Succeed())

		fetcher := fakeManifestFetcher{examplePkg.String(): renderManifest(fileAct)}
		view, err := catalog.BuildCandidateView(store, fetcher)
		Expect(err).NotTo(HaveOccurred())

		state := imagestate.New(imageRoot)
		req := resolve.Request{Kind: resolve.OpInstall, Stems: []string{"example_pkg"}}

		resolver := resolve.NewResolver(nil)
		vars, err := resolver.Resolve(context.Background(), state, nil, req, view)
		Expect(err).NotTo(HaveOccurred())

		target := resolvedPackages(vars, view, view.Stems())
		By("resolving to exactly example_pkg@1.0")
		Expect(target).To(HaveKey("example_pkg"))
		Expect(target["example_pkg"].FMRI.Equal(examplePkg)).To(BeTrue())

		plan := planexec.BuildPlan(nil, target, state.Variants, state.Facets)
		Expect(plan.Empty()).To(BeFalse())

		executor := planexec.NewExecutor(imageRoot, nil, fakePayloads{
			"a686473102ba73bd7920fc0ab1d97e00a24ed704": content,
		}, planexec.NewJournal(imageRoot), nil, nil)
		Expect(executor.Execute(context.Background(), plan)).To(Succeed())

		By("checking the file landed with the right content and mode")
		installed := filepath.Join(imageRoot, "bin", "example_path")
		data, err := os.ReadFile(installed)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("magic banana"))

		info, err := os.Stat(installed)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o555)))

		for stem, pkg := range target {
			state.Put(stem, pkg.FMRI, imagestate.StateInstalled)
		}
		Expect(state.InstalledFMRIs()).To(ConsistOf(examplePkg))
	})
})
