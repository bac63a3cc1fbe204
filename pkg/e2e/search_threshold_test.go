package e2e

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/search"
)

var _ = Describe("Search fast-add threshold", func() {
	It("rebuilds the index automatically once pending fast-adds exceed the threshold", func() {
		dir := GinkgoT().TempDir()
		store := search.NewStore(dir)
		idx := search.NewIndex(store, nil)
		state := imagestate.New(dir)

		base := mustFMRI("pkg://test/example_pkg@1.0,5.11-0")
		baseEntries := []search.Entry{{FMRI: base, Manifest: mustManifest(fileAction("bin/example_path", "0555", []byte("x")))}}
		_, err := idx.Build(baseEntries, state)
		Expect(err).NotTo(HaveOccurred())

		const threshold = 3
		entries := append([]search.Entry(nil), baseEntries...)
		for i := 0; i < threshold+1; i++ {
			f := mustFMRI(fmt.Sprintf("pkg://test/added_pkg_%d@1.0,5.11-0", i))
			e := search.Entry{FMRI: f, Manifest: mustManifest(fileAction(fmt.Sprintf("bin/added_%d", i), "0555", []byte("y")))}
			entries = append(entries, e)
			Expect(idx.AddFast(e)).To(Succeed())
		}

		pending, err := store.PendingFastAdds()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(HaveLen(threshold + 1))

		q, err := search.ParseQuery("example_path")
		Expect(err).NotTo(HaveOccurred())
		out, err := idx.Search(q, entries, state, threshold)
		Expect(err).NotTo(HaveOccurred())

		By("finding the originally built package via the rebuilt index")
		var fmris []string
		for _, h := range out.Value {
			fmris = append(fmris, h.FMRI.String())
		}
		Expect(fmris).To(ContainElement(base.String()))

		By("emptying fast_add.v1 once the threshold crossing triggers a rebuild")
		pending, err = store.PendingFastAdds()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())

		By("folding every fast-added package into main_dict, not just the originally built one")
		snap, err := store.Load()
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.FullFMRIs).To(HaveLen(len(entries)))
	})
})
