package e2e

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/solarisips/pkgclient/pkg/imagestate"
	"github.com/solarisips/pkgclient/pkg/search"
)

var _ = Describe("Search hash mismatch triggers degraded mode", func() {
	It("falls back to a direct scan on a corrupted full_fmri_list.hash, then recovers after a rebuild", func() {
		dir := GinkgoT().TempDir()
		store := search.NewStore(dir)
		idx := search.NewIndex(store, nil)

		examplePkg := mustFMRI("pkg://test/example_pkg@1.0,5.11-0")
		entries := []search.Entry{{FMRI: examplePkg, Manifest: mustManifest(fileAction("bin/example_path", "0555", []byte("x")))}}

		_, err := idx.Build(entries, imagestate.New(dir))
		Expect(err).NotTo(HaveOccurred())

		By("corrupting the recorded full-fmri-list hash")
		hashPath := filepath.Join(dir, search.FullFMRIListHash)
		raw, err := os.ReadFile(hashPath)
		Expect(err).NotTo(HaveOccurred())
		corrupted := strings.Repeat("0", len(strings.TrimSpace(string(raw)))) + "\n"
		Expect(os.WriteFile(hashPath, []byte(corrupted), 0o644)).To(Succeed())

		q, err := search.ParseQuery("example_path")
		Expect(err).NotTo(HaveOccurred())
		out, err := idx.Search(q, entries, nil, 10)
		Expect(err).NotTo(HaveOccurred())

		var codes []string
		for _, d := range out.Diagnostics {
			codes = append(codes, d.Code)
		}
		Expect(codes).To(ContainElement(search.DiagIncorrectIndexFileHash))

		By("still returning a correct hit via the degraded-mode scan")
		Expect(out.Value).To(HaveLen(1))
		Expect(out.Value[0].FMRI.Equal(examplePkg)).To(BeTrue())
		Expect(out.Value[0].Value).To(Equal("bin/example_path"))

		By("rebuilding and confirming the index is healthy again")
		_, err = idx.Build(entries, imagestate.New(dir))
		Expect(err).NotTo(HaveOccurred())
		out, err = idx.Search(q, entries, nil, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Diagnostics).To(BeEmpty())
		Expect(out.Value).To(HaveLen(1))
	})
})
