package e2e

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/solarisips/pkgclient/pkg/catalog"
	"github.com/solarisips/pkgclient/pkg/transport"
)

var _ = Describe("Catalog incremental then full", func() {
	It("applies an update log incrementally, then forces a full refresh on rollback", func() {
		dir := GinkgoT().TempDir()
		store, err := catalog.NewStore(filepath.Join(dir, "var", "pkg", "cache", "test", "catalog"))
		Expect(err).NotTo(HaveOccurred())

		origins := []transport.Origin{{URL: "http://example.test"}}

		t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		t1 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

		baseT0 := catalog.Part{Name: catalog.BasePart, Lines: []string{baseLine(mustFMRI("pkg://test/foo@1.0,5.11-0"))}}
		attrsT0 := catalog.Attrs{
			Version:      1,
			LastModified: t0,
			PackageCount: 1,
			Parts: map[string]catalog.PartMeta{
				catalog.BasePart: {SignatureSHA1: baseT0.Signature(), LastModified: t0},
			},
		}
		attrsT0Bytes, err := catalog.MarshalAttrs(attrsT0)
		Expect(err).NotTo(HaveOccurred())

		server := &fakePartFetcher{parts: map[string][]byte{
			catalog.AttrsFile: attrsT0Bytes,
			catalog.BasePart:  baseT0.Render(),
		}}

		By("performing the initial full refresh")
		res, err := catalog.Refresh(context.Background(), store, server, origins, "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome).To(Equal(catalog.OutcomeFull))

		got, err := store.LoadPart(catalog.BasePart)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Signature()).To(Equal(baseT0.Signature()))

		By("publishing an update log and refreshing incrementally")
		barLine := baseLine(mustFMRI("pkg://test/bar@1.0,5.11-0"))
		baseT1 := catalog.Part{Name: catalog.BasePart, Lines: append(append([]string{}, baseT0.Lines...), barLine)}
		updateLogName := "update.20260102T000000Z"

		attrsT1 := catalog.Attrs{
			Version:      2,
			LastModified: t1,
			PackageCount: 2,
			Parts: map[string]catalog.PartMeta{
				catalog.BasePart: {SignatureSHA1: baseT1.Signature(), LastModified: t1},
			},
			UpdateOrder: []string{updateLogName},
			Updates: map[string]catalog.PartMeta{
				updateLogName: {LastModified: t1},
			},
		}
		attrsT1Bytes, err := catalog.MarshalAttrs(attrsT1)
		Expect(err).NotTo(HaveOccurred())

		server.parts[catalog.AttrsFile] = attrsT1Bytes
		server.parts[updateLogName] = []byte("+" + barLine + "\n")

		res, err = catalog.Refresh(context.Background(), store, server, origins, "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome).To(Equal(catalog.OutcomeIncremental))

		got, err = store.LoadPart(catalog.BasePart)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Signature()).To(Equal(baseT1.Signature()))

		By("rolling the server back to its T0 state and refreshing again")
		server.parts[catalog.AttrsFile] = attrsT0Bytes
		server.parts[catalog.BasePart] = baseT0.Render()
		delete(server.parts, updateLogName)

		res, err = catalog.Refresh(context.Background(), store, server, origins, "test")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome).To(Equal(catalog.OutcomeFull), "a local last-modified newer than the server's must force a full refresh")

		got, err = store.LoadPart(catalog.BasePart)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Signature()).To(Equal(baseT0.Signature()))

		attrs, err := store.LoadAttrs()
		Expect(err).NotTo(HaveOccurred())
		Expect(attrs.LastModified.Equal(t0)).To(BeTrue())
	})
})
