package integration_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/envship/envship/citest/testutil"
	"github.com/envship/envship/internal/artifact"
	"github.com/envship/envship/internal/engine"
	"github.com/envship/envship/internal/envfile"
	"github.com/envship/envship/internal/manifest"
)

var _ = Describe("Deployed Drift", func() {
	var fleet *testutil.Fleet
	var ctx context.Context
	var m *manifest.Manifest
	var eng *engine.Engine

	BeforeEach(func() {
		var err error
		fleet, err = testutil.NewFleet()
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()

		Expect(fleet.AddStaged("bor-api", map[string]string{
			".env": "PORT=8080\nHOST=0.0.0.0\n",
		})).To(Succeed())
		m, err = fleet.Load()
		Expect(err).NotTo(HaveOccurred())

		eng = engine.New(m)
		Expect(eng.Run(ctx, engine.Options{})).To(Succeed())
	})

	AfterEach(func() {
		if fleet != nil {
			fleet.Cleanup()
		}
	})

	compose := func() envfile.Document {
		doc, _, err := eng.Compose("bor-api", envfile.TierProduction, m.Strategy())
		Expect(err).NotTo(HaveOccurred())
		return doc
	}

	It("should report clean right after a build", func() {
		delta, err := artifact.Drift(compose(), m.Destinations[0], "bor-api", envfile.TierProduction)
		Expect(err).NotTo(HaveOccurred())
		Expect(delta.Clean()).To(BeTrue())
	})

	It("should report drift after the deployed copy is edited", func() {
		path := artifact.Path(m.Destinations[0], "bor-api", envfile.TierProduction)
		Expect(os.WriteFile(path, []byte("PORT=9090\nHOST=0.0.0.0\n"), 0600)).To(Succeed())

		delta, err := artifact.Drift(compose(), m.Destinations[0], "bor-api", envfile.TierProduction)
		Expect(err).NotTo(HaveOccurred())
		Expect(delta.Clean()).To(BeFalse())
		Expect(delta.Additions).To(Equal(1))
		Expect(delta.Deletions).To(Equal(1))
	})

	It("should count a missing deployed artifact as all additions", func() {
		path := artifact.Path(m.Destinations[0], "bor-api", envfile.TierProduction)
		Expect(os.Remove(path)).To(Succeed())

		doc := compose()
		delta, err := artifact.Drift(doc, m.Destinations[0], "bor-api", envfile.TierProduction)
		Expect(err).NotTo(HaveOccurred())
		Expect(delta.Missing).To(BeTrue())
		Expect(delta.Clean()).To(BeFalse())
		Expect(delta.Additions).To(Equal(doc.Len()))
	})

	It("should converge after a rebuild", func() {
		path := artifact.Path(m.Destinations[0], "bor-api", envfile.TierProduction)
		Expect(os.WriteFile(path, []byte("PORT=9090\n"), 0600)).To(Succeed())

		Expect(eng.Run(ctx, engine.Options{})).To(Succeed())

		delta, err := artifact.Drift(compose(), m.Destinations[0], "bor-api", envfile.TierProduction)
		Expect(err).NotTo(HaveOccurred())
		Expect(delta.Clean()).To(BeTrue())
	})
})
