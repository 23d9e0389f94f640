package integration_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/envship/envship/citest/testutil"
	"github.com/envship/envship/internal/manifest"
	"github.com/envship/envship/internal/transport"
)

var _ = Describe("Push Validation", func() {
	var fleet *testutil.Fleet
	var ctx context.Context
	var m *manifest.Manifest

	BeforeEach(func() {
		var err error
		fleet, err = testutil.NewFleet()
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()

		Expect(fleet.AddStaged("bor-db", map[string]string{
			".env": "DB_HOST=localhost\n",
		})).To(Succeed())
		fleet.AddTarget("staging", "deploy@staging.internal:/srv/env")
		m, err = fleet.Load()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if fleet != nil {
			fleet.Cleanup()
		}
	})

	It("should reject an unknown target before any transfer", func() {
		err := transport.New(m).Push(ctx, "production", nil)
		Expect(err).To(MatchError(manifest.ErrUnknownTarget))
	})

	It("should suggest the closest target name", func() {
		err := transport.New(m).Push(ctx, "stagign", nil)
		Expect(err).To(MatchError(manifest.ErrUnknownTarget))
		Expect(err.Error()).To(ContainSubstring(`did you mean "staging"`))
	})

	It("should reject an unknown service selection before any transfer", func() {
		err := transport.New(m).Push(ctx, "staging", []string{"bor-dc"})
		Expect(err).To(MatchError(manifest.ErrUnknownService))
		Expect(err.Error()).To(ContainSubstring(`did you mean "bor-db"`))
	})
})
