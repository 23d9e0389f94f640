package integration_test

import (
	"encoding/json"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/envship/envship/citest/testutil"
	"github.com/envship/envship/internal/manifest"
)

var _ = Describe("Manifest Overrides", func() {
	var fleet *testutil.Fleet
	var override *testutil.TempFile

	BeforeEach(func() {
		var err error
		fleet, err = testutil.NewFleet()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.Unsetenv("ENVSHIP_MANIFEST")
		os.Unsetenv("ENVSHIP_RESOLUTION")
		if override != nil {
			override.Cleanup()
			override = nil
		}
		if fleet != nil {
			fleet.Cleanup()
		}
	})

	It("should load the manifest file named by ENVSHIP_MANIFEST", func() {
		doc, err := json.Marshal(map[string]any{
			"sourceRoot":   fleet.SourceRoot,
			"destinations": fleet.DeployRoots,
			"services":     []map[string]string{{"name": "bor-db"}},
		})
		Expect(err).NotTo(HaveOccurred())
		override, err = testutil.NewTempFile(string(doc))
		Expect(err).NotTo(HaveOccurred())
		os.Setenv("ENVSHIP_MANIFEST", override.Path)

		m, err := manifest.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.SourceRoot).To(Equal(fleet.SourceRoot))
		Expect(m.ServiceNames()).To(Equal([]string{"bor-db"}))
	})

	It("should let the environment win over the manifest file", func() {
		doc, err := json.Marshal(map[string]any{
			"sourceRoot":   fleet.SourceRoot,
			"destinations": fleet.DeployRoots,
			"resolution":   "single-pass",
		})
		Expect(err).NotTo(HaveOccurred())
		override, err = testutil.NewTempFile(string(doc))
		Expect(err).NotTo(HaveOccurred())
		os.Setenv("ENVSHIP_MANIFEST", override.Path)
		os.Setenv("ENVSHIP_RESOLUTION", "fixed-point")

		m, err := manifest.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Resolution).To(Equal("fixed-point"))
	})

	It("should fill defaults for everything left unset", func() {
		m, err := manifest.Load(fleet.Root.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.SourceRoot).To(Equal("services"))
		Expect(m.Destinations).To(Equal([]string{"deploy"}))
		Expect(m.Resolution).To(Equal("single-pass"))
	})
})
