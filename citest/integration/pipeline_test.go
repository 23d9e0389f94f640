package integration_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/envship/envship/citest/testutil"
	"github.com/envship/envship/internal/artifact"
	"github.com/envship/envship/internal/engine"
	"github.com/envship/envship/internal/envfile"
	"github.com/envship/envship/internal/manifest"
	"github.com/envship/envship/internal/pull"
)

var _ = Describe("Fleet Pipeline", func() {
	var fleet *testutil.Fleet
	var ctx context.Context

	BeforeEach(func() {
		var err error
		fleet, err = testutil.NewFleet()
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		if fleet != nil {
			fleet.Cleanup()
		}
	})

	Describe("Pull Staging", func() {
		It("should stage matching env files from the checkout", func() {
			Expect(fleet.AddService("bor-db", map[string]string{
				".env":            "DB_HOST=localhost\n",
				".env.production": "DB_HOST=db.internal\n",
				"config.toml":     "port = 5432\n",
			})).To(Succeed())
			m, err := fleet.Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(pull.New(m).Run(ctx, nil)).To(Succeed())

			staged := filepath.Join(fleet.SourceRoot, "bor-db")
			Expect(filepath.Join(staged, ".env")).To(BeAnExistingFile())
			Expect(filepath.Join(staged, ".env.production")).To(BeAnExistingFile())
			Expect(filepath.Join(staged, "config.toml")).NotTo(BeAnExistingFile())
		})

		It("should stage copies readable by the owner only", func() {
			Expect(fleet.AddService("bor-db", map[string]string{
				".env": "DB_PASSWORD=hunter2\n",
			})).To(Succeed())
			m, err := fleet.Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(pull.New(m).Run(ctx, nil)).To(Succeed())

			info, err := os.Stat(filepath.Join(fleet.SourceRoot, "bor-db", ".env"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0600)))
		})

		It("should continue past a missing checkout", func() {
			Expect(fleet.AddService("bor-db", map[string]string{
				".env": "DB_HOST=localhost\n",
			})).To(Succeed())
			Expect(fleet.AddService("bor-api", map[string]string{
				".env": "PORT=8080\n",
			})).To(Succeed())
			m, err := fleet.Load()
			Expect(err).NotTo(HaveOccurred())

			// Remove one checkout after the manifest is written.
			svc, err := m.Service("bor-api")
			Expect(err).NotTo(HaveOccurred())
			Expect(os.RemoveAll(svc.Repo)).To(Succeed())

			Expect(pull.New(m).Run(ctx, nil)).To(Succeed())

			Expect(filepath.Join(fleet.SourceRoot, "bor-db", ".env")).To(BeAnExistingFile())
			Expect(filepath.Join(fleet.SourceRoot, "bor-api")).NotTo(BeADirectory())
		})

		It("should reject an unknown service selection", func() {
			Expect(fleet.AddService("bor-db", map[string]string{
				".env": "DB_HOST=localhost\n",
			})).To(Succeed())
			m, err := fleet.Load()
			Expect(err).NotTo(HaveOccurred())

			err = pull.New(m).Run(ctx, []string{"bor-dc"})
			Expect(err).To(MatchError(manifest.ErrUnknownService))
			Expect(err.Error()).To(ContainSubstring(`did you mean "bor-db"`))
		})
	})

	Describe("Build Artifacts", func() {
		It("should write one artifact per tier with owner-only permissions", func() {
			Expect(fleet.AddStaged("bor-api", map[string]string{
				".env": "PORT=8080\n",
			})).To(Succeed())
			m, err := fleet.Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(engine.New(m).Run(ctx, engine.Options{})).To(Succeed())

			for _, tier := range envfile.Tiers() {
				path := artifact.Path(m.Destinations[0], "bor-api", tier)
				info, err := os.Stat(path)
				Expect(err).NotTo(HaveOccurred(), "artifact for tier %s", tier)
				Expect(info.Mode().Perm()).To(Equal(os.FileMode(0600)))
			}
		})

		It("should merge overrides, drop comments, and resolve references", func() {
			Expect(fleet.AddStaged("bor-db", map[string]string{
				".env": "DB_HOST=localhost\nDB_PORT=5432\n\n# DB_HOST=legacy\nDB_URL=postgres://${DB_HOST}:${DB_PORT}/app   # primary\n",
				".env.production": "DB_HOST=db.internal\n",
			})).To(Succeed())
			m, err := fleet.Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(engine.New(m).Run(ctx, engine.Options{})).To(Succeed())

			prod, err := os.ReadFile(artifact.Path(m.Destinations[0], "bor-db", envfile.TierProduction))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(prod)).To(Equal(
				"DB_HOST=localhost\nDB_PORT=5432\nDB_URL=postgres://db.internal:5432/app\nDB_HOST=db.internal\n"))

			dev, err := os.ReadFile(artifact.Path(m.Destinations[0], "bor-db", envfile.TierDevelopment))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(dev)).To(Equal(
				"DB_HOST=localhost\nDB_PORT=5432\nDB_URL=postgres://localhost:5432/app\n"))
		})

		It("should mirror identical artifacts to every deploy root", func() {
			Expect(fleet.AddStaged("bor-api", map[string]string{
				".env": "PORT=8080\nHOST=0.0.0.0\n",
			})).To(Succeed())
			second, err := fleet.AddDeployRoot("deploy-dr")
			Expect(err).NotTo(HaveOccurred())
			m, err := fleet.Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(engine.New(m).Run(ctx, engine.Options{})).To(Succeed())

			primary, err := os.ReadFile(artifact.Path(m.Destinations[0], "bor-api", envfile.TierProduction))
			Expect(err).NotTo(HaveOccurred())
			mirror, err := os.ReadFile(artifact.Path(second, "bor-api", envfile.TierProduction))
			Expect(err).NotTo(HaveOccurred())
			Expect(mirror).To(Equal(primary))
		})

		It("should skip a service with no usable sources", func() {
			Expect(fleet.AddStaged("bor-api", map[string]string{
				".env": "PORT=8080\n",
			})).To(Succeed())
			// Only a tier-local file: never sufficient on its own.
			Expect(fleet.AddStaged("bor-web", map[string]string{
				".env.production.local": "SECRET=s3cret\n",
			})).To(Succeed())
			m, err := fleet.Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(engine.New(m).Run(ctx, engine.Options{})).To(Succeed())

			Expect(artifact.Path(m.Destinations[0], "bor-api", envfile.TierProduction)).To(BeAnExistingFile())
			Expect(artifact.Path(m.Destinations[0], "bor-web", envfile.TierProduction)).NotTo(BeAnExistingFile())
		})

		It("should narrow a run to one service and tier", func() {
			Expect(fleet.AddStaged("bor-api", map[string]string{
				".env": "PORT=8080\n",
			})).To(Succeed())
			Expect(fleet.AddStaged("bor-db", map[string]string{
				".env": "DB_HOST=localhost\n",
			})).To(Succeed())
			m, err := fleet.Load()
			Expect(err).NotTo(HaveOccurred())

			opts := engine.Options{Services: []string{"bor-api"}, Tier: "production"}
			Expect(engine.New(m).Run(ctx, opts)).To(Succeed())

			Expect(artifact.Path(m.Destinations[0], "bor-api", envfile.TierProduction)).To(BeAnExistingFile())
			Expect(artifact.Path(m.Destinations[0], "bor-api", envfile.TierDevelopment)).NotTo(BeAnExistingFile())
			Expect(artifact.Path(m.Destinations[0], "bor-db", envfile.TierProduction)).NotTo(BeAnExistingFile())
		})
	})
})
