package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/envship/envship/internal/engine"
	"github.com/envship/envship/internal/report"
)

var (
	buildTier       string
	buildResolution string
	buildDir        string
)

var buildCmd = &cobra.Command{
	Use:   "build [service...]",
	Short: "Build env artifacts for services",
	Long: `Build merged, sanitized, resolved env artifacts and write them to every
destination root.

With no arguments every manifest service is built for every tier. Problems
confined to one (service, tier) pair skip or fail that pair and the batch
continues; only an unknown service, tier, or strategy aborts the run.

Examples:
  # Build the whole fleet
  envship build

  # One service, one tier
  envship build bor-db --tier production

  # Chase references across assignments
  envship build --resolution fixed-point

  # Artifact paths only, for scripting
  envship build -q

  # Stream JSONL events for programmatic consumption
  envship build -o jsonl | jq -r '.type'`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildTier, "tier", "t", "", "Restrict the build to one tier")
	buildCmd.Flags().StringVar(&buildResolution, "resolution", "", "Resolution strategy: single-pass or fixed-point")
	buildCmd.Flags().StringVar(&buildDir, "directory", "", "Working directory")
}

func runBuild(cmd *cobra.Command, args []string) error {
	format := parseFormat()

	m, err := setup(buildDir)
	if err != nil {
		fail(report.ExitInvalidInput, err)
	}

	printer := report.NewPrinter(os.Stdout, format, quiet, verbose)
	printer.Subscribe()
	defer printer.Unsubscribe()

	runErr := engine.New(m).Run(cmd.Context(), engine.Options{
		Services: args,
		Tier:     buildTier,
		Strategy: buildResolution,
	})

	switch {
	case runErr != nil:
		printer.SetResult("error", report.ExitInvalidInput, runErr)
	case printer.GetResult().Partial():
		printer.SetResult("partial", report.ExitSuccess, nil)
	default:
		printer.SetResult("success", report.ExitSuccess, nil)
	}
	printer.PrintFinalResult()

	if runErr != nil && format != report.OutputJSON {
		fmt.Fprintln(os.Stderr, "Error:", runErr)
	}
	os.Exit(int(printer.GetResult().ExitCode))
	return nil
}
