package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/envship/envship/internal/pull"
	"github.com/envship/envship/internal/report"
)

var pullDir string

var pullCmd = &cobra.Command{
	Use:   "pull [service...]",
	Short: "Stage env sources from service checkouts",
	Long: `Copy raw .env files from each service's checkout into the staging root.

Only file names matching the service's include patterns are staged, and the
staged copies are pinned to mode 0600. Services without a configured checkout
are skipped; a missing checkout directory is reported and the pull continues.

Examples:
  # Stage every service with a checkout
  envship pull

  # Stage one service
  envship pull bor-db`,
	RunE: runPull,
}

func init() {
	pullCmd.Flags().StringVar(&pullDir, "directory", "", "Working directory")
}

func runPull(cmd *cobra.Command, args []string) error {
	format := parseFormat()

	m, err := setup(pullDir)
	if err != nil {
		fail(report.ExitInvalidInput, err)
	}

	printer := report.NewPrinter(os.Stdout, format, quiet, verbose)
	printer.Subscribe()
	defer printer.Unsubscribe()

	runErr := pull.New(m).Run(cmd.Context(), args)
	if runErr != nil {
		printer.SetResult("error", report.ExitInvalidInput, runErr)
	} else {
		printer.SetResult("success", report.ExitSuccess, nil)
	}
	printer.PrintFinalResult()

	if runErr != nil && format != report.OutputJSON {
		fmt.Fprintln(os.Stderr, "Error:", runErr)
	}
	os.Exit(int(printer.GetResult().ExitCode))
	return nil
}
