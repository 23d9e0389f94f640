package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/envship/envship/internal/manifest"
	"github.com/envship/envship/internal/report"
	"github.com/envship/envship/internal/transport"
)

var pushDir string

var pushCmd = &cobra.Command{
	Use:   "push <target> [service...]",
	Short: "Sync built artifacts to a remote target",
	Long: `Mirror the first destination root to a named remote target over rsync.

Raw .env sources are excluded from the transfer; only built artifacts move.
With service arguments only those services' subtrees are synced. A failed
transfer is retried with exponential backoff before the push gives up.

Examples:
  # Mirror everything to the staging target
  envship push staging

  # One service only
  envship push staging bor-db`,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushDir, "directory", "", "Working directory")
}

func runPush(cmd *cobra.Command, args []string) error {
	format := parseFormat()

	if len(args) == 0 {
		fail(report.ExitInvalidInput, errors.New("target required. Usage: envship push <target> [service...]"))
	}

	m, err := setup(pushDir)
	if err != nil {
		fail(report.ExitInvalidInput, err)
	}

	printer := report.NewPrinter(os.Stdout, format, quiet, verbose)
	printer.Subscribe()
	defer printer.Unsubscribe()

	runErr := transport.New(m).Push(cmd.Context(), args[0], args[1:])

	switch {
	case errors.Is(runErr, manifest.ErrUnknownTarget), errors.Is(runErr, manifest.ErrUnknownService):
		printer.SetResult("error", report.ExitInvalidInput, runErr)
	case runErr != nil:
		printer.SetResult("error", report.ExitError, runErr)
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
