package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/envship/envship/internal/engine"
	"github.com/envship/envship/internal/report"
	"github.com/envship/envship/internal/watch"
)

var watchDir string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild artifacts when sources change",
	Long: `Build the whole fleet once, then watch the staging root and rebuild a
service's artifacts whenever its sources change.

Changes arriving in quick succession are coalesced into one rebuild per
service. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "directory", "", "Working directory")
}

func runWatch(cmd *cobra.Command, args []string) error {
	format := parseFormat()

	if len(args) > 0 {
		fail(report.ExitInvalidInput, errors.New("watch takes no arguments; it covers every manifest service"))
	}

	m, err := setup(watchDir)
	if err != nil {
		fail(report.ExitInvalidInput, err)
	}

	printer := report.NewPrinter(os.Stdout, format, quiet, verbose)
	printer.Subscribe()
	defer printer.Unsubscribe()

	eng := engine.New(m)

	// Initial full build so the watch starts from current artifacts.
	if err := eng.Run(cmd.Context(), engine.Options{}); err != nil {
		fail(report.ExitError, err)
	}

	watcher, err := watch.NewWatcher(m, eng)
	if err != nil {
		fail(report.ExitInvalidInput, err)
	}
	watcher.Start()

	if format == report.OutputText && !quiet {
		fmt.Fprintf(os.Stdout, "[watch] watching %s for changes\n", m.SourceRoot)
	}

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	if err := watcher.Stop(); err != nil {
		return err
	}

	if format == report.OutputText && !quiet {
		fmt.Fprintln(os.Stdout, "\n[done] watch stopped")
	}
	return nil
}
