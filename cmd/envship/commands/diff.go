package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/envship/envship/internal/artifact"
	"github.com/envship/envship/internal/engine"
	"github.com/envship/envship/internal/envfile"
	"github.com/envship/envship/internal/manifest"
	"github.com/envship/envship/internal/report"
)

var (
	diffTier string
	diffDir  string
)

var diffCmd = &cobra.Command{
	Use:   "diff [service...]",
	Short: "Show drift between sources and deployed artifacts",
	Long: `Compose artifacts in memory and compare them against what is deployed at
every destination root, without writing anything.

The report is informational: drift does not change the exit status. Only an
invalid selection or an unreadable deployed artifact does.

Examples:
  # Drift across the whole fleet
  envship diff

  # One pair
  envship diff bor-db --tier production

  # Drifted paths only, for scripting
  envship diff -q`,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVarP(&diffTier, "tier", "t", "", "Restrict the diff to one tier")
	diffCmd.Flags().StringVar(&diffDir, "directory", "", "Working directory")
}

// diffEntry is the machine-readable form of one drifted artifact.
type diffEntry struct {
	Service   string `json:"service"`
	Tier      string `json:"tier"`
	Path      string `json:"path"`
	Missing   bool   `json:"missing,omitempty"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	format := parseFormat()

	m, err := setup(diffDir)
	if err != nil {
		fail(report.ExitInvalidInput, err)
	}

	tiers := envfile.Tiers()
	if diffTier != "" {
		tier, terr := envfile.ParseTier(diffTier)
		if terr != nil {
			fail(report.ExitInvalidInput, terr)
		}
		tiers = []envfile.Tier{tier}
	}

	services := m.Services
	if len(args) > 0 {
		picked := make([]manifest.Service, 0, len(args))
		for _, name := range args {
			svc, serr := m.Service(name)
			if serr != nil {
				fail(report.ExitInvalidInput, serr)
			}
			picked = append(picked, *svc)
		}
		services = picked
	}

	eng := engine.New(m)
	strategy := m.Strategy()

	entries := []diffEntry{}
	drifted := 0
	failed := false

	for _, svc := range services {
		for _, tier := range tiers {
			doc, _, cerr := eng.Compose(svc.Name, tier, strategy)
			if cerr != nil {
				// Nothing to compare for pairs without usable sources.
				if format == report.OutputText && verbose && !quiet {
					fmt.Fprintf(os.Stdout, "[skip] %s/%s: %v\n", svc.Name, tier, cerr)
				}
				continue
			}
			for _, root := range m.Destinations {
				delta, derr := artifact.Drift(doc, root, svc.Name, tier)
				if derr != nil {
					fmt.Fprintln(os.Stderr, "Error:", derr)
					failed = true
					continue
				}
				if !delta.Clean() {
					drifted++
					entries = append(entries, diffEntry{
						Service:   svc.Name,
						Tier:      string(tier),
						Path:      delta.Path,
						Missing:   delta.Missing,
						Additions: delta.Additions,
						Deletions: delta.Deletions,
					})
				}
				if format == report.OutputText {
					if quiet {
						if !delta.Clean() {
							fmt.Fprintln(os.Stdout, delta.Path)
						}
					} else {
						renderDelta(os.Stdout, delta)
					}
				}
			}
		}
	}

	switch format {
	case report.OutputJSON:
		data, merr := json.MarshalIndent(entries, "", "  ")
		if merr == nil {
			fmt.Fprintln(os.Stdout, string(data))
		}
	case report.OutputJSONL:
		for _, entry := range entries {
			data, merr := json.Marshal(entry)
			if merr != nil {
				continue
			}
			fmt.Fprintln(os.Stdout, string(data))
		}
	default:
		if !quiet {
			if drifted == 0 {
				fmt.Fprintln(os.Stdout, "\n[done] deployed artifacts match")
			} else {
				fmt.Fprintf(os.Stdout, "\n[done] %d artifact(s) drifted\n", drifted)
			}
		}
	}

	if failed {
		os.Exit(int(report.ExitError))
	}
	return nil
}

// renderDelta prints one artifact comparison in text form. Clean artifacts
// only show up verbose; drifted ones include their changed lines.
func renderDelta(w io.Writer, delta artifact.Delta) {
	switch {
	case delta.Clean():
		if verbose {
			fmt.Fprintf(w, "[clean] %s\n", delta.Path)
		}
	case delta.Missing:
		fmt.Fprintf(w, "%s %s (+%d)\n",
			color.New(color.FgYellow).Sprint("[missing]"), delta.Path, delta.Additions)
	default:
		fmt.Fprintf(w, "%s %s (+%d -%d)\n",
			color.New(color.FgRed).Sprint("[drift]"), delta.Path, delta.Additions, delta.Deletions)
		for _, chunk := range delta.Chunks {
			switch chunk.Op {
			case artifact.ChunkInsert:
				printChunk(w, "+", color.FgGreen, chunk.Text)
			case artifact.ChunkDelete:
				printChunk(w, "-", color.FgRed, chunk.Text)
			}
		}
	}
}

func printChunk(w io.Writer, prefix string, attr color.Attribute, text string) {
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		fmt.Fprintln(w, color.New(attr).Sprintf("  %s%s", prefix, line))
	}
}
