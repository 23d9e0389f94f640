// Package commands provides the CLI commands for envship.
package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/envship/envship/internal/logging"
	"github.com/envship/envship/internal/manifest"
	"github.com/envship/envship/internal/report"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs    bool
	logLevel     string
	manifestPath string
	outputFormat string
	quiet        bool
	verbose      bool
	noColor      bool
)

var rootCmd = &cobra.Command{
	Use:   "envship",
	Short: "envship - env file manager for service fleets",
	Long: `envship stages raw .env files from service checkouts, merges them per
tier, resolves cross-references, and writes the result as deployable
artifacts.

Run 'envship build' to produce artifacts, 'envship pull' to stage sources,
or 'envship push' to sync a destination root to a remote target.`,
	Version: Version,
	// If no subcommand, show help
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr instead of the log file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "Manifest file (overrides discovery)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output-format", "o", "text", "Output format: text, json, jsonl")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output, only show artifact paths")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show per-pair and per-file progress")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Version template
	rootCmd.SetVersionTemplate(fmt.Sprintf("envship %s (%s)\n", Version, BuildTime))

	// Add subcommands
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(watchCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// setup loads the layered manifest for the working directory and points the
// global logger where the manifest says logs go. Every command calls this
// first; a failure here is a configuration error.
func setup(dir string) (*manifest.Manifest, error) {
	if noColor {
		color.NoColor = true
	}

	workDir, err := GetWorkDir(dir)
	if err != nil {
		return nil, err
	}

	if manifestPath != "" {
		// Load honors ENVSHIP_MANIFEST as an explicit file layer; route the
		// flag through it.
		os.Setenv("ENVSHIP_MANIFEST", manifestPath)
	}

	if err := manifest.GetPaths().EnsurePaths(); err != nil {
		return nil, err
	}

	m, err := manifest.Load(workDir)
	if err != nil {
		return nil, err
	}

	initLogging(m)
	return m, nil
}

// initLogging configures the global logger. Logs default to the manifest log
// file so command output stays clean; --print-logs redirects them to stderr.
func initLogging(m *manifest.Manifest) {
	cfg := logging.DefaultConfig()

	level := m.Log.Level
	if level == "" || rootCmd.PersistentFlags().Changed("log-level") {
		level = logLevel
	}
	cfg.Level = logging.ParseLevel(level)

	if printLogs {
		cfg.Pretty = true
		logging.Init(cfg)
		return
	}

	path := m.Log.File
	if path == "" {
		path = manifest.GetPaths().LogFilePath()
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logging.Init(cfg)
		return
	}
	cfg.Output = file
	logging.Init(cfg)
}

// parseFormat validates the global output format flag.
func parseFormat() report.OutputFormat {
	format, ok := report.ParseFormat(outputFormat)
	if !ok {
		fail(report.ExitInvalidInput, fmt.Errorf("invalid output format: %s (must be text, json, or jsonl)", outputFormat))
	}
	return format
}

// fail prints err to stderr and terminates with the given exit code.
func fail(code report.ExitCode, err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(int(code))
}
