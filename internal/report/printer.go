package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/envship/envship/internal/event"
)

// Printer handles event output in various formats for batch runs.
type Printer struct {
	mu          sync.Mutex
	writer      io.Writer
	format      OutputFormat
	quiet       bool
	verbose     bool
	unsubscribe func()
	runID       string
	startTime   time.Time
	result      *Result
}

// NewPrinter creates a new event printer.
func NewPrinter(writer io.Writer, format OutputFormat, quiet, verbose bool) *Printer {
	return &Printer{
		writer:    writer,
		format:    format,
		quiet:     quiet,
		verbose:   verbose,
		startTime: time.Now(),
		result: &Result{
			Status:   "running",
			ExitCode: ExitSuccess,
		},
	}
}

// Subscribe starts listening to events.
func (p *Printer) Subscribe() {
	p.unsubscribe = event.SubscribeAll(p.handleEvent)
}

// Unsubscribe stops listening to events.
func (p *Printer) Unsubscribe() {
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
}

// GetResult returns the current result.
func (p *Printer) GetResult() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.result.DurationMS = time.Since(p.startTime).Milliseconds()
	return p.result
}

// SetResult updates the result with final values.
func (p *Printer) SetResult(status string, exitCode ExitCode, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.result.Status = status
	p.result.ExitCode = exitCode
	if err != nil {
		p.result.Error = err.Error()
	}
	p.result.DurationMS = time.Since(p.startTime).Milliseconds()
}

// PrintFinalResult prints the final JSON result (for json format).
func (p *Printer) PrintFinalResult() {
	if p.format != OutputJSON {
		return
	}

	result := p.GetResult()
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(p.writer, string(data))
}

// handleEvent processes incoming events and outputs them according to format.
func (p *Printer) handleEvent(e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Track every event so the result carries counts in all formats.
	p.trackEvent(e)

	switch p.format {
	case OutputText:
		p.handleTextEvent(e)
	case OutputJSON:
		// JSON format only outputs the final result.
	case OutputJSONL:
		p.handleJSONLEvent(e)
	}
}

// handleTextEvent outputs events in human-readable text format.
func (p *Printer) handleTextEvent(e event.Event) {
	if p.quiet {
		// In quiet mode, only output artifact paths.
		if e.Type == event.ArtifactWritten {
			if data, ok := e.Data.(event.ArtifactWrittenData); ok {
				fmt.Fprintln(p.writer, data.Path)
			}
		}
		return
	}

	switch e.Type {
	case event.RunStarted:
		if data, ok := e.Data.(event.RunStartedData); ok {
			fmt.Fprintf(p.writer, "[run:%s] Building %d service(s) for %s\n",
				truncateID(data.RunID), len(data.Services), strings.Join(data.Tiers, ", "))
		}

	case event.RunCompleted:
		if _, ok := e.Data.(event.RunCompletedData); ok {
			duration := time.Since(p.startTime)
			fmt.Fprintf(p.writer, "\n[done] %d artifact(s) in %s", len(p.result.Artifacts), formatDuration(duration))
			if n := len(p.result.Skipped); n > 0 {
				fmt.Fprintf(p.writer, ", %d skipped", n)
			}
			if n := len(p.result.Failed); n > 0 {
				fmt.Fprintf(p.writer, ", %s", color.New(color.FgRed).Sprintf("%d failed", n))
			}
			fmt.Fprintln(p.writer)
		}

	case event.PairStarted:
		if data, ok := e.Data.(event.PairData); ok && p.verbose {
			fmt.Fprintf(p.writer, "[pair] %s/%s\n", data.Service, data.Tier)
		}

	case event.PairSkipped:
		if data, ok := e.Data.(event.PairSkippedData); ok {
			fmt.Fprintf(p.writer, "%s %s/%s: %s\n",
				color.New(color.FgYellow).Sprint("[skip]"), data.Service, data.Tier, data.Reason)
		}

	case event.PairFailed:
		if data, ok := e.Data.(event.PairFailedData); ok {
			fmt.Fprintf(p.writer, "%s %s/%s: %s\n",
				color.New(color.FgRed).Sprint("[fail]"), data.Service, data.Tier, data.Err)
		}

	case event.ReferenceUnresolved:
		if data, ok := e.Data.(event.UnresolvedData); ok {
			fmt.Fprintf(p.writer, "%s %s/%s: unresolved ${%s} (line %d)\n",
				color.New(color.FgYellow).Sprint("[warn]"), data.Service, data.Tier, data.Name, data.Line)
		}

	case event.ArtifactWritten:
		if data, ok := e.Data.(event.ArtifactWrittenData); ok {
			fmt.Fprintf(p.writer, "%s %s (%d B, %d lines)\n",
				color.New(color.FgGreen).Sprint("[write]"), data.Path, data.Bytes, data.Lines)
		}

	case event.FileStaged:
		if data, ok := e.Data.(event.FileStagedData); ok && p.verbose {
			fmt.Fprintf(p.writer, "[pull] %s: %s (%d B)\n", data.Service, data.File, data.Bytes)
		}

	case event.RepoMissing:
		if data, ok := e.Data.(event.RepoMissingData); ok {
			fmt.Fprintf(p.writer, "%s %s: no checkout at %s\n",
				color.New(color.FgYellow).Sprint("[warn]"), data.Service, data.Path)
		}

	case event.PullCompleted:
		if data, ok := e.Data.(event.PullCompletedData); ok {
			fmt.Fprintf(p.writer, "[done] Staged %d file(s) from %d service(s)\n", data.Files, data.Services)
		}

	case event.SyncStarted:
		if data, ok := e.Data.(event.SyncData); ok {
			fmt.Fprintf(p.writer, "[push:%s] %s -> %s\n", data.Target, data.Local, data.Remote)
		}

	case event.SyncRetry:
		if data, ok := e.Data.(event.SyncRetryData); ok {
			fmt.Fprintf(p.writer, "%s %s: attempt %d failed: %s\n",
				color.New(color.FgYellow).Sprint("[retry]"), data.Target, data.Attempt, data.Err)
		}

	case event.SyncCompleted:
		if data, ok := e.Data.(event.SyncCompletedData); ok {
			fmt.Fprintf(p.writer, "[done] %s synced", data.Target)
			if data.Attempts > 1 {
				fmt.Fprintf(p.writer, " after %d attempts", data.Attempts)
			}
			fmt.Fprintln(p.writer)
		}

	case event.WatchTriggered:
		if data, ok := e.Data.(event.WatchTriggeredData); ok {
			fmt.Fprintf(p.writer, "[watch] %s: %s\n", data.Service, data.Path)
		}
	}
}

// handleJSONLEvent outputs events in JSONL format.
func (p *Printer) handleJSONLEvent(e event.Event) {
	// Filter events if not verbose
	if !p.verbose && !isImportantEvent(e.Type) {
		return
	}

	evt := NewEvent(string(e.Type), e.Data)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	fmt.Fprintln(p.writer, string(data))
}

// trackEvent tracks events for the final result.
func (p *Printer) trackEvent(e event.Event) {
	switch e.Type {
	case event.RunStarted:
		if data, ok := e.Data.(event.RunStartedData); ok {
			p.runID = data.RunID
			p.result.RunID = data.RunID
		}

	case event.ArtifactWritten:
		if data, ok := e.Data.(event.ArtifactWrittenData); ok {
			p.result.Artifacts = append(p.result.Artifacts, WrittenArtifact{
				Service: data.Service,
				Tier:    data.Tier,
				Path:    data.Path,
				Bytes:   data.Bytes,
				Lines:   data.Lines,
			})
		}

	case event.PairSkipped:
		if data, ok := e.Data.(event.PairSkippedData); ok {
			p.result.Skipped = append(p.result.Skipped, SkippedPair{
				Service: data.Service,
				Tier:    data.Tier,
				Reason:  data.Reason,
			})
		}

	case event.PairFailed:
		if data, ok := e.Data.(event.PairFailedData); ok {
			p.result.Failed = append(p.result.Failed, FailedPair{
				Service: data.Service,
				Tier:    data.Tier,
				Error:   data.Err,
			})
		}

	case event.ReferenceUnresolved:
		if data, ok := e.Data.(event.UnresolvedData); ok {
			p.result.Unresolved = append(p.result.Unresolved, UnresolvedRef{
				Service: data.Service,
				Tier:    data.Tier,
				Name:    data.Name,
				Line:    data.Line,
			})
		}

	case event.FileStaged:
		p.result.Staged++

	case event.SyncCompleted:
		if data, ok := e.Data.(event.SyncCompletedData); ok {
			p.result.Synced = append(p.result.Synced, data.Target)
		}
	}
}

// Partial reports whether any pair was skipped or failed.
func (r *Result) Partial() bool {
	return len(r.Skipped) > 0 || len(r.Failed) > 0
}

// Helper functions

func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func isImportantEvent(eventType event.EventType) bool {
	switch eventType {
	case event.PairStarted, event.FileStaged:
		// Per-pair and per-file progress is chatty; only shown verbose.
		return false
	default:
		return true
	}
}
