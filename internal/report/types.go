package report

import (
	"time"
)

// OutputFormat defines the output format for run reporting.
type OutputFormat string

const (
	// OutputText is human-readable streaming text output.
	OutputText OutputFormat = "text"
	// OutputJSON is a final JSON result summary.
	OutputJSON OutputFormat = "json"
	// OutputJSONL is streaming JSONL events.
	OutputJSONL OutputFormat = "jsonl"
)

// ParseFormat maps a flag value to an OutputFormat. The empty string
// selects text output.
func ParseFormat(s string) (OutputFormat, bool) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, true
	case OutputJSON:
		return OutputJSON, true
	case OutputJSONL:
		return OutputJSONL, true
	}
	return OutputText, false
}

// ExitCode defines process exit codes.
type ExitCode int

const (
	// ExitSuccess indicates the run completed; per-service skips and
	// failures are reported in the result, not the exit code.
	ExitSuccess ExitCode = 0
	// ExitError indicates a general/unknown error.
	ExitError ExitCode = 1
	// ExitInvalidInput indicates a bad manifest, unknown service or
	// target, or missing required flags.
	ExitInvalidInput ExitCode = 2
)

// WrittenArtifact records one artifact produced during a run.
type WrittenArtifact struct {
	Service string `json:"service"`
	Tier    string `json:"tier"`
	Path    string `json:"path"`
	Bytes   int    `json:"bytes"`
	Lines   int    `json:"lines"`
}

// SkippedPair records a (service, tier) pair that produced no artifact.
type SkippedPair struct {
	Service string `json:"service"`
	Tier    string `json:"tier"`
	Reason  string `json:"reason"`
}

// FailedPair records a (service, tier) pair that errored mid-build.
type FailedPair struct {
	Service string `json:"service"`
	Tier    string `json:"tier"`
	Error   string `json:"error"`
}

// UnresolvedRef records a variable reference left unexpanded in an artifact.
type UnresolvedRef struct {
	Service string `json:"service"`
	Tier    string `json:"tier"`
	Name    string `json:"name"`
	Line    int    `json:"line"`
}

// Result holds the final result of a run.
type Result struct {
	RunID      string            `json:"run_id,omitempty"`
	Status     string            `json:"status"` // "success", "partial", "error"
	DurationMS int64             `json:"duration_ms"`
	Artifacts  []WrittenArtifact `json:"artifacts,omitempty"`
	Skipped    []SkippedPair     `json:"skipped,omitempty"`
	Failed     []FailedPair      `json:"failed,omitempty"`
	Unresolved []UnresolvedRef   `json:"unresolved,omitempty"`
	Staged     int               `json:"staged_files,omitempty"`
	Synced     []string          `json:"synced_targets,omitempty"`
	Error      string            `json:"error,omitempty"`
	ExitCode   ExitCode          `json:"exit_code"`
}

// Event represents a JSONL event for streaming output.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"ts"`
	Data      any       `json:"data"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}
