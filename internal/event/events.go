package event

// EventType represents the type of event.
type EventType string

const (
	RunStarted   EventType = "run.started"
	RunCompleted EventType = "run.completed"

	PairStarted         EventType = "pair.started"
	PairSkipped         EventType = "pair.skipped"
	PairFailed          EventType = "pair.failed"
	ReferenceUnresolved EventType = "pair.unresolved_reference"
	ArtifactWritten     EventType = "artifact.written"

	FileStaged    EventType = "pull.file_staged"
	RepoMissing   EventType = "pull.repo_missing"
	PullCompleted EventType = "pull.completed"

	SyncStarted   EventType = "push.started"
	SyncRetry     EventType = "push.retry"
	SyncCompleted EventType = "push.completed"

	WatchTriggered EventType = "watch.triggered"
)

// Event represents an event to be published.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// RunStartedData announces a batch run over the selected services and tiers.
type RunStartedData struct {
	RunID    string   `json:"runId"`
	Services []string `json:"services"`
	Tiers    []string `json:"tiers"`
}

// RunCompletedData closes a batch run.
type RunCompletedData struct {
	RunID      string `json:"runId"`
	DurationMS int64  `json:"durationMs"`
}

// PairData identifies one (service, tier) processing unit.
type PairData struct {
	Service string `json:"service"`
	Tier    string `json:"tier"`
}

// PairSkippedData records a recoverable per-pair condition: the pair was
// skipped and the batch continued.
type PairSkippedData struct {
	Service string `json:"service"`
	Tier    string `json:"tier"`
	Reason  string `json:"reason"`
}

// PairFailedData records a per-pair failure that did not abort the batch.
type PairFailedData struct {
	Service string `json:"service"`
	Tier    string `json:"tier"`
	Err     string `json:"error"`
}

// UnresolvedData reports a ${VAR} reference left literal in the output.
type UnresolvedData struct {
	Service string `json:"service"`
	Tier    string `json:"tier"`
	Name    string `json:"name"`
	Line    int    `json:"line"`
}

// ArtifactWrittenData reports one artifact landed at one destination.
type ArtifactWrittenData struct {
	Service string `json:"service"`
	Tier    string `json:"tier"`
	Path    string `json:"path"`
	Bytes   int    `json:"bytes"`
	Lines   int    `json:"lines"`
}

// FileStagedData reports one source file copied into the staging root.
type FileStagedData struct {
	Service string `json:"service"`
	File    string `json:"file"`
	Bytes   int    `json:"bytes"`
}

// RepoMissingData reports a service whose source checkout was not found.
type RepoMissingData struct {
	Service string `json:"service"`
	Path    string `json:"path"`
}

// PullCompletedData closes a pull over the selected services.
type PullCompletedData struct {
	Services int `json:"services"`
	Files    int `json:"files"`
}

// SyncData describes a transfer to a named remote target.
type SyncData struct {
	Target string `json:"target"`
	Remote string `json:"remote"`
	Local  string `json:"local"`
}

// SyncRetryData reports one failed attempt before a retry.
type SyncRetryData struct {
	Target  string `json:"target"`
	Attempt int    `json:"attempt"`
	Err     string `json:"error"`
}

// SyncCompletedData closes a transfer.
type SyncCompletedData struct {
	Target   string `json:"target"`
	Attempts int    `json:"attempts"`
}

// WatchTriggeredData reports a source change that queued a rebuild.
type WatchTriggeredData struct {
	Service string `json:"service"`
	Path    string `json:"path"`
}
