package pipeline

import (
	"context"
	"fmt"
	"time"
)

// FileDescriptor identifies one remote file discovered by traversal.
// Produced once by discovery, consumed exactly once by a worker task.
type FileDescriptor struct {
	RemotePath string
	Filename   string
}

// OutcomeState classifies a per-file result.
type OutcomeState string

const (
	// StateValid: fetched and the validator reported no errors.
	StateValid OutcomeState = "valid"
	// StateInvalid: fetched but the validator reported errors.
	StateInvalid OutcomeState = "invalid"
	// StateError: the file never made it to validation (fetch exhausted,
	// unreadable local copy, or a failed log append).
	StateError OutcomeState = "error"
)

// ValidationOutcome is the per-file result record. Created once by a worker
// task, written once to the sink, never mutated afterwards.
type ValidationOutcome struct {
	Filename  string
	State     OutcomeState
	Errors    []string
	Warnings  []string
	Info      []string
	Timestamp time.Time
}

// Discoverer produces the descriptors for one run.
type Discoverer interface {
	Discover(ctx context.Context, roots []string) ([]FileDescriptor, error)
}

// Options configures one run of the orchestrator.
type Options struct {
	// BatchSize caps how many descriptors one worker-pool pass handles.
	BatchSize int
	// WorkerCount is the bound on tasks in flight within a batch.
	WorkerCount int
	// DownloadDir receives fetched files.
	DownloadDir string
	// DeleteAfterFetch removes the remote copy once a fetch succeeded.
	DeleteAfterFetch bool
	// OnProgress, when set, is invoked after every completed file with the
	// number of files done so far and the run total. Called from worker
	// goroutines; implementations must be safe for concurrent use.
	OnProgress func(done, total int)
}

// DefaultOptions returns the defaults of the original pickup job: batches
// of 50 and ten workers.
func DefaultOptions(downloadDir string) Options {
	return Options{
		BatchSize:   50,
		WorkerCount: 10,
		DownloadDir: downloadDir,
	}
}

// RunSummary aggregates all outcomes of one run. Counts are commutative,
// so accumulation order across workers does not matter.
type RunSummary struct {
	RunID        string
	TotalFiles   int
	ValidCount   int
	InvalidCount int
	ErrorCount   int
	StartedAt    time.Time
	CompletedAt  time.Time
}

// String renders the human-readable summary block reported at the end of a
// run and sent in notifications.
func (s *RunSummary) String() string {
	return fmt.Sprintf("Validation Summary:\nTotal Files: %d\nValid Files: %d\nInvalid Files: %d\nError Files: %d",
		s.TotalFiles, s.ValidCount, s.InvalidCount, s.ErrorCount)
}
