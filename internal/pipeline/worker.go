package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aditywn/csv-pickup/internal/remote"
	"github.com/aditywn/csv-pickup/internal/retry"
	"github.com/aditywn/csv-pickup/internal/validate"
	"github.com/aditywn/csv-pickup/pkg/logger"
)

// OutcomeRecorder receives each finished outcome. Implementations must be
// safe for concurrent use from all workers.
type OutcomeRecorder interface {
	Record(ctx context.Context, outcome ValidationOutcome) error
}

// Pool executes per-file tasks with a bounded number of workers. One Pool
// serves a whole run; the orchestrator feeds it one batch at a time.
type Pool struct {
	store     remote.Store
	validator validate.Validator
	recorder  OutcomeRecorder
	policy    retry.Policy
	opts      Options

	// done counts completed files across batches for progress reporting.
	done  atomic.Int64
	total int
}

// NewPool builds a worker pool. The store is serialized automatically when
// its session does not support concurrent use.
func NewPool(store remote.Store, validator validate.Validator, recorder OutcomeRecorder,
	policy retry.Policy, opts Options) *Pool {
	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}
	return &Pool{
		store:     remote.Serialize(store),
		validator: validator,
		recorder:  recorder,
		policy:    policy,
		opts:      opts,
	}
}

// BatchStats are the per-state counts of one batch.
type BatchStats struct {
	Valid   int
	Invalid int
	Error   int
}

// RunBatch processes every descriptor of one batch, at most WorkerCount
// tasks in flight. It always drains the whole batch: task failures are
// isolated and become error outcomes, never batch aborts. Each descriptor
// yields exactly one outcome.
func (p *Pool) RunBatch(ctx context.Context, batch []FileDescriptor) BatchStats {
	jobs := make(chan FileDescriptor, len(batch))
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		stats BatchStats
	)

	for i := 0; i < p.opts.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fd := range jobs {
				outcome := p.processFile(ctx, fd)

				mu.Lock()
				switch outcome.State {
				case StateValid:
					stats.Valid++
				case StateInvalid:
					stats.Invalid++
				default:
					stats.Error++
				}
				mu.Unlock()

				done := int(p.done.Add(1))
				if p.opts.OnProgress != nil {
					p.opts.OnProgress(done, p.total)
				}
			}
		}()
	}

	for _, fd := range batch {
		jobs <- fd
	}
	close(jobs)
	wg.Wait()

	return stats
}

// processFile runs one task: fetch with retry, validate, record, and
// optionally delete the remote copy. It always returns the single outcome
// for the descriptor; no failure mode drops a file silently.
func (p *Pool) processFile(ctx context.Context, fd FileDescriptor) ValidationOutcome {
	start := time.Now()
	localPath := filepath.Join(p.opts.DownloadDir, fd.Filename)

	err := p.policy.Do(ctx, "fetch "+fd.RemotePath, func() error {
		return p.store.Fetch(ctx, fd.RemotePath, localPath)
	})
	if err != nil {
		// Fetch exhausted: record the error outcome and skip validation
		// and deletion entirely. A file that was never fetched must never
		// be deleted remotely.
		outcome := p.errorOutcome(fd, "fetch failed: "+err.Error())
		p.record(ctx, outcome)
		return outcome
	}

	content, err := os.ReadFile(localPath)
	if err != nil {
		outcome := p.errorOutcome(fd, "read local copy: "+err.Error())
		p.record(ctx, outcome)
		return outcome
	}

	result := p.validator.Validate(content)
	state := StateValid
	if len(result.Errors) > 0 {
		state = StateInvalid
	}
	outcome := ValidationOutcome{
		Filename:  fd.Filename,
		State:     state,
		Errors:    result.Errors,
		Warnings:  result.Warnings,
		Info:      result.Info,
		Timestamp: time.Now(),
	}

	if !p.record(ctx, outcome) {
		outcome.State = StateError
		return outcome
	}

	if p.opts.DeleteAfterFetch {
		// Only reached after a confirmed fetch. A delete failure does not
		// revert the fetch or the recorded outcome.
		err := p.policy.Do(ctx, "delete "+fd.RemotePath, func() error {
			return p.store.Delete(ctx, fd.RemotePath)
		})
		if err != nil {
			logger.Log.Error().
				Str("file", fd.Filename).
				Err(err).
				Msg("remote delete failed, remote copy left in place")
		}
	}

	logger.Log.Debug().
		Str("file", fd.Filename).
		Str("state", string(outcome.State)).
		Dur("took", time.Since(start)).
		Msg("file processed")
	return outcome
}

// record writes the outcome through the recorder. A failed write is fatal
// to this task only: it is logged loudly and the task counts as an error.
func (p *Pool) record(ctx context.Context, outcome ValidationOutcome) bool {
	if err := p.recorder.Record(ctx, outcome); err != nil {
		logger.Log.Error().
			Str("file", outcome.Filename).
			Err(err).
			Msg("failed to record outcome")
		return false
	}
	return true
}

func (p *Pool) errorOutcome(fd FileDescriptor, msg string) ValidationOutcome {
	logger.Log.Error().Str("file", fd.Filename).Str("reason", msg).Msg("file errored")
	return ValidationOutcome{
		Filename:  fd.Filename,
		State:     StateError,
		Errors:    []string{msg},
		Timestamp: time.Now(),
	}
}
