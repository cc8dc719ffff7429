package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/aditywn/csv-pickup/internal/pipeline"
)

// logHeader precedes all records, matching the log consumers' expectations.
const logHeader = "File,Validation State,Errors,Warnings,Info\n"

// LogWriter is the append-only validation log. All workers share one
// writer; the mutex plus single-Write records guarantee lines are never
// interleaved or torn.
type LogWriter struct {
	mu   sync.Mutex
	file *os.File
}

// OpenLog truncates (or creates) the log at path and writes the header.
// Each run starts a fresh log, as the original job did.
func OpenLog(path string) (*LogWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	if _, err := file.WriteString(logHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("write log header: %w", err)
	}
	return &LogWriter{file: file}, nil
}

// Append writes one outcome as a single log line.
func (w *LogWriter) Append(outcome pipeline.ValidationOutcome) error {
	line := FormatRecord(outcome)

	w.mu.Lock()
	defer w.mu.Unlock()
	// One Write call per record, under the lock, so a record's bytes are
	// contiguous in the file regardless of writer concurrency.
	if _, err := w.file.WriteString(line); err != nil {
		return err
	}
	return nil
}

// Close flushes and closes the log file.
func (w *LogWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// FormatRecord renders one outcome as a log line: filename, state, and the
// three detail lists JSON-encoded so commas inside messages cannot split
// the record.
func FormatRecord(outcome pipeline.ValidationOutcome) string {
	return fmt.Sprintf("%s,%s,%s,%s,%s\n",
		outcome.Filename,
		outcome.State,
		marshalList(outcome.Errors),
		marshalList(outcome.Warnings),
		marshalList(outcome.Info),
	)
}

func marshalList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		// A []string cannot fail to marshal; keep the record rather than
		// dropping it if that ever changes.
		return fmt.Sprintf("%q", fmt.Sprint(items))
	}
	return string(b)
}
