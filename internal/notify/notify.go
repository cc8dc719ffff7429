// Package notify delivers the end-of-run report to operators. The pipeline
// never imports this package; cmd wires a Notifier after the run.
package notify

import "context"

// Notifier sends one run report. body is the human-readable summary;
// logPath points at the validation log to attach (empty skips the
// attachment).
type Notifier interface {
	Notify(ctx context.Context, subject, body, logPath string) error
}

// Noop is the Notifier used when notification settings are absent.
type Noop struct{}

func (Noop) Notify(ctx context.Context, subject, body, logPath string) error { return nil }
