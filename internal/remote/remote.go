// Package remote abstracts the remote hierarchical file store the pipeline
// pulls from. Adapters translate transport-specific listings into Entry
// values; everything above this package only sees the Store interface.
package remote

import (
	"context"
	"fmt"
	"io/fs"
)

// Entry is one row of a directory listing.
type Entry struct {
	Name string
	// IsDir reports whether the entry is a directory (derived from the
	// transport's raw mode bits).
	IsDir bool
	// RawMode carries the transport's mode bits for callers that need them.
	RawMode fs.FileMode
	Size    int64
}

// Store captures the minimal remote operations the pipeline needs.
// Implementations report via Concurrent whether a single session may be used
// from multiple goroutines; non-concurrent stores get wrapped in Locked.
type Store interface {
	// List returns the entries of one remote directory.
	List(ctx context.Context, path string) ([]Entry, error)

	// Fetch downloads a remote file to localPath. The local file only
	// appears at localPath once the download completed; interrupted
	// fetches leave no partial file at the final path.
	Fetch(ctx context.Context, remotePath, localPath string) error

	// Delete removes a remote file.
	Delete(ctx context.Context, remotePath string) error

	// Concurrent reports whether the session is safe for concurrent use.
	Concurrent() bool

	Close() error
}

// AuthError is a credential failure at session open. Fatal to the run.
type AuthError struct {
	Host string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Host, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// TransportError is a connection-level failure at session open. Fatal to
// the run, as opposed to per-operation errors which are retried.
type TransportError struct {
	Host string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure for %s: %v", e.Host, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
