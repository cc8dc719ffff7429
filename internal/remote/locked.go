package remote

import (
	"context"
	"sync"
)

// Locked serializes all operations on a Store whose session does not
// support concurrent use. Workers share the one session; the mutex keeps
// at most one remote operation in flight.
type Locked struct {
	mu    sync.Mutex
	inner Store
}

// Serialize wraps store in a Locked unless it is already concurrency-safe.
func Serialize(store Store) Store {
	if store.Concurrent() {
		return store
	}
	return &Locked{inner: store}
}

func (l *Locked) List(ctx context.Context, path string) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.List(ctx, path)
}

func (l *Locked) Fetch(ctx context.Context, remotePath, localPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Fetch(ctx, remotePath, localPath)
}

func (l *Locked) Delete(ctx context.Context, remotePath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Delete(ctx, remotePath)
}

func (l *Locked) Concurrent() bool { return true }

func (l *Locked) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Close()
}

var _ Store = (*Locked)(nil)
