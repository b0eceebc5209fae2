package watcher

import (
	"context"
	"time"
)

// Watcher feeds recordings that appear in a folder to a Handler.
type Watcher interface {
	// Start blocks until ctx ends, then waits for running handlers.
	Start(ctx context.Context) error
	Stop() error
}

// Handler processes one recording. Errors are logged, not retried.
type Handler func(ctx context.Context, path string) error

// Options configures a Watcher.
type Options struct {
	Dir           string
	MaxConcurrent int
	// Settle is the poll interval used to decide that a file stopped growing.
	Settle time.Duration
	// Backlog dispatches recordings already in Dir when Start is called.
	Backlog bool
}
