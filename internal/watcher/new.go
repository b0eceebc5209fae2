package watcher

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
)

const (
	defaultMaxConcurrent = 2
	defaultSettle        = 500 * time.Millisecond
)

// New watches opts.Dir. Each recording is handled at most once per process.
func New(opts Options, handler Handler, log logger.Logger) (Watcher, error) {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.Settle <= 0 {
		opts.Settle = defaultSettle
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(opts.Dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", opts.Dir, err)
	}

	return &implWatcher{
		opts:     opts,
		handler:  handler,
		logger:   log,
		fsw:      fw,
		slots:    make(chan struct{}, opts.MaxConcurrent),
		inflight: make(map[string]struct{}),
	}, nil
}
