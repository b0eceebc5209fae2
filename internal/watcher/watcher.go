package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
)

// A file must keep the same size for this many polls before it is handled.
const stablePolls = 2

var audioFormats = []string{".wav", ".mp3", ".m4a", ".flac", ".ogg", ".webm"}

type implWatcher struct {
	opts    Options
	handler Handler
	logger  logger.Logger
	fsw     *fsnotify.Watcher
	slots   chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

func (w *implWatcher) Start(ctx context.Context) error {
	w.logger.Info(ctx, "File watcher started (max concurrent: %d). Monitoring: %s", w.opts.MaxConcurrent, w.opts.Dir)
	w.logger.Info(ctx, "Supported formats: %s", strings.Join(audioFormats, ", "))

	if w.opts.Backlog {
		if err := w.dispatchBacklog(ctx); err != nil {
			w.logger.Warn(ctx, "Failed to scan existing recordings: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Waiting for ongoing processing to complete...")
			w.wg.Wait()
			w.logger.Info(ctx, "File watcher stopped")
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			// Recordings are created in place or moved in.
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if _, err := os.Stat(event.Name); err != nil {
				continue
			}
			if !isAudioFile(event.Name) {
				w.logger.Debug(ctx, "Ignoring non-audio file: %s", event.Name)
				continue
			}
			w.logger.Info(ctx, "New recording detected: %s", event.Name)
			if err := w.dispatch(ctx, event.Name); err != nil {
				return err
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error(ctx, "Watcher error: %v", err)
		}
	}
}

func (w *implWatcher) Stop() error {
	return w.fsw.Close()
}

func (w *implWatcher) dispatchBacklog(ctx context.Context) error {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && isAudioFile(e.Name()) {
			paths = append(paths, filepath.Join(w.opts.Dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) > 0 {
		w.logger.Info(ctx, "Found %d recording(s) waiting in %s", len(paths), w.opts.Dir)
	}
	for _, p := range paths {
		if err := w.dispatch(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// dispatch hands path to the handler once it has a free slot. It returns
// only ctx errors.
func (w *implWatcher) dispatch(ctx context.Context, path string) error {
	if !w.claim(path) {
		w.logger.Debug(ctx, "Already processing: %s", path)
		return nil
	}

	select {
	case w.slots <- struct{}{}:
	case <-ctx.Done():
		w.unclaim(path)
		return ctx.Err()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.slots }()
		defer w.unclaim(path)

		if err := w.waitStable(ctx, path); err != nil {
			w.logger.Warn(ctx, "Skipping %s: %v", path, err)
			return
		}
		if err := w.handler(ctx, path); err != nil {
			w.logger.Error(ctx, "Failed to process %s: %v", path, err)
		}
	}()
	return nil
}

func (w *implWatcher) claim(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inflight[path]; ok {
		return false
	}
	w.inflight[path] = struct{}{}
	return true
}

func (w *implWatcher) unclaim(path string) {
	w.mu.Lock()
	delete(w.inflight, path)
	w.mu.Unlock()
}

// waitStable polls the file size until it is non-zero and unchanged for
// stablePolls consecutive polls.
func (w *implWatcher) waitStable(ctx context.Context, path string) error {
	ticker := time.NewTicker(w.opts.Settle)
	defer ticker.Stop()

	last, same := int64(-1), 0
	for {
		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		if size := fi.Size(); size > 0 && size == last {
			same++
			if same >= stablePolls {
				return nil
			}
		} else {
			last, same = size, 0
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// isAudioFile reports whether path has a supported audio extension.
// Hidden files are skipped.
func isAudioFile(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range audioFormats {
		if ext == format {
			return true
		}
	}
	return false
}
