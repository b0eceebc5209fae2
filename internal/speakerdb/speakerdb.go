// Package speakerdb is the durable name -> embedding store behind speaker
// identification. The whole mapping lives in memory and is rewritten to a
// single msgpack file on every Save.
package speakerdb

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
)

// Embedding is a fixed-length voice embedding vector.
type Embedding []float32

// DB is safe for concurrent use. Mutations and Save are serialized;
// readers may run alongside a Save.
type DB struct {
	mu       sync.RWMutex
	saveMu   sync.Mutex
	path     string
	speakers map[string]Embedding
	logger   logger.Logger
}

// Open creates the parent directory of path and loads the database eagerly.
// A missing or unreadable file yields an empty database, never an error.
func Open(path string, log logger.Logger) *DB {
	db := &DB{
		path:     path,
		speakers: make(map[string]Embedding),
		logger:   log,
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Warn(context.Background(), "Failed to create speaker database dir: %v", err)
	}
	db.Load()
	return db
}

// Path returns the durable file location.
func (db *DB) Path() string {
	return db.path
}

// Load replaces the in-memory mapping with the durable file's contents.
// It reports whether anything was loaded.
func (db *DB) Load() bool {
	ctx := context.Background()

	data, err := os.ReadFile(db.path)
	if errors.Is(err, fs.ErrNotExist) {
		db.reset()
		db.logger.Info(ctx, "No existing speaker database found at: %s", db.path)
		return false
	}
	if err != nil {
		db.reset()
		db.logger.Warn(ctx, "Failed to load speaker database: %v", err)
		return false
	}

	var speakers map[string]Embedding
	if err := msgpack.Unmarshal(data, &speakers); err != nil {
		db.reset()
		db.logger.Warn(ctx, "Failed to load speaker database: %v", err)
		return false
	}
	if speakers == nil {
		speakers = make(map[string]Embedding)
	}

	db.mu.Lock()
	db.speakers = speakers
	db.mu.Unlock()

	db.logger.Info(ctx, "Loaded %d speakers from: %s", len(speakers), db.path)
	return true
}

func (db *DB) reset() {
	db.mu.Lock()
	db.speakers = make(map[string]Embedding)
	db.mu.Unlock()
}

// Save writes the mapping to a temp file in the same directory and renames it
// over the durable file. Failures are logged and reported as false; the
// in-memory state is left untouched.
func (db *DB) Save() bool {
	ctx := context.Background()

	db.saveMu.Lock()
	defer db.saveMu.Unlock()

	db.mu.RLock()
	data, err := msgpack.Marshal(db.speakers)
	n := len(db.speakers)
	db.mu.RUnlock()
	if err != nil {
		db.logger.Warn(ctx, "Failed to save speaker database: encode: %v", err)
		return false
	}

	if err := writeFileAtomic(db.path, data); err != nil {
		db.logger.Warn(ctx, "Failed to save speaker database: %v", err)
		return false
	}

	db.logger.Info(ctx, "Saved %d speakers to: %s", n, db.path)
	return true
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	// The rename is durable only once the directory entry is flushed.
	if err := syncDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("sync dir: %w", err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}

// AddSpeaker inserts or overwrites name. The embedding is copied; its shape
// is not validated.
func (db *DB) AddSpeaker(name string, emb Embedding) {
	db.mu.Lock()
	db.speakers[name] = clone(emb)
	db.mu.Unlock()
}

// AddSpeakers upserts every entry of speakers.
func (db *DB) AddSpeakers(speakers map[string]Embedding) {
	db.mu.Lock()
	for name, emb := range speakers {
		db.speakers[name] = clone(emb)
	}
	db.mu.Unlock()
}

func (db *DB) HasSpeaker(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.speakers[name]
	return ok
}

// GetSpeaker returns a copy of name's embedding.
func (db *DB) GetSpeaker(name string) (Embedding, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	emb, ok := db.speakers[name]
	if !ok {
		return nil, false
	}
	return clone(emb), true
}

// RemoveSpeaker deletes name, returning false (with a warning) if absent.
func (db *DB) RemoveSpeaker(name string) bool {
	db.mu.Lock()
	_, ok := db.speakers[name]
	delete(db.speakers, name)
	db.mu.Unlock()

	if !ok {
		db.logger.Warn(context.Background(), "Speaker not found: %s", name)
		return false
	}
	db.logger.Info(context.Background(), "Removed speaker: %s", name)
	return true
}

// RenameSpeaker moves oldName's embedding to newName. It returns false if
// oldName is absent and a DuplicateNameError if newName already exists.
func (db *DB) RenameSpeaker(oldName, newName string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	emb, ok := db.speakers[oldName]
	if !ok {
		db.logger.Warn(context.Background(), "Speaker not found: %s", oldName)
		return false, nil
	}
	if _, exists := db.speakers[newName]; exists {
		return false, &DuplicateNameError{Name: newName}
	}

	delete(db.speakers, oldName)
	db.speakers[newName] = emb
	db.logger.Info(context.Background(), "Renamed speaker: %s -> %s", oldName, newName)
	return true, nil
}

// ListSpeakers returns all names in sorted order.
func (db *DB) ListSpeakers() []string {
	db.mu.RLock()
	names := make([]string, 0, len(db.speakers))
	for name := range db.speakers {
		names = append(names, name)
	}
	db.mu.RUnlock()

	sort.Strings(names)
	return names
}

// All returns a copy of the full mapping.
func (db *DB) All() map[string]Embedding {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make(map[string]Embedding, len(db.speakers))
	for name, emb := range db.speakers {
		out[name] = clone(emb)
	}
	return out
}

func (db *DB) Count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.speakers)
}

// Clear empties the in-memory mapping. The file is untouched until Save or DeleteFile.
func (db *DB) Clear() {
	db.reset()
	db.logger.Info(context.Background(), "Cleared all speakers from database")
}

// DeleteFile removes the durable file, reporting whether one was deleted.
func (db *DB) DeleteFile() bool {
	ctx := context.Background()
	err := os.Remove(db.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	if err != nil {
		db.logger.Warn(ctx, "Failed to delete database file: %v", err)
		return false
	}
	db.logger.Info(ctx, "Deleted database file: %s", db.path)
	return true
}

func clone(emb Embedding) Embedding {
	if emb == nil {
		return nil
	}
	out := make(Embedding, len(emb))
	copy(out, emb)
	return out
}
