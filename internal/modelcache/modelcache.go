// Package modelcache keeps expensive model handles alive for the lifetime of
// a process.
//
// Two tiers exist. The memory tier holds live objects. The disk tier is a
// JSON metadata index (key -> {cachedAt, caller metadata}) that survives
// restarts and tells callers how to rebuild a model; it never holds an object
// that is deserialized back. Values implementing encoding.BinaryMarshaler
// also get a best-effort blob next to the index, which nothing reads back.
//
// A Cache is opened once by the top-level program and passed down to the
// components that need it. There is no package-level instance.
package modelcache

import (
	"context"
	"crypto/md5"
	"encoding"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
)

const (
	indexFile = "metadata.json"
	blobExt   = ".bin"

	// MetaCachedAt is the index field holding the RFC 3339 UTC write time.
	MetaCachedAt = "cachedAt"
	// MetaBlobPath is the index field holding the blob location, if any.
	MetaBlobPath = "blobPath"
)

// Lookup is the result of Get. Exactly one of Value (memory hit) or
// Metadata (disk index hit) is meaningful.
type Lookup struct {
	Value    any
	Metadata map[string]any
}

// Live reports whether the lookup carries an in-memory object.
func (l Lookup) Live() bool {
	return l.Value != nil
}

// Loader rebuilds a model from its metadata.
type Loader func(ctx context.Context, metadata map[string]any) (any, error)

// Info summarizes cache state.
type Info struct {
	CacheDir          string   `json:"cache_dir"`
	MemoryCount       int      `json:"memory_count"`
	DiskMetadataCount int      `json:"disk_metadata_count"`
	DiskSizeBytes     int64    `json:"disk_size_bytes"`
	Keys              []string `json:"keys"`
}

// Cache is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	loadMu sync.Mutex
	dir    string
	memory map[string]any
	logger logger.Logger
}

// Open creates dir if needed and returns a cache rooted there.
func Open(dir string, log logger.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	log.Info(context.Background(), "Model cache initialized at: %s", dir)
	return &Cache{
		dir:    dir,
		memory: make(map[string]any),
		logger: log,
	}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Get checks the memory tier, then (unless memoryOnly) the metadata index.
// A metadata hit means "not a live model": the caller must rebuild it.
func (c *Cache) Get(key string, memoryOnly bool) (Lookup, bool) {
	ctx := context.Background()

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.memory[key]; ok {
		c.logger.Debug(ctx, "Model '%s' loaded from memory", key)
		return Lookup{Value: v}, true
	}
	if memoryOnly {
		return Lookup{}, false
	}

	index := c.loadIndex()
	if md, ok := index[key]; ok {
		c.logger.Debug(ctx, "Metadata for model '%s' found on disk", key)
		return Lookup{Metadata: md}, true
	}
	return Lookup{}, false
}

// Set stores value in memory and records {cachedAt, metadata...} in the index.
// It returns false only if the index could not be written; a blob failure is
// logged and ignored.
func (c *Cache) Set(key string, value any, metadata map[string]any) bool {
	ctx := context.Background()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory[key] = value

	entry := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		entry[k] = v
	}
	entry[MetaCachedAt] = time.Now().UTC().Format(time.RFC3339Nano)

	if m, ok := value.(encoding.BinaryMarshaler); ok {
		if path, err := c.writeBlob(key, m); err != nil {
			c.logger.Warn(ctx, "Skipped writing model object for '%s': %v", key, err)
		} else {
			entry[MetaBlobPath] = path
		}
	}

	index := c.loadIndex()
	index[key] = entry
	if err := c.saveIndex(index); err != nil {
		c.logger.Error(ctx, "Failed to cache metadata for '%s': %v", key, err)
		return false
	}

	c.logger.Info(ctx, "Metadata for '%s' cached", key)
	return true
}

// GetOrLoad returns the live model for key, building it with load on a memory
// miss. The loader receives metadata as given, which reflects the current
// configuration; the persisted index entry is used only when metadata is nil.
// The result is cached with the metadata it was built from.
func (c *Cache) GetOrLoad(ctx context.Context, key string, metadata map[string]any, load Loader) (any, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	res, ok := c.Get(key, false)
	if ok && res.Live() {
		return res.Value, nil
	}

	md := metadata
	if md == nil && ok {
		md = withoutBookkeeping(res.Metadata)
	} else if ok && metadataChanged(res.Metadata, md) {
		c.logger.Info(ctx, "Configuration for '%s' changed since it was cached, rebuilding", key)
	}

	v, err := load(ctx, md)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", key, err)
	}
	if v == nil {
		return nil, fmt.Errorf("load model %s: loader returned nil", key)
	}

	c.Set(key, v, md)
	return v, nil
}

func withoutBookkeeping(entry map[string]any) map[string]any {
	md := make(map[string]any, len(entry))
	for k, v := range entry {
		if k != MetaCachedAt && k != MetaBlobPath {
			md[k] = v
		}
	}
	return md
}

// metadataChanged compares through fmt so that numbers read back from JSON
// as float64 match the ints a caller passes.
func metadataChanged(persisted, current map[string]any) bool {
	for k, v := range current {
		if fmt.Sprint(persisted[k]) != fmt.Sprint(v) {
			return true
		}
	}
	return false
}

// Clear drops key from both tiers.
func (c *Cache) Clear(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.memory, key)

	if err := os.Remove(c.blobPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}

	index := c.loadIndex()
	delete(index, key)
	if err := c.saveIndex(index); err != nil {
		return err
	}

	c.logger.Info(context.Background(), "Model '%s' cache cleared", key)
	return nil
}

// ClearAll removes the cache directory and resets all in-memory state.
func (c *Cache) ClearAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory = make(map[string]any)

	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("remove cache dir: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("recreate cache dir: %w", err)
	}

	c.logger.Info(context.Background(), "All cached models cleared")
	return nil
}

// Info reports counts, blob size and the keys known to the index.
func (c *Cache) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	index := c.loadIndex()
	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var size int64
	filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), blobExt) {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			size += fi.Size()
		}
		return nil
	})

	return Info{
		CacheDir:          c.dir,
		MemoryCount:       len(c.memory),
		DiskMetadataCount: len(index),
		DiskSizeBytes:     size,
		Keys:              keys,
	}
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.dir, indexFile)
}

func (c *Cache) blobPath(key string) string {
	sum := md5.Sum([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+blobExt)
}

// loadIndex treats a missing or unreadable index as empty.
func (c *Cache) loadIndex() map[string]map[string]any {
	index := make(map[string]map[string]any)
	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		return index
	}
	if err := json.Unmarshal(data, &index); err != nil {
		c.logger.Warn(context.Background(), "Ignoring unreadable cache index: %v", err)
		return make(map[string]map[string]any)
	}
	return index
}

func (c *Cache) saveIndex(index map[string]map[string]any) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	f, err := os.CreateTemp(c.dir, indexFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create index temp: %w", err)
	}
	tmp := f.Name()
	if err := f.Chmod(0644); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("chmod index: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, c.indexPath()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

func (c *Cache) writeBlob(key string, m encoding.BinaryMarshaler) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("marshal panicked: %v", r)
		}
	}()

	data, err := m.MarshalBinary()
	if err != nil {
		return "", err
	}
	path = c.blobPath(key)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
