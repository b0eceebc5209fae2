package modelcache_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
	"github.com/nguyentantai21042004/meeting-flow/internal/modelcache"
)

type model struct{ name string }

type blobModel struct {
	data []byte
	err  error
}

func (b *blobModel) MarshalBinary() ([]byte, error) { return b.data, b.err }

func open(t *testing.T, dir string) *modelcache.Cache {
	t.Helper()
	c, err := modelcache.Open(dir, logger.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return c
}

func TestSetGetSameProcess(t *testing.T) {
	c := open(t, t.TempDir())
	obj := &model{name: "ecapa"}

	if !c.Set("m", obj, map[string]any{"device": "cpu"}) {
		t.Fatal("Set() = false")
	}

	res, ok := c.Get("m", false)
	if !ok || !res.Live() {
		t.Fatalf("Get() = %+v, %v; want live hit", res, ok)
	}
	if res.Value != obj {
		t.Error("Get() did not return the identical object")
	}
}

func TestGetAfterRestart(t *testing.T) {
	dir := t.TempDir()
	open(t, dir).Set("m", &model{}, map[string]any{"device": "cpu"})

	fresh := open(t, dir)

	if _, ok := fresh.Get("m", true); ok {
		t.Error("Get(memoryOnly) found a value after restart")
	}

	res, ok := fresh.Get("m", false)
	if !ok {
		t.Fatal("Get() missed the metadata index")
	}
	if res.Live() {
		t.Error("Get() returned a live object from disk")
	}
	if res.Metadata["device"] != "cpu" {
		t.Errorf("device = %v, want cpu", res.Metadata["device"])
	}
	if _, ok := res.Metadata[modelcache.MetaCachedAt]; !ok {
		t.Error("metadata missing cachedAt")
	}
}

func TestBlobBestEffort(t *testing.T) {
	dir := t.TempDir()
	c := open(t, dir)

	if !c.Set("ok", &blobModel{data: []byte("weights")}, nil) {
		t.Fatal("Set() = false for marshalable value")
	}
	if !c.Set("bad", &blobModel{err: errors.New("unserializable")}, nil) {
		t.Fatal("Set() = false when the blob write failed")
	}

	res, _ := c.Get("ok", false)
	if !res.Live() {
		t.Fatal("memory tier missing marshalable value")
	}

	info := c.Info()
	if info.DiskSizeBytes != int64(len("weights")) {
		t.Errorf("DiskSizeBytes = %d, want %d", info.DiskSizeBytes, len("weights"))
	}
	if info.MemoryCount != 2 || info.DiskMetadataCount != 2 {
		t.Errorf("Info() = %+v", info)
	}

	md, _ := open(t, dir).Get("bad", false)
	if _, ok := md.Metadata[modelcache.MetaBlobPath]; ok {
		t.Error("failed blob recorded a blob path")
	}
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	c := open(t, dir)
	c.Set("a", &blobModel{data: []byte("x")}, nil)
	c.Set("b", &model{}, nil)

	if err := c.Clear("a"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok := c.Get("a", false); ok {
		t.Error("a still cached after Clear")
	}
	if _, ok := c.Get("b", true); !ok {
		t.Error("b dropped by Clear(a)")
	}

	if err := c.ClearAll(); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	info := c.Info()
	if info.MemoryCount != 0 || info.DiskMetadataCount != 0 || len(info.Keys) != 0 {
		t.Errorf("Info() after ClearAll = %+v", info)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("cache dir not recreated: %v", err)
	}
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := open(t, dir)

	calls := 0
	load := func(ctx context.Context, md map[string]any) (any, error) {
		calls++
		return &model{name: md["source"].(string)}, nil
	}

	md := map[string]any{"source": "spkrec"}
	v1, err := c.GetOrLoad(ctx, "ecapa", md, load)
	if err != nil {
		t.Fatalf("GetOrLoad() error = %v", err)
	}
	v2, _ := c.GetOrLoad(ctx, "ecapa", md, load)
	if v1 != v2 || calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}

	// Without caller metadata a fresh process falls back to the index entry.
	fresh := open(t, dir)
	v3, err := fresh.GetOrLoad(ctx, "ecapa", nil, load)
	if err != nil {
		t.Fatalf("GetOrLoad() error = %v", err)
	}
	if v3.(*model).name != "spkrec" {
		t.Errorf("rebuilt from %q, want persisted metadata", v3.(*model).name)
	}

	_, err = c.GetOrLoad(ctx, "broken", nil, func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("no weights")
	})
	if err == nil {
		t.Error("GetOrLoad() should surface loader errors")
	}
}

func TestGetOrLoadAfterConfigChange(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	load := func(ctx context.Context, md map[string]any) (any, error) {
		return &model{name: md["url"].(string)}, nil
	}

	if _, err := open(t, dir).GetOrLoad(ctx, "ecapa_tdnn_cpu", map[string]any{"url": "http://old:8000"}, load); err != nil {
		t.Fatalf("GetOrLoad() error = %v", err)
	}

	restarted := open(t, dir)
	v, err := restarted.GetOrLoad(ctx, "ecapa_tdnn_cpu", map[string]any{"url": "http://new:9000"}, load)
	if err != nil {
		t.Fatalf("GetOrLoad() error = %v", err)
	}
	if got := v.(*model).name; got != "http://new:9000" {
		t.Errorf("model built with url %s, want the configured http://new:9000", got)
	}

	again := open(t, dir)
	res, ok := again.Get("ecapa_tdnn_cpu", false)
	if !ok || res.Metadata["url"] != "http://new:9000" {
		t.Errorf("index metadata = %v, want the new url", res.Metadata)
	}
}

func TestIndexWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	c := open(t, dir)
	for i := 0; i < 3; i++ {
		if !c.Set("m", &model{}, map[string]any{"n": i}) {
			t.Fatal("Set() = false")
		}
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left: %v", matches)
	}
}

func TestCorruptIndexIsIgnored(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	c := open(t, dir)
	if _, ok := c.Get("m", false); ok {
		t.Error("Get() hit on a corrupt index")
	}
	if !c.Set("m", &model{}, nil) {
		t.Error("Set() should rewrite a corrupt index")
	}
}
