package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nguyentantai21042004/meeting-flow/internal/jobstore"
	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `
speaker:
  db_path: ` + filepath.Join(dir, "speaker_db.msgpack") + `
cache:
  dir: ` + filepath.Join(dir, "cache") + `
embedding:
  url: http://127.0.0.1:1
diarization:
  url: http://127.0.0.1:1
transcription:
  backend: http
  url: http://127.0.0.1:1
paths:
  output: ` + filepath.Join(dir, "output") + `
  jobs: ` + filepath.Join(dir, "jobs") + `
logging:
  level: error
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSpeakerCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "list-speakers")
	if err != nil {
		t.Fatalf("list-speakers: %v", err)
	}
	if !strings.Contains(out, "No speakers enrolled") {
		t.Errorf("list-speakers output = %q", out)
	}

	if _, err := run(t, "--config", cfg, "remove-speaker", "alice"); err == nil {
		t.Error("remove-speaker of an unknown name should fail")
	}
	if _, err := run(t, "--config", cfg, "clear-db"); err == nil {
		t.Error("clear-db without --yes should fail")
	}
}

func TestCacheInfo(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "cache-info")
	if err != nil {
		t.Fatalf("cache-info: %v", err)
	}
	if !strings.Contains(out, "MODEL CACHE INFORMATION") || !strings.Contains(out, "Memory Cached Models: 0") {
		t.Errorf("cache-info output = %q", out)
	}
}

func TestJobsEmpty(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "jobs")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if !strings.Contains(out, "No jobs") {
		t.Errorf("jobs output = %q", out)
	}
}

func TestJobsDelete(t *testing.T) {
	cfg := writeConfig(t)

	store, err := jobstore.New(jobstore.Options{Dir: filepath.Join(filepath.Dir(cfg), "jobs")}, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	job, err := store.Create(context.Background(), jobstore.Job{AudioFile: "standup.wav"})
	store.Close()
	if err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--config", cfg, "jobs", "delete", job.ID)
	if err != nil {
		t.Fatalf("jobs delete: %v", err)
	}
	if !strings.Contains(out, "Deleted job "+job.ID) {
		t.Errorf("jobs delete output = %q", out)
	}

	out, _ = run(t, "--config", cfg, "jobs")
	if !strings.Contains(out, "No jobs") {
		t.Errorf("job still listed after delete: %q", out)
	}
	if _, err := run(t, "--config", cfg, "jobs", "delete", job.ID); err == nil {
		t.Error("deleting an unknown job should fail")
	}
}

func TestMissingConfig(t *testing.T) {
	if _, err := run(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "list-speakers"); err == nil {
		t.Error("missing config should fail")
	}
}
