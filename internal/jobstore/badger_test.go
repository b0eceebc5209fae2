package jobstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
)

func newTestStore(t *testing.T) *implStore {
	t.Helper()
	st, err := New(Options{InMemory: true}, logger.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	s := st.(*implStore)
	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestNewRequiresDir(t *testing.T) {
	if _, err := New(Options{}, logger.NewNop()); err == nil {
		t.Error("New() without dir should fail")
	}
}

func TestCreateGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Create(ctx, Job{AudioFile: "meeting.wav", Language: "vi"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if job.ID == "" || job.Status != StatusQueued || job.CreatedAt.IsZero() {
		t.Errorf("Create() = %+v", job)
	}

	got, err := s.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.AudioFile != "meeting.wav" || !got.CreatedAt.Equal(job.CreatedAt) {
		t.Errorf("Get() = %+v, want %+v", got, job)
	}

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	job, _ := s.Create(ctx, Job{ID: "fixed", AudioFile: "a.wav"})

	updated, err := s.Update(ctx, "fixed", func(j *Job) {
		j.ID = "ignored"
		j.Status = StatusCompleted
		j.Segments = 12
		j.FailedSegments = []string{"segment 3: empty audio slice"}
		j.Outputs.JSON = "out/meeting.json"
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ID != "fixed" || !updated.UpdatedAt.After(job.UpdatedAt) {
		t.Errorf("Update() = %+v", updated)
	}

	got, _ := s.Get(ctx, "fixed")
	if got.Status != StatusCompleted || got.Segments != 12 || got.Outputs.JSON != "out/meeting.json" || len(got.FailedSegments) != 1 {
		t.Errorf("stored = %+v", got)
	}

	if _, err := s.Update(ctx, "nope", func(*Job) {}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, f := range []string{"first.wav", "second.wav", "third.wav"} {
		if _, err := s.Create(ctx, Job{AudioFile: f}); err != nil {
			t.Fatal(err)
		}
	}

	jobs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("List() returned %d jobs", len(jobs))
	}
	want := []string{"third.wav", "second.wav", "first.wav"}
	for i, j := range jobs {
		if j.AudioFile != want[i] {
			t.Errorf("jobs[%d] = %s, want %s", i, j.AudioFile, want[i])
		}
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	job, _ := s.Create(ctx, Job{AudioFile: "a.wav"})

	if err := s.Delete(ctx, job.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete() error = %v", err)
	}
	if err := s.Delete(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(twice) error = %v, want ErrNotFound", err)
	}
}

func TestOnDiskReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st, err := New(Options{Dir: dir}, logger.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	job, _ := st.Create(ctx, Job{AudioFile: "a.wav"})
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st, err = New(Options{Dir: dir}, logger.NewNop())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer st.Close()
	if got, err := st.Get(ctx, job.ID); err != nil || got.AudioFile != "a.wav" {
		t.Errorf("Get() after reopen = %+v, %v", got, err)
	}
}
