package jobstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for an unknown job ID.
var ErrNotFound = errors.New("job not found")

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Outputs locates the files a finished job produced.
type Outputs struct {
	JSON string `msgpack:"json" json:"json,omitempty"`
	TXT  string `msgpack:"txt" json:"txt,omitempty"`
	DOCX string `msgpack:"docx" json:"docx,omitempty"`
}

// Job is the durable record of one meeting run.
type Job struct {
	ID             string    `msgpack:"id" json:"id"`
	AudioFile      string    `msgpack:"audio_file" json:"audio_file"`
	EnrollDir      string    `msgpack:"enroll_dir" json:"enroll_dir,omitempty"`
	Language       string    `msgpack:"language" json:"language"`
	Status         Status    `msgpack:"status" json:"status"`
	Error          string    `msgpack:"error" json:"error,omitempty"`
	Segments       int       `msgpack:"segments" json:"segments"`
	Speakers       int       `msgpack:"speakers" json:"speakers"`
	FailedSegments []string  `msgpack:"failed_segments" json:"failed_segments,omitempty"`
	Outputs        Outputs   `msgpack:"outputs" json:"outputs"`
	CreatedAt      time.Time `msgpack:"created_at" json:"created_at"`
	UpdatedAt      time.Time `msgpack:"updated_at" json:"updated_at"`
}

// Store persists Job records.
type Store interface {
	// Create assigns an ID if empty, stamps the times and stores job.
	Create(ctx context.Context, job Job) (Job, error)
	// Update applies fn to the stored job inside one transaction.
	Update(ctx context.Context, id string, fn func(*Job)) (Job, error)
	Get(ctx context.Context, id string) (Job, error)
	// List returns all jobs, newest first.
	List(ctx context.Context) ([]Job, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
