package processor

import (
	"context"

	"github.com/nguyentantai21042004/meeting-flow/internal/merger"
	"github.com/nguyentantai21042004/meeting-flow/internal/output"
	"github.com/nguyentantai21042004/meeting-flow/internal/recognizer"
)

// Processor runs whole meetings through the pipeline.
type Processor interface {
	// Process handles a file dropped into the watch folder using the
	// configured enrollment dir and language, then archives it.
	Process(ctx context.Context, audioPath string) error
	// ProcessMeeting runs one meeting. On error the Report is still
	// returned with the segments merged before the failure.
	ProcessMeeting(ctx context.Context, req Request) (*Report, error)
	// Enroll registers the speakers in dir. Calls are serialized.
	Enroll(ctx context.Context, dir string, force bool) (recognizer.DirectoryEnrollResult, error)
}

// Request describes one meeting to process.
type Request struct {
	AudioPath string
	// EnrollDir, if set, is enrolled (without force) before identification.
	EnrollDir string
	Language  string
	OutputDir string
	// Archive moves the input to the archived folder on success.
	Archive bool
}

// Report is what a finished meeting produced.
type Report struct {
	JobID    string
	Result   *output.Result
	Records  []merger.MergedRecord
	Failures []merger.SegmentFailure
	Outputs  output.Paths
	DOCX     string
}
