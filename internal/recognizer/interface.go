package recognizer

import (
	"context"

	"github.com/nguyentantai21042004/meeting-flow/internal/speakerdb"
)

// Unknown is the name reported for a voice that matches no enrolled speaker.
const Unknown = "Unknown"

// Recognizer enrolls named speakers and identifies voices against them.
type Recognizer interface {
	ComputeEmbedding(ctx context.Context, audioPath string) (speakerdb.Embedding, error)

	EnrollSpeaker(ctx context.Context, name string, files []string, force bool) bool
	EnrollDetailed(ctx context.Context, name string, files []string, force bool) EnrollResult
	EnrollSpeakersFromDirectory(ctx context.Context, dir string, force bool) (int, error)
	EnrollDirectoryDetailed(ctx context.Context, dir string, force bool) (DirectoryEnrollResult, error)

	Identify(ctx context.Context, audioPath string, threshold float64) (string, float64)
	IdentifyBatch(ctx context.Context, paths []string, threshold float64) []Identification

	EnrolledSpeakers() []string
	RemoveSpeaker(name string) bool
	RenameSpeaker(oldName, newName string) (bool, error)
	ClearDatabase()
}

// EnrollResult describes one enrollment attempt. Enrolled is false when the
// name already existed without force or when no sample could be embedded.
type EnrollResult struct {
	Name     string
	Enrolled bool
	Exists   bool
	Samples  int
	Failures []ItemError
}

// DirectoryEnrollResult groups speaker names by outcome, each sorted.
type DirectoryEnrollResult struct {
	Enrolled []string
	Skipped  []string
	Failed   []string
	Failures []ItemError
}

// Identification is one IdentifyBatch entry.
type Identification struct {
	Path       string
	Speaker    string
	Confidence float64
}
