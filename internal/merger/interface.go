package merger

import (
	"context"

	"github.com/nguyentantai21042004/meeting-flow/internal/engine"
)

// Identifier names the speaker of a short audio file.
type Identifier interface {
	Identify(ctx context.Context, audioPath string, threshold float64) (string, float64)
}

// Merger fuses transcript segments, diarization turns and speaker
// identification into one chronological record list.
type Merger interface {
	Merge(ctx context.Context, transcript engine.Transcript, turns []engine.Turn, audioPath, scratchDir string) (Result, error)
}

// MergedRecord is one attributed line of the meeting.
type MergedRecord struct {
	Text              string  `json:"text"`
	Start             float64 `json:"start"`
	End               float64 `json:"end"`
	DiarizationLabel  string  `json:"diarization_speaker"`
	IdentifiedSpeaker string  `json:"identified_speaker"`
	Confidence        float64 `json:"confidence"`
	Timestamp         string  `json:"timestamp"`
}

// SegmentFailure records why a segment fell back to an unknown speaker.
type SegmentFailure struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Err   string  `json:"error"`
}

// Result holds one record per non-empty segment, in transcript order.
type Result struct {
	Records  []MergedRecord
	Failures []SegmentFailure
}
