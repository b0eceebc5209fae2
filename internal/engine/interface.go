// Package engine is the boundary to the model engines the pipeline consumes
// as black boxes: transcription, diarization and speaker embedding.
package engine

import "context"

// Segment is one timed span of transcribed text, in seconds.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is ordered by Start.
type Transcript struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Turn is one diarization interval. Labels are only meaningful within a run.
type Turn struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"speaker"`
}

// Transcriber turns audio into timed text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (Transcript, error)
}

// Diarizer partitions audio into anonymous speaker turns.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]Turn, error)
}

// Embedder maps mono samples at SampleRate() to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, samples []float32, sampleRate int) ([]float32, error)
	SampleRate() int
}

// EmbedderFactory builds an Embedder from cache metadata.
type EmbedderFactory func(ctx context.Context, metadata map[string]any) (Embedder, error)
