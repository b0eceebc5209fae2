package summarizer

import (
	"context"

	"github.com/nguyentantai21042004/meeting-flow/internal/merger"
)

// Summarizer writes meeting minutes from a merged transcript. It never fails:
// when the model is unavailable it returns FallbackSummary.
type Summarizer interface {
	Summarize(ctx context.Context, records []merger.MergedRecord) string
}

// Client sends one system + user prompt pair to a chat model.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
