package recognizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/nguyentantai21042004/meeting-flow/internal/audio"
	"github.com/nguyentantai21042004/meeting-flow/internal/engine"
	"github.com/nguyentantai21042004/meeting-flow/internal/speakerdb"
)

func (r *implRecognizer) modelKey() string {
	return "ecapa_tdnn_" + r.opts.Device
}

// embedder returns the process-wide embedding model, building it on first use.
func (r *implRecognizer) embedder(ctx context.Context) (engine.Embedder, error) {
	md := map[string]any{
		"model_source": r.opts.ModelSource,
		"device":       r.opts.Device,
		"url":          r.opts.URL,
		"sample_rate":  r.opts.SampleRate,
	}
	v, err := r.cache.GetOrLoad(ctx, r.modelKey(), md, func(ctx context.Context, md map[string]any) (any, error) {
		r.logger.Info(ctx, "Loading speaker embedding model %s on %s", r.opts.ModelSource, r.opts.Device)
		return r.factory(ctx, md)
	})
	if err != nil {
		return nil, err
	}
	emb, ok := v.(engine.Embedder)
	if !ok {
		return nil, fmt.Errorf("cached model %s is %T, not an embedder", r.modelKey(), v)
	}
	return emb, nil
}

// ComputeEmbedding loads audioPath, downmixes to mono, resamples to the
// model rate and returns its embedding.
func (r *implRecognizer) ComputeEmbedding(ctx context.Context, audioPath string) (speakerdb.Embedding, error) {
	pcm, err := r.readAudio(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	emb, err := r.embedder(ctx)
	if err != nil {
		return nil, err
	}

	pcm = pcm.Mono()
	if pcm.SampleRate != emb.SampleRate() {
		if pcm, err = pcm.Resample(emb.SampleRate()); err != nil {
			return nil, &AudioReadError{Path: audioPath, Err: err}
		}
	}
	if len(pcm.Samples) == 0 {
		return nil, &AudioReadError{Path: audioPath, Err: errors.New("no samples")}
	}

	vec, err := emb.Embed(ctx, pcm.Samples, pcm.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("compute embedding %s: %w", audioPath, err)
	}
	return speakerdb.Embedding(vec), nil
}

func (r *implRecognizer) readAudio(ctx context.Context, audioPath string) (*audio.Audio, error) {
	if _, err := os.Stat(audioPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &AudioReadError{Path: audioPath, Err: ErrNotFound}
		}
		return nil, &AudioReadError{Path: audioPath, Err: err}
	}

	path := audioPath
	if r.opts.Normalizer != nil && !strings.EqualFold(filepath.Ext(audioPath), ".wav") {
		tmp, err := os.CreateTemp("", "sample-*.wav")
		if err != nil {
			return nil, &AudioReadError{Path: audioPath, Err: err}
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		if path, err = r.opts.Normalizer.Normalize(ctx, audioPath, tmp.Name()); err != nil {
			return nil, &AudioReadError{Path: audioPath, Err: err}
		}
	}

	pcm, err := audio.ReadFile(path)
	if err != nil {
		return nil, &AudioReadError{Path: audioPath, Err: err}
	}
	return pcm, nil
}

// CosineSimilarity returns a·b / (|a||b|), or 0 if either norm is zero.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Got: len(a), Want: len(b)}
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// mean is the element-wise average of vecs, which must share one length.
func mean(vecs []speakerdb.Embedding) speakerdb.Embedding {
	out := make(speakerdb.Embedding, len(vecs[0]))
	for _, v := range vecs {
		for i, x := range v {
			out[i] += x
		}
	}
	n := float32(len(vecs))
	for i := range out {
		out[i] /= n
	}
	return out
}
