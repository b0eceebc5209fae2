package recognizer

import (
	"context"
	"errors"
	"math"
	"os"
	"sort"
)

// Identify returns the enrolled speaker closest to the voice in audioPath and
// the cosine similarity. A best score below threshold yields Unknown with that
// score. Missing audio, an empty database or a failed embedding yield Unknown
// with 0. Speakers are compared in name order; the first strictly greater
// score wins.
func (r *implRecognizer) Identify(ctx context.Context, audioPath string, threshold float64) (string, float64) {
	if _, err := os.Stat(audioPath); err != nil {
		r.logger.Warn(ctx, "Audio file not found: %s", audioPath)
		return Unknown, 0
	}
	if r.db.Count() == 0 {
		r.logger.Debug(ctx, "No enrolled speakers")
		return Unknown, 0
	}

	emb, err := r.ComputeEmbedding(ctx, audioPath)
	if err != nil {
		r.logger.Warn(ctx, "Identification failed for %s: %v", audioPath, err)
		return Unknown, 0
	}

	speakers := r.db.All()
	names := make([]string, 0, len(speakers))
	for name := range speakers {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		best     float64
		bestName string
		matched  bool
	)
	for _, name := range names {
		score, err := CosineSimilarity(emb, speakers[name])
		if err != nil {
			var dm *DimensionMismatchError
			if errors.As(err, &dm) {
				dm.Speaker = name
			}
			r.logger.Warn(ctx, "Skipping speaker: %v", err)
			continue
		}
		if math.IsNaN(score) {
			r.logger.Warn(ctx, "Skipping speaker '%s': similarity is NaN", name)
			continue
		}
		if !matched || score > best {
			best, bestName, matched = score, name, true
		}
	}

	if !matched {
		return Unknown, 0
	}
	if best < threshold {
		r.logger.Debug(ctx, "Best match '%s' (%.3f) below threshold %.3f", bestName, best, threshold)
		return Unknown, best
	}
	return bestName, best
}

func (r *implRecognizer) IdentifyBatch(ctx context.Context, paths []string, threshold float64) []Identification {
	out := make([]Identification, 0, len(paths))
	for _, p := range paths {
		name, score := r.Identify(ctx, p, threshold)
		out = append(out, Identification{Path: p, Speaker: name, Confidence: score})
	}
	return out
}

func (r *implRecognizer) EnrolledSpeakers() []string {
	return r.db.ListSpeakers()
}

func (r *implRecognizer) RemoveSpeaker(name string) bool {
	if !r.db.RemoveSpeaker(name) {
		return false
	}
	if !r.db.Save() {
		r.logger.Warn(context.Background(), "Removed '%s' in memory but not persisted", name)
	}
	return true
}

func (r *implRecognizer) RenameSpeaker(oldName, newName string) (bool, error) {
	ok, err := r.db.RenameSpeaker(oldName, newName)
	if !ok || err != nil {
		return ok, err
	}
	if !r.db.Save() {
		r.logger.Warn(context.Background(), "Renamed '%s' in memory but not persisted", oldName)
	}
	return true, nil
}

// ClearDatabase removes every speaker and the durable file.
func (r *implRecognizer) ClearDatabase() {
	r.db.Clear()
	r.db.DeleteFile()
	r.logger.Info(context.Background(), "Speaker database cleared")
}
