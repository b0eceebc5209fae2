// Package merger aligns transcript segments with diarization turns and
// enrolled speaker identities.
package merger

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/nguyentantai21042004/meeting-flow/internal/audio"
	"github.com/nguyentantai21042004/meeting-flow/internal/engine"
	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
)

const (
	// DefaultLabel is used when no diarization turn overlaps a segment.
	DefaultLabel = "Speaker0"
	unknown      = "Unknown"
)

type implMerger struct {
	identifier Identifier
	threshold  float64
	logger     logger.Logger
}

// New creates a Merger that identifies each segment with threshold.
func New(id Identifier, threshold float64, log logger.Logger) Merger {
	return &implMerger{
		identifier: id,
		threshold:  threshold,
		logger:     log,
	}
}

// ResolveLabel returns the turn label with the largest positive overlap with
// [start, end]. Ties keep the earlier turn. No overlap gives DefaultLabel, 0.
func ResolveLabel(turns []engine.Turn, start, end float64) (string, float64) {
	label, best := DefaultLabel, 0.0
	for _, t := range turns {
		overlap := math.Min(end, t.End) - math.Max(start, t.Start)
		if overlap > best {
			label, best = t.Label, overlap
		}
	}
	return label, best
}

// FormatTimestamp renders seconds as [MM:SS].
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds / 60)
	secs := int(math.Mod(seconds, 60))
	return fmt.Sprintf("[%02d:%02d]", minutes, secs)
}

// Merge emits one record per segment with non-blank text. Slicing or
// identification problems degrade the record to Unknown and are listed in
// Result.Failures. On cancellation the records built so far are returned
// with ctx.Err().
func (m *implMerger) Merge(ctx context.Context, transcript engine.Transcript, turns []engine.Turn, audioPath, scratchDir string) (Result, error) {
	var res Result

	full, loadErr := audio.ReadFile(audioPath)
	if loadErr != nil {
		m.logger.Error(ctx, "Failed to load audio %s, speakers will be Unknown: %v", audioPath, loadErr)
	}

	for i, seg := range transcript.Segments {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		label, _ := ResolveLabel(turns, seg.Start, seg.End)
		rec := MergedRecord{
			Text:              text,
			Start:             seg.Start,
			End:               seg.End,
			DiarizationLabel:  label,
			IdentifiedSpeaker: unknown,
			Timestamp:         FormatTimestamp(seg.Start),
		}

		var err error
		if loadErr != nil {
			err = fmt.Errorf("load audio: %w", loadErr)
		} else {
			rec.IdentifiedSpeaker, rec.Confidence, err = m.identify(ctx, full, i, seg, scratchDir)
		}
		if err != nil {
			m.logger.Warn(ctx, "Segment %d [%.2f-%.2f]: %v", i, seg.Start, seg.End, err)
			res.Failures = append(res.Failures, SegmentFailure{Index: i, Start: seg.Start, End: seg.End, Err: err.Error()})
		}

		res.Records = append(res.Records, rec)
	}

	m.logger.Info(ctx, "Merged %d records (%d failures)", len(res.Records), len(res.Failures))
	return res, nil
}

// identify writes the segment's audio to scratchDir/seg_<i>.wav, identifies
// it and removes the file.
func (m *implMerger) identify(ctx context.Context, full *audio.Audio, i int, seg engine.Segment, scratchDir string) (string, float64, error) {
	clip := full.Slice(seg.Start, seg.End)
	if clip.Frames() == 0 {
		return unknown, 0, fmt.Errorf("empty audio slice")
	}

	segPath := filepath.Join(scratchDir, fmt.Sprintf("seg_%d.wav", i))
	defer func() {
		if err := os.Remove(segPath); err != nil && !os.IsNotExist(err) {
			m.logger.Warn(ctx, "Failed to remove %s: %v", segPath, err)
		}
	}()

	if err := clip.WriteFile(segPath); err != nil {
		return unknown, 0, fmt.Errorf("write segment audio: %w", err)
	}

	name, score := m.identifier.Identify(ctx, segPath, m.threshold)
	return name, score, nil
}
