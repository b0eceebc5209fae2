package processor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nguyentantai21042004/meeting-flow/internal/engine"
	"github.com/nguyentantai21042004/meeting-flow/internal/jobstore"
	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
	"github.com/nguyentantai21042004/meeting-flow/internal/merger"
	"github.com/nguyentantai21042004/meeting-flow/internal/output"
	"github.com/nguyentantai21042004/meeting-flow/internal/recognizer"
	"github.com/nguyentantai21042004/meeting-flow/internal/summarizer"
)

const normalizedName = "normalized_audio.wav"

// Process handles one recording from the watch folder.
func (p *implProcessor) Process(ctx context.Context, audioPath string) error {
	_, err := p.ProcessMeeting(ctx, Request{
		AudioPath: audioPath,
		EnrollDir: p.cfg.Speaker.EnrollDir,
		Language:  p.cfg.Transcription.Language,
		OutputDir: p.cfg.Paths.Output,
		Archive:   true,
	})
	return err
}

// Enroll registers every speaker in dir. Only one enrollment runs at a time.
func (p *implProcessor) Enroll(ctx context.Context, dir string, force bool) (recognizer.DirectoryEnrollResult, error) {
	leave, err := p.enrollGate.enter(ctx)
	if err != nil {
		return recognizer.DirectoryEnrollResult{}, err
	}
	defer leave()

	return p.deps.Recognizer.EnrollDirectoryDetailed(ctx, dir, force)
}

// ProcessMeeting orchestrates the entire meeting pipeline: normalize, enroll,
// transcribe, diarize, merge, summarize and write the result files.
func (p *implProcessor) ProcessMeeting(ctx context.Context, req Request) (*Report, error) {
	startTime := p.now()

	if req.Language == "" {
		req.Language = p.cfg.Transcription.Language
	}
	if req.OutputDir == "" {
		req.OutputDir = p.cfg.Paths.Output
	}
	if _, err := os.Stat(req.AudioPath); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("audio file not found: %s", req.AudioPath)
	}

	jobID, err := p.startJob(ctx, req)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithJobID(ctx, jobID)

	p.logger.Info(ctx, "========================================")
	p.logger.Info(ctx, "Starting meeting processing: %s", req.AudioPath)
	p.logger.Info(ctx, "========================================")

	report, err := p.run(ctx, jobID, req)
	if err != nil {
		// Segments merged before the failure are kept on the job record.
		p.finishJob(ctx, jobID, func(j *jobstore.Job) {
			j.Status = jobstore.StatusFailed
			j.Error = err.Error()
			j.Segments = len(report.Records)
			j.FailedSegments = describeFailures(report.Failures)
		})
		return report, err
	}

	p.finishJob(ctx, jobID, func(j *jobstore.Job) {
		j.Status = jobstore.StatusCompleted
		j.Segments = len(report.Records)
		j.Speakers = report.Result.Statistics.DiarizedSpeakers
		j.FailedSegments = describeFailures(report.Failures)
		j.Outputs = jobstore.Outputs{JSON: report.Outputs.JSON, TXT: report.Outputs.TXT, DOCX: report.DOCX}
	})

	if req.Archive {
		if err := p.moveToArchived(ctx, req.AudioPath); err != nil {
			p.logger.Warn(ctx, "Failed to move original to archived folder: %v", err)
		}
	}

	p.logger.Info(ctx, "========================================")
	p.logger.Info(ctx, "Processing completed successfully!")
	p.logger.Info(ctx, "Output JSON: %s", report.Outputs.JSON)
	p.logger.Info(ctx, "Output TXT: %s", report.Outputs.TXT)
	p.logger.Info(ctx, "Processing time: %s", p.now().Sub(startTime))
	p.logger.Info(ctx, "========================================")

	return report, nil
}

// run always returns a non-nil Report. On error it holds whatever was
// finished before the failing step.
func (p *implProcessor) run(ctx context.Context, jobID string, req Request) (*Report, error) {
	report := &Report{JobID: jobID}

	scratch, err := p.scratchDir(jobID)
	if err != nil {
		return report, err
	}
	defer p.cleanupDir(ctx, scratch)

	// Step 1: Normalize to mono PCM
	normalized, err := p.deps.Normalizer.Normalize(ctx, req.AudioPath, filepath.Join(scratch, normalizedName))
	if err != nil {
		return report, fmt.Errorf("normalize: %w", err)
	}

	// Step 2: Enroll speakers that are not in the database yet
	if req.EnrollDir != "" {
		res, err := p.Enroll(ctx, req.EnrollDir, false)
		if err != nil {
			return report, fmt.Errorf("enroll: %w", err)
		}
		for _, f := range res.Failures {
			p.logger.Warn(ctx, "Enrollment sample skipped: %v", f)
		}
	}

	// Step 3: Transcribe
	transcript, err := p.deps.Transcriber.Transcribe(ctx, normalized, req.Language)
	if err != nil {
		return report, fmt.Errorf("transcribe: %w", err)
	}
	p.logger.Info(ctx, "Transcribed %d segments", len(transcript.Segments))

	// Step 4: Diarize
	turns, err := p.deps.Diarizer.Diarize(ctx, normalized)
	if err != nil {
		return report, fmt.Errorf("diarize: %w", err)
	}
	p.logger.Info(ctx, "Diarization found %d speakers", engine.CountSpeakers(turns))

	// Step 5: Merge and identify
	merged, err := p.deps.Merger.Merge(ctx, transcript, turns, normalized, scratch)
	report.Records = merged.Records
	report.Failures = merged.Failures
	if err != nil {
		return report, fmt.Errorf("merge: %w", err)
	}

	// Step 6: Summarize
	summary := p.deps.Summarizer.Summarize(ctx, merged.Records)

	// Step 7: Build and save the result
	now := p.now()
	enrolled := p.deps.Recognizer.EnrolledSpeakers()
	lines := output.FormatLines(merged.Records)
	result := &output.Result{
		Metadata: output.Metadata{
			AudioFile:     req.AudioPath,
			EnrollmentDir: req.EnrollDir,
			Language:      req.Language,
			Timestamp:     now.Format(time.RFC3339),
			Device:        p.cfg.Embedding.Device,
			JobID:         jobID,
		},
		Summary:    summary,
		Transcript: lines,
		Statistics: output.Statistics{
			TotalSpeakers:      len(enrolled),
			TotalSegments:      len(lines),
			EnrolledSpeakers:   enrolled,
			DiarizedSpeakers:   engine.CountSpeakers(turns),
			IdentifiedSegments: countIdentified(merged.Records),
			FailedSegments:     len(merged.Failures),
			SpeakingTime:       engine.SpeakingTime(turns),
		},
	}
	report.Result = result

	paths, err := output.Save(result, req.OutputDir, now)
	if err != nil {
		return report, fmt.Errorf("save results: %w", err)
	}
	report.Outputs = paths

	// Step 8: Meeting minutes document
	docxPath := strings.TrimSuffix(paths.JSON, ".json") + ".docx"
	title := "Biên bản họp - " + filepath.Base(req.AudioPath)
	if err := summarizer.WriteMinutes(docxPath, title, summary, lines); err != nil {
		p.logger.Warn(ctx, "Failed to write meeting minutes: %v", err)
	} else {
		report.DOCX = docxPath
	}

	return report, nil
}

func (p *implProcessor) startJob(ctx context.Context, req Request) (string, error) {
	if p.deps.Jobs == nil {
		return uuid.New().String(), nil
	}
	job, err := p.deps.Jobs.Create(ctx, jobstore.Job{
		AudioFile: req.AudioPath,
		EnrollDir: req.EnrollDir,
		Language:  req.Language,
		Status:    jobstore.StatusRunning,
	})
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	return job.ID, nil
}

func (p *implProcessor) finishJob(ctx context.Context, jobID string, fn func(*jobstore.Job)) {
	if p.deps.Jobs == nil {
		return
	}
	// The job record outlives a cancelled request.
	if _, err := p.deps.Jobs.Update(context.WithoutCancel(ctx), jobID, fn); err != nil {
		p.logger.Warn(ctx, "Failed to update job %s: %v", jobID, err)
	}
}

func countIdentified(records []merger.MergedRecord) int {
	n := 0
	for _, r := range records {
		if r.IdentifiedSpeaker != recognizer.Unknown {
			n++
		}
	}
	return n
}

func describeFailures(failures []merger.SegmentFailure) []string {
	out := make([]string, 0, len(failures))
	for _, f := range failures {
		out = append(out, fmt.Sprintf("segment %d [%.2f-%.2f]: %s", f.Index, f.Start, f.End, f.Err))
	}
	return out
}
