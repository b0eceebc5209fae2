// Package output renders merged meeting records as the JSON and plain-text
// transcript files.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nguyentantai21042004/meeting-flow/internal/merger"
)

// SummaryHeader separates transcript lines from the summary in the TXT file.
const SummaryHeader = "\n=== MEETING SUMMARY ===\n"

const maxNameAttempts = 1000

// Line is one transcript entry as written to the result files.
type Line struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Timestamp  string  `json:"timestamp"`
	Confidence float64 `json:"confidence"`
}

type Metadata struct {
	AudioFile     string `json:"audio_file"`
	EnrollmentDir string `json:"enrollment_dir"`
	Language      string `json:"language"`
	Timestamp     string `json:"timestamp"`
	Device        string `json:"device"`
	JobID         string `json:"job_id,omitempty"`
}

type Statistics struct {
	TotalSpeakers      int      `json:"total_speakers"`
	TotalSegments      int      `json:"total_segments"`
	EnrolledSpeakers   []string `json:"enrolled_speakers"`
	DiarizedSpeakers   int      `json:"diarized_speakers"`
	IdentifiedSegments int      `json:"identified_segments"`
	FailedSegments     int      `json:"failed_segments"`
	// SpeakingTime is seconds per diarization label.
	SpeakingTime map[string]float64 `json:"speaking_time,omitempty"`
}

// Result is the document saved as meeting_transcript_<time>.json.
type Result struct {
	Metadata   Metadata   `json:"metadata"`
	Summary    string     `json:"summary"`
	Transcript []Line     `json:"transcript"`
	Statistics Statistics `json:"statistics"`
}

// Paths locates the files written by Save.
type Paths struct {
	JSON string
	TXT  string
}

// FormatLines keeps the identified speaker of each record.
func FormatLines(records []merger.MergedRecord) []Line {
	lines := make([]Line, 0, len(records))
	for _, r := range records {
		lines = append(lines, Line{
			Speaker:    r.IdentifiedSpeaker,
			Text:       r.Text,
			Timestamp:  r.Timestamp,
			Confidence: r.Confidence,
		})
	}
	return lines
}

// TranscriptText renders records as "[MM:SS] Speaker: text" lines.
func TranscriptText(records []merger.MergedRecord) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s: %s", r.Timestamp, r.IdentifiedSpeaker, r.Text)
	}
	return b.String()
}

// Save writes res as indented JSON and as a TXT transcript followed by the
// summary. Both files are named after now.
func Save(res *Result, dir string, now time.Time) (Paths, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return Paths{}, fmt.Errorf("encode result: %w", err)
	}

	f, base, err := reserve(filepath.Join(dir, "meeting_transcript_"+now.Format("20060102_150405")))
	if err != nil {
		return Paths{}, fmt.Errorf("create result json: %w", err)
	}
	paths := Paths{JSON: base + ".json", TXT: base + ".txt"}

	_, err = f.Write(buf.Bytes())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Paths{}, fmt.Errorf("write result json: %w", err)
	}

	if err := os.WriteFile(paths.TXT, []byte(renderText(res)), 0644); err != nil {
		return Paths{}, fmt.Errorf("write result txt: %w", err)
	}

	return paths, nil
}

// reserve creates <stem>.json exclusively, trying <stem>_2, <stem>_3 and so
// on when a job finishing in the same second already took the name. It
// returns the open file and the base path without extension.
func reserve(stem string) (*os.File, string, error) {
	for i := 1; i <= maxNameAttempts; i++ {
		base := stem
		if i > 1 {
			base = fmt.Sprintf("%s_%d", stem, i)
		}
		f, err := os.OpenFile(base+".json", os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, base, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free name for %s after %d attempts", stem, maxNameAttempts)
}

func renderText(res *Result) string {
	var b strings.Builder
	for _, l := range res.Transcript {
		fmt.Fprintf(&b, "%s %s: %s\n", l.Timestamp, l.Speaker, l.Text)
	}
	b.WriteString(SummaryHeader)
	b.WriteString(res.Summary)
	return b.String()
}
