package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
	"github.com/nguyentantai21042004/meeting-flow/pkg/executor"
)

// WhisperOptions configures the whisper.cpp CLI.
type WhisperOptions struct {
	BinaryPath string
	ModelPath  string
	Prompt     string
	Threads    int
}

type whisperCPP struct {
	executor executor.Executor
	opts     WhisperOptions
	logger   logger.Logger
}

// NewWhisperCPP runs the whisper.cpp binary and parses its JSON output.
func NewWhisperCPP(exec executor.Executor, opts WhisperOptions, log logger.Logger) Transcriber {
	return &whisperCPP{executor: exec, opts: opts, logger: log}
}

type whisperJSON struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (w *whisperCPP) Transcribe(ctx context.Context, audioPath, language string) (Transcript, error) {
	modelPath, err := filepath.Abs(w.opts.ModelPath)
	if err != nil {
		return Transcript{}, fmt.Errorf("resolve model path: %w", err)
	}

	// Whisper runs next to the audio so that its outputs stay in that
	// directory; it appends .json to the prefix.
	workDir := filepath.Dir(audioPath)
	audioName := filepath.Base(audioPath)
	outputPrefix := strings.TrimSuffix(audioName, filepath.Ext(audioName))
	jsonPath := filepath.Join(workDir, outputPrefix+".json")
	defer os.Remove(jsonPath)

	w.logger.Info(ctx, "Starting transcription with %d threads: %s", w.opts.Threads, audioPath)

	// -oj: JSON output, -l: force language, -ml/-mc 0: no segment/context limit, -bo 5: best of 5
	args := []string{
		"-m", modelPath,
		"-f", audioName,
		"-oj",
		"-l", language,
		"-t", strconv.Itoa(w.opts.Threads),
		"-ml", "0",
		"-mc", "0",
		"-bo", "5",
		"--output-file", outputPrefix,
	}
	if w.opts.Prompt != "" {
		args = append(args, "--prompt", w.opts.Prompt)
	}

	if _, err := w.executor.ExecuteInDir(ctx, workDir, w.opts.BinaryPath, args...); err != nil {
		return Transcript{}, fmt.Errorf("whisper transcribe: %w", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Transcript{}, fmt.Errorf("read whisper output: %w", err)
	}
	tr, err := parseWhisperJSON(data)
	if err != nil {
		return Transcript{}, err
	}
	if tr.Language == "" {
		tr.Language = language
	}

	w.logger.Info(ctx, "Transcription completed: %d segments", len(tr.Segments))
	return tr, nil
}

func parseWhisperJSON(data []byte) (Transcript, error) {
	var raw whisperJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Transcript{}, fmt.Errorf("decode whisper output: %w", err)
	}

	tr := Transcript{
		Language: raw.Result.Language,
		Segments: make([]Segment, 0, len(raw.Transcription)),
	}
	for _, s := range raw.Transcription {
		tr.Segments = append(tr.Segments, Segment{
			Text:  s.Text,
			Start: float64(s.Offsets.From) / 1000,
			End:   float64(s.Offsets.To) / 1000,
		})
	}
	return tr, nil
}
