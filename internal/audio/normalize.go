package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
	"github.com/nguyentantai21042004/meeting-flow/pkg/executor"
)

// Normalizer converts arbitrary recordings to mono 16-bit PCM WAV.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath, outputPath string) (string, error)
}

type implNormalizer struct {
	executor   executor.Executor
	binary     string
	sampleRate int
	logger     logger.Logger
}

// NewNormalizer creates a Normalizer that shells out to ffmpeg.
func NewNormalizer(exec executor.Executor, binary string, sampleRate int, log logger.Logger) Normalizer {
	return &implNormalizer{
		executor:   exec,
		binary:     binary,
		sampleRate: sampleRate,
		logger:     log,
	}
}

// Normalize writes inputPath as mono WAV at the configured rate.
// An empty outputPath becomes "<input>_normalized.wav".
func (n *implNormalizer) Normalize(ctx context.Context, inputPath, outputPath string) (string, error) {
	if _, err := os.Stat(inputPath); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("audio file not found: %s: %w", inputPath, err)
	}
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "_normalized.wav"
	}

	n.logger.Info(ctx, "Normalizing audio: %s", inputPath)

	// -ar: target rate, -ac 1: mono, -c:a pcm_s16le: 16-bit PCM, -y: overwrite
	args := []string{
		"-i", inputPath,
		"-ar", strconv.Itoa(n.sampleRate),
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		outputPath,
	}

	if _, err := n.executor.Execute(ctx, n.binary, args...); err != nil {
		return "", fmt.Errorf("ffmpeg normalize: %w", err)
	}

	n.logger.Info(ctx, "Audio normalized: %s", outputPath)
	return outputPath, nil
}
