package summarizer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nguyentantai21042004/meeting-flow/internal/config"
	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
)

type implSummarizer struct {
	client Client
	prompt string
	logger logger.Logger
}

// New creates a Summarizer for cfg.Provider. Provider "none" always yields
// the fallback text. A missing prompt file falls back to DefaultPrompt.
func New(cfg config.SummaryConfig, log logger.Logger) (Summarizer, error) {
	var client Client
	switch cfg.Provider {
	case config.ProviderGemini:
		if len(cfg.APIKeys) == 0 {
			return nil, fmt.Errorf("gemini summary needs at least one API key")
		}
		client = NewGemini(cfg.APIKeys, cfg.Model, log)
	case config.ProviderOpenAI:
		client = NewOpenAI(cfg.BaseURL, firstKey(cfg.APIKeys), cfg.Model)
	case config.ProviderNone, "":
	default:
		return nil, fmt.Errorf("unknown summary provider %q", cfg.Provider)
	}

	return NewWithClient(client, loadPrompt(cfg.PromptPath, log), log), nil
}

// NewWithClient wraps an existing Client. A nil client disables the model.
func NewWithClient(client Client, prompt string, log logger.Logger) Summarizer {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	return &implSummarizer{
		client: client,
		prompt: prompt,
		logger: log,
	}
}

func loadPrompt(path string, log logger.Logger) string {
	if path == "" {
		return DefaultPrompt
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn(context.Background(), "Failed to read summary prompt %s, using default: %v", path, err)
		return DefaultPrompt
	}
	return string(data)
}

func firstKey(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
