package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Summary providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

type Config struct {
	Speaker       SpeakerConfig       `yaml:"speaker"`
	Cache         CacheConfig         `yaml:"cache"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Diarization   DiarizationConfig   `yaml:"diarization"`
	FFmpeg        FFmpegConfig        `yaml:"ffmpeg"`
	Paths         PathsConfig         `yaml:"paths"`
	Logging       LoggingConfig       `yaml:"logging"`
	Performance   PerformanceConfig   `yaml:"performance"`
	Summary       SummaryConfig       `yaml:"summary"`
}

const DefaultThreshold = 0.25

type SpeakerConfig struct {
	DBPath    string   `yaml:"db_path"`
	// Threshold is nil when unset so that an explicit 0 survives Validate.
	Threshold *float64 `yaml:"threshold"`
	EnrollDir string   `yaml:"enroll_dir"`
}

// MatchThreshold returns the configured threshold or DefaultThreshold.
func (s SpeakerConfig) MatchThreshold() float64 {
	if s.Threshold == nil {
		return DefaultThreshold
	}
	return *s.Threshold
}

type CacheConfig struct {
	Dir string `yaml:"dir"`
}

type EmbeddingConfig struct {
	URL         string `yaml:"url"`
	ModelSource string `yaml:"model_source"`
	Device      string `yaml:"device"`
	SampleRate  int    `yaml:"sample_rate"`
}

type TranscriptionConfig struct {
	Backend    string `yaml:"backend"` // whisper | http
	URL        string `yaml:"url"`
	BinaryPath string `yaml:"binary_path"`
	ModelPath  string `yaml:"model_path"`
	Language   string `yaml:"language"`
	Prompt     string `yaml:"prompt"`
	Threads    int    `yaml:"threads"`
}

type DiarizationConfig struct {
	URL string `yaml:"url"`
}

type FFmpegConfig struct {
	Binary     string `yaml:"binary"`
	SampleRate int    `yaml:"sample_rate"`
}

type PathsConfig struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	Archived string `yaml:"archived"`
	Temp     string `yaml:"temp"`
	Jobs     string `yaml:"jobs"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PerformanceConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

type SummaryConfig struct {
	Provider   string   `yaml:"provider"` // gemini | openai | none
	Model      string   `yaml:"model"`
	APIKeys    []string `yaml:"api_keys"`
	BaseURL    string   `yaml:"base_url"`
	PromptPath string   `yaml:"prompt_path"`
}

// Load reads the YAML file at path, applies environment overrides and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	switch c.Summary.Provider {
	case ProviderGemini:
		if v := os.Getenv("GEMINI_API_KEYS"); v != "" {
			c.Summary.APIKeys = splitKeys(v)
		}
	case ProviderOpenAI:
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.Summary.APIKeys = []string{v}
		}
	}
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func (c *Config) Validate() error {
	if c.Embedding.URL == "" {
		return fmt.Errorf("embedding.url is required")
	}
	if c.Diarization.URL == "" {
		return fmt.Errorf("diarization.url is required")
	}
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = "whisper"
	}
	switch c.Transcription.Backend {
	case "whisper":
		if c.Transcription.ModelPath == "" {
			return fmt.Errorf("transcription.model_path is required")
		}
		if c.Transcription.BinaryPath == "" {
			return fmt.Errorf("transcription.binary_path is required")
		}
	case "http":
		if c.Transcription.URL == "" {
			return fmt.Errorf("transcription.url is required")
		}
	default:
		return fmt.Errorf("transcription.backend %q is not supported", c.Transcription.Backend)
	}
	if c.Paths.Output == "" {
		return fmt.Errorf("paths.output is required")
	}
	if t := c.Speaker.MatchThreshold(); t < 0 || t > 1 {
		return fmt.Errorf("speaker.threshold must be within [0, 1]")
	}

	if c.Speaker.DBPath == "" {
		c.Speaker.DBPath = "speaker_db/speaker_db.msgpack"
	}
	if c.Speaker.Threshold == nil {
		t := DefaultThreshold
		c.Speaker.Threshold = &t
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "model_cache"
	}
	if c.Embedding.ModelSource == "" {
		c.Embedding.ModelSource = "speechbrain/spkrec-ecapa-voxceleb"
	}
	if c.Embedding.Device == "" {
		c.Embedding.Device = "cpu"
	}
	if c.Embedding.SampleRate == 0 {
		c.Embedding.SampleRate = 16000
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = "vi"
	}
	if c.Transcription.Threads == 0 {
		c.Transcription.Threads = 8
	}
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = "ffmpeg"
	}
	if c.FFmpeg.SampleRate == 0 {
		c.FFmpeg.SampleRate = 16000
	}
	if c.Paths.Input == "" {
		c.Paths.Input = "data/input"
	}
	if c.Paths.Archived == "" {
		c.Paths.Archived = "data/archived"
	}
	if c.Paths.Temp == "" {
		c.Paths.Temp = "data/temp"
	}
	if c.Paths.Jobs == "" {
		c.Paths.Jobs = "data/jobs"
	}
	if c.Performance.MaxConcurrent == 0 {
		c.Performance.MaxConcurrent = 2
	}
	if c.Summary.Provider == "" {
		c.Summary.Provider = ProviderNone
	}
	switch c.Summary.Provider {
	case ProviderGemini:
		if c.Summary.Model == "" {
			c.Summary.Model = "gemini-2.5-flash"
		}
	case ProviderOpenAI:
		if c.Summary.Model == "" {
			c.Summary.Model = "vistral-7b-chat"
		}
		if c.Summary.BaseURL == "" {
			c.Summary.BaseURL = "http://localhost:1234/v1"
		}
	case ProviderNone:
	default:
		return fmt.Errorf("summary.provider %q is not supported", c.Summary.Provider)
	}

	return nil
}
