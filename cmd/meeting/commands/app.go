package commands

import (
	"time"

	"github.com/nguyentantai21042004/meeting-flow/internal/audio"
	"github.com/nguyentantai21042004/meeting-flow/internal/config"
	"github.com/nguyentantai21042004/meeting-flow/internal/engine"
	"github.com/nguyentantai21042004/meeting-flow/internal/jobstore"
	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
	"github.com/nguyentantai21042004/meeting-flow/internal/merger"
	"github.com/nguyentantai21042004/meeting-flow/internal/modelcache"
	"github.com/nguyentantai21042004/meeting-flow/internal/processor"
	"github.com/nguyentantai21042004/meeting-flow/internal/recognizer"
	"github.com/nguyentantai21042004/meeting-flow/internal/speakerdb"
	"github.com/nguyentantai21042004/meeting-flow/internal/summarizer"
	"github.com/nguyentantai21042004/meeting-flow/pkg/executor"
)

// Model servers may take minutes on a long recording.
const engineTimeout = 30 * time.Minute

// app holds the components shared by the commands. The model cache is
// opened exactly once here and handed to everything that needs it.
type app struct {
	cfg        *config.Config
	logger     logger.Logger
	exec       executor.Executor
	http       *engine.HTTP
	normalizer audio.Normalizer
	recognizer recognizer.Recognizer
}

func newApp(cfg *config.Config, log logger.Logger) (*app, error) {
	cache, err := modelcache.Open(cfg.Cache.Dir, log)
	if err != nil {
		return nil, err
	}

	exec := executor.New()
	h := engine.NewHTTP(engineTimeout)
	normalizer := audio.NewNormalizer(exec, cfg.FFmpeg.Binary, cfg.FFmpeg.SampleRate, log)
	db := speakerdb.Open(cfg.Speaker.DBPath, log)

	rec := recognizer.New(db, cache, engine.HTTPEmbedderFactory(h), recognizer.Options{
		ModelSource: cfg.Embedding.ModelSource,
		Device:      cfg.Embedding.Device,
		URL:         cfg.Embedding.URL,
		SampleRate:  cfg.Embedding.SampleRate,
		Normalizer:  normalizer,
	}, log)

	return &app{
		cfg:        cfg,
		logger:     log,
		exec:       exec,
		http:       h,
		normalizer: normalizer,
		recognizer: rec,
	}, nil
}

func (a *app) transcriber() engine.Transcriber {
	t := a.cfg.Transcription
	if t.Backend == "http" {
		return engine.NewHTTPTranscriber(a.http, t.URL)
	}
	return engine.NewWhisperCPP(a.exec, engine.WhisperOptions{
		BinaryPath: t.BinaryPath,
		ModelPath:  t.ModelPath,
		Prompt:     t.Prompt,
		Threads:    t.Threads,
	}, a.logger)
}

// processor wires the full pipeline. The caller closes the returned job store.
func (a *app) processor() (processor.Processor, jobstore.Store, error) {
	sum, err := summarizer.New(a.cfg.Summary, a.logger)
	if err != nil {
		return nil, nil, err
	}

	jobs, err := jobstore.New(jobstore.Options{Dir: a.cfg.Paths.Jobs}, a.logger)
	if err != nil {
		return nil, nil, err
	}

	proc := processor.New(a.cfg, processor.Deps{
		Normalizer:  a.normalizer,
		Recognizer:  a.recognizer,
		Transcriber: a.transcriber(),
		Diarizer:    engine.NewHTTPDiarizer(a.http, a.cfg.Diarization.URL),
		Merger:      merger.New(a.recognizer, a.cfg.Speaker.MatchThreshold(), a.logger),
		Summarizer:  sum,
		Jobs:        jobs,
	}, a.logger)

	return proc, jobs, nil
}
