package processor

import (
	"time"

	"github.com/nguyentantai21042004/meeting-flow/internal/audio"
	"github.com/nguyentantai21042004/meeting-flow/internal/config"
	"github.com/nguyentantai21042004/meeting-flow/internal/engine"
	"github.com/nguyentantai21042004/meeting-flow/internal/jobstore"
	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
	"github.com/nguyentantai21042004/meeting-flow/internal/merger"
	"github.com/nguyentantai21042004/meeting-flow/internal/recognizer"
	"github.com/nguyentantai21042004/meeting-flow/internal/summarizer"
)

// Deps are the pipeline stages. Jobs may be nil.
type Deps struct {
	Normalizer  audio.Normalizer
	Recognizer  recognizer.Recognizer
	Transcriber engine.Transcriber
	Diarizer    engine.Diarizer
	Merger      merger.Merger
	Summarizer  summarizer.Summarizer
	Jobs        jobstore.Store
}

type implProcessor struct {
	cfg        *config.Config
	deps       Deps
	logger     logger.Logger
	enrollGate gate
	now        func() time.Time
}

// New creates a new Processor instance
func New(cfg *config.Config, deps Deps, log logger.Logger) Processor {
	return &implProcessor{
		cfg:        cfg,
		deps:       deps,
		logger:     log,
		enrollGate: newGate(),
		now:        time.Now,
	}
}
