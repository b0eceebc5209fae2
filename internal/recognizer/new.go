package recognizer

import (
	"github.com/nguyentantai21042004/meeting-flow/internal/audio"
	"github.com/nguyentantai21042004/meeting-flow/internal/engine"
	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
	"github.com/nguyentantai21042004/meeting-flow/internal/modelcache"
	"github.com/nguyentantai21042004/meeting-flow/internal/speakerdb"
)

// Options configures the embedding model.
type Options struct {
	ModelSource string
	Device      string
	URL         string
	SampleRate  int
	// Normalizer, if set, converts non-WAV samples before decoding.
	Normalizer audio.Normalizer
}

type implRecognizer struct {
	db      *speakerdb.DB
	cache   *modelcache.Cache
	factory engine.EmbedderFactory
	opts    Options
	logger  logger.Logger
}

// New creates a Recognizer over db. The embedding model is built lazily
// through cache, so it loads at most once per process.
func New(db *speakerdb.DB, cache *modelcache.Cache, factory engine.EmbedderFactory, opts Options, log logger.Logger) Recognizer {
	if opts.Device == "" {
		opts.Device = "cpu"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	return &implRecognizer{
		db:      db,
		cache:   cache,
		factory: factory,
		opts:    opts,
		logger:  log,
	}
}
