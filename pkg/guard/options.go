package guard

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rotguard/pkg/storage"
	"github.com/fyrsmithlabs/rotguard/pkg/tokens"
)

type options struct {
	cfg       *Config
	logger    *zap.Logger
	estimator tokens.Estimator
	store     storage.Store
}

// Option customizes Open.
type Option func(*options)

// WithConfig replaces the default configuration. Missing fields are
// filled from DefaultConfig and the result is validated during Open.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = &cfg
	}
}

// WithLogger supplies the zap logger session events are written to.
// When absent a logger is built from Config.Logging.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEstimator replaces the monitor's token estimator.
func WithEstimator(e tokens.Estimator) Option {
	return func(o *options) {
		if e != nil {
			o.estimator = e
		}
	}
}

// WithStore supplies an externally owned store for pinned items and
// health snapshots. Config.Storage is ignored and Close leaves the
// store open.
func WithStore(s storage.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// ChunkOption customizes AddContextChunk.
type ChunkOption func(*chunkOptions)

type chunkOptions struct {
	relevance float64
	critical  bool
}

// WithRelevance sets the chunk's relevance score in [0,1]. Unscored
// chunks default to 0.5.
func WithRelevance(score float64) ChunkOption {
	return func(o *chunkOptions) {
		o.relevance = score
	}
}

// AsCritical marks the chunk critical so no compaction strategy removes
// or summarizes it.
func AsCritical() ChunkOption {
	return func(o *chunkOptions) {
		o.critical = true
	}
}
