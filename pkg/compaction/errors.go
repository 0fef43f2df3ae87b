package compaction

import "errors"

var (
	// ErrNilMonitor indicates the engine was constructed without a health
	// monitor to operate on.
	ErrNilMonitor = errors.New("compaction engine requires a health monitor")

	// ErrInvalidStrategy indicates an unknown compaction strategy.
	ErrInvalidStrategy = errors.New("unknown compaction strategy")

	// ErrInvalidOptions indicates out-of-range compaction options.
	ErrInvalidOptions = errors.New("invalid compaction options")

	// ErrInvalidConfig indicates out-of-range engine configuration.
	ErrInvalidConfig = errors.New("invalid compaction config")
)
