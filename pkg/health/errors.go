package health

import "errors"

// Configuration errors. A wrong budget silently changes compaction
// aggressiveness, so invalid values fail loudly instead of being clamped.
var (
	ErrInvalidTokenLimit  = errors.New("token limit must be positive")
	ErrInvalidTokenCount  = errors.New("token count must be positive")
	ErrInvalidThresholds  = errors.New("warning thresholds must be positive and below critical thresholds")
	ErrInvalidHistorySize = errors.New("history size must be positive")
)
