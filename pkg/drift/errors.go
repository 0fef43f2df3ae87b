package drift

import "errors"

var (
	// ErrInvalidWindow indicates a non-positive history window or cap.
	ErrInvalidWindow = errors.New("drift window sizes must be positive")

	// ErrInvalidWeights indicates weights or thresholds outside their
	// valid ranges.
	ErrInvalidWeights = errors.New("drift weights must be non-negative and thresholds in (0,1]")
)
