package guard

import "errors"

// Errors returned by Open and Session operations. Engine failures such
// as invalid token limits or unknown strategies surface from the
// underlying packages and unwrap to their sentinels.
var (
	ErrEmptyProject     = errors.New("project must not be empty")
	ErrSessionClosed    = errors.New("session is closed")
	ErrInvalidRole      = errors.New("role must be user or assistant")
	ErrEmptyContent     = errors.New("content must not be empty")
	ErrInvalidChunkType = errors.New("unknown chunk type")
	ErrInvalidRelevance = errors.New("relevance must be within [0,1]")
	ErrInvalidBackend   = errors.New("storage backend must be memory or sqlite")
	ErrMissingPath      = errors.New("sqlite backend requires a path")
)
