package critical

import "errors"

var (
	// ErrEmptyContent indicates an attempt to pin empty or blank text.
	ErrEmptyContent = errors.New("critical content must not be empty")

	// ErrInvalidType indicates an unknown explicit item type.
	ErrInvalidType = errors.New("unknown critical context type")
)
