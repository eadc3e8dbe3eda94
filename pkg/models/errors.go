package models

import "errors"

// Error kinds shared by every layer. Callers match them with errors.Is.
var (
	// ErrContractViolation marks programmer errors: bad window/overlap,
	// signals shorter than a window, unsupported channel layouts.
	ErrContractViolation = errors.New("contract violation")

	// ErrEmptyQuery is returned when a search is given no fingerprints.
	ErrEmptyQuery = errors.New("empty query")

	// ErrStorage wraps every failure reported by a storage backend.
	ErrStorage = errors.New("storage failure")

	// ErrSongNotFound is returned when a song id is absent from the store.
	ErrSongNotFound = errors.New("song not found")

	// ErrUnsupportedFormat is returned for audio containers the decoder cannot read.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)
