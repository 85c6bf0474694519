package database

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("database: not found")
	// ErrStaleState is returned when an SRS state was changed by another writer
	// since it was read. Reload and recompute before saving again.
	ErrStaleState = errors.New("database: stale srs state")
	// ErrDuplicateEvent is returned when a response event ID was already recorded
	ErrDuplicateEvent = errors.New("database: duplicate response event")
)
