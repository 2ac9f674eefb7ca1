package store

import "errors"

// Common errors returned by the store.
var (
	// ErrSessionNotFound is returned when no session is saved for a pod.
	ErrSessionNotFound = errors.New("session not found")

	// ErrPostNotFound is returned when a post GUID is unknown.
	ErrPostNotFound = errors.New("post not found")

	// ErrEmptyKey is returned when a pod URL or GUID is empty.
	ErrEmptyKey = errors.New("key cannot be empty")

	// ErrInvalidRecord is returned for a nil record.
	ErrInvalidRecord = errors.New("invalid record")
)
