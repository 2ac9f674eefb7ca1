package outbox

import "errors"

// Common errors returned by the outbox.
var (
	// ErrEmptyDraft is returned for a draft without text.
	ErrEmptyDraft = errors.New("draft has no text")

	// ErrInvalidFrontMatter is returned when the front matter is unterminated or not valid YAML.
	ErrInvalidFrontMatter = errors.New("invalid front matter")

	// ErrNoDir is returned when no outbox directory is configured.
	ErrNoDir = errors.New("no outbox directory configured")

	// ErrNoWatcher is returned by Run on an outbox created without a watcher.
	ErrNoWatcher = errors.New("outbox has no watcher")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("outbox already running")
)
