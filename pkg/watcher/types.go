// Package watcher reports new and changed files in a single directory.
//
// It uses fsnotify and debounces events per path so an editor saving a file
// in several writes produces one event once the file has settled.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    DebounceInterval: 500 * time.Millisecond,
//	    Extensions:       []string{".txt", ".md"},
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx, "~/.config/podpost/outbox"); err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range w.Events() {
//	    fmt.Printf("File %s: %s\n", event.Path, event.Op)
//	}
package watcher

import (
	"context"
	"time"
)

// Op describes a file operation type.
type Op uint32

// File operation types.
const (
	OpCreate Op = 1 << iota // File created or moved in
	OpWrite                 // File modified
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// Event represents a file system event.
type Event struct {
	// Path is the path of the file that triggered the event.
	Path string

	// Op is the last operation seen within the debounce interval.
	Op Op

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Watcher provides directory monitoring.
type Watcher interface {
	// Start begins watching dir. Subdirectories are not watched.
	//
	// Returns ErrInvalidPath if dir does not exist or is not a directory.
	// Event processing runs until ctx is cancelled or Stop is called.
	Start(ctx context.Context, dir string) error

	// Stop gracefully shuts down the watcher.
	Stop() error

	// Events returns the channel for receiving debounced file events.
	//
	// The channel is closed by Close.
	Events() <-chan Event

	// Errors returns the channel for receiving watcher errors.
	//
	// Once CircuitBreakerThreshold consecutive errors occurred,
	// ErrCircuitBreakerOpen is sent instead of the raw error.
	Errors() <-chan error

	// Close closes the watcher and releases resources.
	Close() error
}

// Config contains watcher configuration.
type Config struct {
	// DebounceInterval is the time to wait before emitting an event.
	// Multiple events for the same file within this interval are coalesced.
	// Default: 500ms.
	DebounceInterval time.Duration

	// Extensions lists the file extensions to report, compared case
	// insensitively. Default: .txt and .md.
	Extensions []string

	// CircuitBreakerThreshold is the number of consecutive failures
	// before the circuit breaker opens.
	// Default: 5.
	CircuitBreakerThreshold int
}
