// Package outbox publishes drafts dropped into a directory.
//
// Every file with a watched extension is a draft: an optional YAML front
// matter block followed by the post text.
//
//	---
//	aspects: [family, friends]
//	extra:
//	  services: [twitter]
//	---
//	Hello from the outbox.
//
// Drafts present when Run starts are published first, then new and changed
// files as the watcher reports them. A published draft is moved to sent/,
// a rejected one to failed/ next to a .error file with the reason.
package outbox

import (
	"context"
	"time"
)

// Subdirectories of the outbox directory.
const (
	SentDir   = "sent"
	FailedDir = "failed"
)

// Draft is a parsed outbox file.
type Draft struct {
	// Text is the post body with surrounding whitespace removed.
	Text string

	// Aspects from the front matter; empty means the configured default.
	Aspects []string

	// Extra is merged into the post request body.
	Extra map[string]any

	// Source is the file the draft was read from.
	Source string
}

// Publisher sends a draft to the pod.
type Publisher interface {
	Publish(ctx context.Context, draft Draft) error
}

// Result describes what happened to one outbox file.
type Result struct {
	// Path is the original file path.
	Path string

	// Dest is where the file was moved, empty if it was not moved.
	Dest string

	// Err is nil when the draft was published.
	Err error

	// Timestamp is when processing finished.
	Timestamp time.Time
}

// Config contains outbox configuration.
type Config struct {
	// Dir is the watched directory.
	Dir string

	// Extensions of draft files. Default: .txt and .md.
	Extensions []string

	// DefaultAspects apply to drafts without an aspects entry.
	DefaultAspects []string
}
