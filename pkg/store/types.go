// Package store persists pod sessions and the history of published posts.
//
// Sessions are keyed by pod URL so a later run can reuse the CSRF token and
// cookies instead of scraping the sign-in page again. Posts are keyed by
// pod URL and GUID.
//
// Example usage:
//
//	st, err := store.New(store.Config{
//	    DBPath: "~/.config/podpost/podpost.db",
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//
//	if err := st.SaveSession(&store.SessionRecord{
//	    PodURL: "https://pod.example",
//	    Token:  token,
//	}); err != nil {
//	    log.Fatal(err)
//	}
package store

import "time"

// SessionRecord is the persisted part of a pod session.
type SessionRecord struct {
	// PodURL is scheme://host and the record key.
	PodURL string `json:"pod_url"`

	// Username of the last successful login, informational only.
	Username string `json:"username,omitempty"`

	// Token is the CSRF token.
	Token string `json:"token"`

	// Cookies are name=value pairs.
	Cookies []string `json:"cookies,omitempty"`

	// UpdatedAt is set on every save.
	UpdatedAt time.Time `json:"updated_at"`
}

// PostRecord is a published status message.
type PostRecord struct {
	// GUID is the pod's global post identifier. Together with PodURL it
	// forms the record key.
	GUID string `json:"guid"`

	// ID is the pod-local numeric identifier used for deletion.
	ID int64 `json:"id"`

	PodURL    string   `json:"pod_url"`
	Text      string   `json:"text"`
	Aspects   []string `json:"aspects,omitempty"`
	Public    bool     `json:"public"`
	Permalink string   `json:"permalink"`

	// Source is "cli" or the outbox file the post came from.
	Source string `json:"source,omitempty"`

	// CreatedAt is set by RecordPost.
	CreatedAt time.Time `json:"created_at"`
}

// Store provides session and post persistence.
type Store interface {
	// SaveSession creates or replaces the session of record.PodURL.
	SaveSession(record *SessionRecord) error

	// LoadSession returns the session of podURL.
	//
	// Returns ErrSessionNotFound if none was saved.
	LoadSession(podURL string) (*SessionRecord, error)

	// DeleteSession removes the session of podURL.
	// Does not error if the session doesn't exist.
	DeleteSession(podURL string) error

	// RecordPost stores a published post and sets its CreatedAt.
	RecordPost(record *PostRecord) error

	// GetPost returns the post with guid published on podURL.
	//
	// Returns ErrPostNotFound if unknown.
	GetPost(podURL, guid string) (*PostRecord, error)

	// ListPosts returns all recorded posts, newest first.
	ListPosts() ([]*PostRecord, error)

	// DeletePost forgets the post with guid published on podURL.
	// Missing posts are not an error.
	DeletePost(podURL, guid string) error

	// Close closes the database connection and releases resources.
	Close() error
}

// Config contains store configuration.
type Config struct {
	// DBPath is the BoltDB file path. A leading ~ is expanded.
	DBPath string

	// Timeout is the database lock timeout (default: 1 second).
	Timeout time.Duration
}
