// Package pod implements a session client for a diaspora*-style pod.
//
// A Client owns every network exchange with one pod: it scrapes the CSRF
// token from the sign-in page, signs in with a form post while carrying the
// session cookies, discovers aspects and services, publishes status messages
// and deletes posts or comments.
//
// Every operation returns its error directly and also stores it in a single
// last-error slot (nil after a successful call) for collaborators that poll.
//
// Example usage:
//
//	client := pod.New("pod.example", pod.WithLogger(log))
//	if err := client.Initialize(ctx); err != nil {
//	    return err
//	}
//	if err := client.Login(ctx, "alice", password, false); err != nil {
//	    return err
//	}
//	post, err := client.Post(ctx, "Hello pod", []string{pod.PublicAspect}, nil)
package pod

import (
	"net/http"
	"time"
)

// PublicAspect is the pseudo aspect that targets everyone.
const PublicAspect = "public"

// Kinds accepted by Client.Delete.
const (
	KindPost    = "post"
	KindComment = "comment"
)

// Doer sends a single HTTP request.
//
// *http.Client satisfies it. Implementations must not follow redirects: the
// client inspects 3xx responses itself.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Aspect is a named audience on the pod.
type Aspect struct {
	// ID is the pod's aspect identifier, or PublicAspect.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`
}

// Service is a connected external service (facebook, twitter, ...).
type Service struct {
	// Key is the provider identifier the pod expects in post requests.
	Key string `json:"key"`

	// Name is the display name.
	Name string `json:"name"`
}

// Post is a published status message.
type Post struct {
	ID     int64  `json:"id"`
	Public bool   `json:"public"`
	GUID   string `json:"guid"`
	Text   string `json:"text"`

	// Permalink is derived locally from GUID; the pod does not return it.
	Permalink string `json:"permalink"`
}

// RequestInfo describes the most recent outbound request.
type RequestInfo struct {
	Method     string
	URL        string
	StatusCode int // zero when the transport failed
	At         time.Time
}

// SessionState is the part of a session that can outlive the process.
//
// Credentials are never part of it.
type SessionState struct {
	Host     string   `json:"host"`
	UseHTTPS bool     `json:"use_https"`
	Token    string   `json:"token,omitempty"`
	Cookies  []string `json:"cookies,omitempty"`

	// Username is informational; it is only set while logged in.
	Username string `json:"username,omitempty"`
}
