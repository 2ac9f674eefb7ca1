package pod

import (
	"errors"
	"net"
	"net/url"
)

// Error kinds. Every *Error matches exactly one of them with errors.Is.
var (
	// ErrInvalidArgument is returned for missing credentials or an unsupported delete kind.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotInitialized is returned when an operation needs a CSRF token that was never fetched.
	ErrNotInitialized = errors.New("connection not initialised")

	// ErrConnection is returned when the token fetch fails or yields no token.
	ErrConnection = errors.New("connection failed")

	// ErrNotLoggedIn is returned when an operation needs an active session.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrLoginFailed is returned when the pod rejects the credentials.
	ErrLoginFailed = errors.New("login failed")

	// ErrDiscovery is returned when aspects or services cannot be loaded.
	ErrDiscovery = errors.New("discovery failed")

	// ErrPost is returned when a status message cannot be created.
	ErrPost = errors.New("post failed")

	// ErrDelete is returned when a delete request fails in transport.
	ErrDelete = errors.New("delete failed")

	// ErrNotFound is returned when the post or comment to delete does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the post or comment belongs to someone else.
	ErrForbidden = errors.New("forbidden")

	// ErrUnknown is returned for responses that fit no other kind.
	ErrUnknown = errors.New("unknown error")
)

// User facing messages.
const (
	msgNotInitialized     = "Connection not initialised."
	msgInitFailed         = "Failed to initialise connection to pod \"%s\"."
	msgMissingCredentials = "Username and password are required."
	msgNotLoggedIn        = "Not logged in."
	msgLoginFailed        = "Login failed. Check your login details."
	msgUnknown            = "Unknown error occurred."
	msgAspectsFailed      = "Error loading aspects."
	msgServicesFailed     = "Error loading services."
	msgDeleteKind         = "You can only delete posts and comments."
	msgDeleteMissingID    = "Nothing to delete: the ID is empty."
	msgDeleteNotFound     = "The %s you tried to delete does not exist."
	msgDeleteForbidden    = "The %s you tried to delete does not belong to you."
)

// Error is the structured error returned by every Client operation.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error

	// Message is the human readable description, suitable for end users.
	Message string

	// URL is the pod URL involved, if any.
	URL string

	// Err is the underlying transport or decoding error, if any.
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// transportMessage renders a transport failure the way users expect to read
// it. Name resolution failures become "Could not resolve host: <name>".
func transportMessage(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "Could not resolve host: " + dnsErr.Name
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}

	return err.Error()
}
