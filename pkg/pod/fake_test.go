package pod

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordedRequest is what fakeTransport saw.
type recordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

type fakeResult struct {
	resp *http.Response
	err  error
}

// fakeTransport replays queued responses and records every request.
type fakeTransport struct {
	requests  []recordedRequest
	responses []fakeResult
}

func (f *fakeTransport) Do(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}

	f.requests = append(f.requests, recordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})

	if len(f.responses) == 0 {
		return nil, errors.New("fakeTransport: no response queued")
	}

	r := f.responses[0]
	f.responses = f.responses[1:]
	return r.resp, r.err
}

// respond queues a response. headers are key, value pairs.
func (f *fakeTransport) respond(status int, body string, headers ...string) *fakeTransport {
	h := http.Header{}
	for i := 0; i+1 < len(headers); i += 2 {
		h.Add(headers[i], headers[i+1])
	}

	f.responses = append(f.responses, fakeResult{resp: &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}})
	return f
}

// fail queues a transport error.
func (f *fakeTransport) fail(err error) *fakeTransport {
	f.responses = append(f.responses, fakeResult{err: err})
	return f
}

func (f *fakeTransport) calls() int {
	return len(f.requests)
}

func (f *fakeTransport) last() recordedRequest {
	if len(f.requests) == 0 {
		return recordedRequest{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeTransport) reset() {
	f.requests = nil
	f.responses = nil
}

func signInPage(token string) string {
	return `<!DOCTYPE html><html><head>` +
		`<meta name="csrf-param" content="authenticity_token" />` +
		`<meta name="csrf-token" content="` + token + `" />` +
		`</head><body><form action="/users/sign_in" method="post">` +
		`<input type="hidden" name="authenticity_token" value="` + token + `">` +
		`<input type="text" name="user[username]">` +
		`<input type="password" name="user[password]">` +
		`</form></body></html>`
}

// streamPage is the page a signed in user lands on.
func streamPage(token string) string {
	return `<!DOCTYPE html><html><head>` +
		`<meta name="csrf-param" content="authenticity_token" />` +
		`<meta name="csrf-token" content="` + token + `" />` +
		`</head><body><div id="main-stream"></div></body></html>`
}

func dnsFailure(host string) error {
	return &url.Error{
		Op:  "Get",
		URL: "https://" + host + "/users/sign_in",
		Err: &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: &net.DNSError{Err: "no such host", Name: host, IsNotFound: true},
		},
	}
}

func newTestClient(ft *fakeTransport, opts ...Option) *Client {
	return New("pod", append([]Option{WithHTTPClient(ft)}, opts...)...)
}

// loggedInClient returns a client signed in as username/password on pod
// "pod" with token "token". The transport is reset afterwards.
func loggedInClient(t *testing.T, ft *fakeTransport) *Client {
	t.Helper()

	c := newTestClient(ft)
	require.True(t, c.Restore(SessionState{
		Host:     "pod",
		UseHTTPS: true,
		Token:    "token",
		Cookies:  []string{"_diaspora_session=abc"},
	}))

	ft.respond(http.StatusFound, "", "Location", "https://pod/stream")
	ft.respond(http.StatusOK, streamPage("token"))
	require.NoError(t, c.Login(context.Background(), "username", "password", false))
	require.True(t, c.IsLoggedIn())
	require.Equal(t, "token", c.Token())

	ft.reset()
	return c
}
