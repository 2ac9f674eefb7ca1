package pod

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/0xmhha/podpost/pkg/logger"
)

// Pod endpoints.
const (
	pathSignIn         = "/users/sign_in"
	pathStream         = "/stream"
	pathAspects        = "/aspects"
	pathServices       = "/services"
	pathStatusMessages = "/status_messages"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 4 << 20

// response is a fully read pod response.
type response struct {
	status int
	header http.Header
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// do sends one request to the pod with the current cookies, then records the
// request, merges returned cookies and picks up any fresher CSRF token.
//
// The caller must hold c.mu.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, header http.Header) (*response, error) {
	fullURL := c.buildURL(path)

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for key, values := range header {
		req.Header[key] = values
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if len(c.cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(c.cookies, "; "))
	}

	start := time.Now()
	c.lastRequest = &RequestInfo{Method: method, URL: fullURL, At: start}

	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.log.Warn("pod request failed",
			"method", method,
			"url", fullURL,
			"duration", duration,
			"error", err)
		return nil, err
	}
	defer resp.Body.Close()

	c.lastRequest.StatusCode = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.log.Warn("reading pod response failed",
			"method", method,
			"url", fullURL,
			"status", resp.StatusCode,
			"error", err)
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.log.Debug("pod request",
		"method", method,
		"url", fullURL,
		"status", resp.StatusCode,
		"duration", duration)

	c.mergeCookies(resp.Cookies())

	if token := extractToken(data); token != "" && token != c.token {
		c.token = token
		c.log.Debug("csrf token updated", "token", logger.Secret(token))
	}

	return &response{
		status: resp.StatusCode,
		header: resp.Header,
		body:   data,
	}, nil
}

// mergeCookies folds Set-Cookie values into the cookie list by name,
// keeping the original order. Cookies the pod expires are dropped.
func (c *Client) mergeCookies(cookies []*http.Cookie) {
	for _, ck := range cookies {
		if ck.Name == "" {
			continue
		}

		expired := ck.MaxAge < 0 || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now()))
		prefix := ck.Name + "="
		idx := -1
		for i, existing := range c.cookies {
			if strings.HasPrefix(existing, prefix) {
				idx = i
				break
			}
		}

		switch {
		case expired && idx >= 0:
			c.cookies = append(c.cookies[:idx], c.cookies[idx+1:]...)
		case expired:
		case idx >= 0:
			c.cookies[idx] = prefix + ck.Value
		default:
			c.cookies = append(c.cookies, prefix+ck.Value)
		}
	}
}

// jsonHeader is the header set for JSON API calls.
func (c *Client) jsonHeader(withBody bool) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if withBody {
		h.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		h.Set("X-CSRF-Token", c.token)
	}
	return h
}

func defaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
