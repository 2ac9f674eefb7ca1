package pod

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/0xmhha/podpost/pkg/logger"
)

// DefaultProvider is sent as provider_display_name with every post.
const DefaultProvider = "podpost"

// DefaultTimeout applies to the built-in HTTP client.
const DefaultTimeout = 60 * time.Second

// Client is a session with one pod.
//
// A Client is safe for concurrent use; operations are serialized.
type Client struct {
	mu sync.Mutex

	http      Doer
	log       logger.Logger
	provider  string
	userAgent string
	timeout   time.Duration

	host     string
	useHTTPS bool

	token       string
	cookies     []string
	lastRequest *RequestInfo

	loggedIn bool
	username string
	password string

	aspects  []Aspect
	services []Service

	lastErr *Error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPS selects https (the default) or plain http.
func WithHTTPS(useHTTPS bool) Option {
	return func(c *Client) { c.useHTTPS = useHTTPS }
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithProvider sets the provider_display_name sent with posts.
func WithProvider(name string) Option {
	return func(c *Client) { c.provider = name }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithTimeout sets the timeout of the built-in HTTP client. It has no
// effect together with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a client for host.
//
// Parameters:
//   - host: Bare pod domain without scheme or path, e.g. "pod.example"
//   - opts: Options; https, the podpost provider name and a 60 second
//     timeout apply by default
//
// Returns:
//   - Client with no token. No request is made until Initialize.
func New(host string, opts ...Option) *Client {
	c := &Client{
		host:     host,
		useHTTPS: true,
		provider: DefaultProvider,
		timeout:  DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Fill what the options left out.
	if c.log == nil {
		c.log = logger.Noop()
	}
	if c.http == nil {
		c.http = defaultHTTPClient(c.timeout)
	}

	return c
}

// BuildURL returns the pod URL for path. Leading and trailing slashes of
// path are ignored and an empty path yields the bare pod URL.
func (c *Client) BuildURL(path string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.buildURL(path)
}

func (c *Client) buildURL(path string) string {
	scheme := "https"
	if !c.useHTTPS {
		scheme = "http"
	}

	u := scheme + "://" + c.host
	if p := strings.Trim(path, "/"); p != "" {
		u += "/" + p
	}
	return u
}

// Initialize makes sure a CSRF token is available for the configured pod.
// An existing token is kept and no request is made.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.record(c.initialize(ctx, false))
}

// InitializePod switches to host and scheme, then initializes. Switching to
// another pod or scheme drops the token, the cookies and the login, so a new
// token is always fetched.
func (c *Client) InitializePod(ctx context.Context, host string, useHTTPS bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	force := false
	if host != c.host || useHTTPS != c.useHTTPS {
		c.log.Info("switching pod",
			"from", c.buildURL(""),
			"host", host,
			"https", useHTTPS)

		c.logout()
		c.host = host
		c.useHTTPS = useHTTPS
		c.token = ""
		c.cookies = nil
		force = true
	}

	return c.record(c.initialize(ctx, force))
}

func (c *Client) initialize(ctx context.Context, force bool) *Error {
	c.lastErr = nil
	podURL := c.buildURL("")
	message := fmt.Sprintf(msgInitFailed, podURL)

	token, err := c.fetchToken(ctx, force)
	if err != nil {
		return &Error{
			Kind:    ErrConnection,
			Message: message + " " + transportMessage(err),
			URL:     podURL,
			Err:     err,
		}
	}
	if token == "" {
		return &Error{Kind: ErrConnection, Message: message, URL: podURL}
	}

	c.log.Debug("connection initialised", "pod", podURL, "token", logger.Secret(token))
	return nil
}

// fetchToken returns the cached token, fetching the sign-in page when there
// is none or force is set. The caller must hold c.mu.
func (c *Client) fetchToken(ctx context.Context, force bool) (string, error) {
	if c.token != "" && !force {
		return c.token, nil
	}

	c.token = ""
	if _, err := c.do(ctx, http.MethodGet, pathSignIn, nil, nil); err != nil {
		return "", err
	}

	return c.token, nil
}

func (c *Client) checkInit() *Error {
	if c.token == "" {
		return newError(ErrNotInitialized, msgNotInitialized)
	}
	return nil
}

func (c *Client) checkLogin() *Error {
	if !c.loggedIn {
		return newError(ErrNotLoggedIn, msgNotLoggedIn)
	}
	return nil
}

// IsLoggedIn reports whether the last login succeeded and no logout followed.
func (c *Client) IsLoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loggedIn
}

// Login signs in with username and password.
//
// Logging in again with the same credentials is a no-op unless force is set.
// The connection must have been initialised. The pod rotates the CSRF token
// at sign in; when the sign-in response carries no new token the stream page
// is loaded to pick it up. Aspects and services are not loaded here.
func (c *Client) Login(ctx context.Context, username, password string, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if username == "" || password == "" {
		c.logout()
		return c.record(newError(ErrInvalidArgument, msgMissingCredentials))
	}

	if !force && c.loggedIn && username == c.username && password == c.password {
		return c.record(nil)
	}

	c.logout()

	if e := c.checkInit(); e != nil {
		return c.record(e)
	}

	form := url.Values{}
	form.Set("user[username]", username)
	form.Set("user[password]", password)
	form.Set("user[remember_me]", "1")
	submitted := c.token
	form.Set("authenticity_token", submitted)

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(ctx, http.MethodPost, pathSignIn, strings.NewReader(form.Encode()), header)
	if err != nil || signInRejected(resp) {
		c.log.Warn("sign in rejected", "pod", c.host, "username", username)
		return c.record(&Error{
			Kind:    ErrLoginFailed,
			Message: msgLoginFailed,
			URL:     c.buildURL(pathSignIn),
			Err:     err,
		})
	}

	c.loggedIn = true
	c.username = username
	c.password = password

	if c.token == submitted {
		c.refreshToken(ctx)
	}

	c.log.Info("signed in", "pod", c.host, "username", username)
	return c.record(nil)
}

// refreshToken loads the stream page for the token issued at sign in. The
// current token is kept when the page cannot be loaded or carries none.
// The caller must hold c.mu.
func (c *Client) refreshToken(ctx context.Context) {
	before := c.token

	if _, err := c.do(ctx, http.MethodGet, pathStream, nil, nil); err != nil {
		c.log.Warn("failed to refresh csrf token", "pod", c.host, "error", err)
		return
	}

	if c.token == before {
		c.log.Debug("csrf token unchanged after sign in", "pod", c.host)
	}
}

// signInRejected recognizes a failed sign in: an error status, a redirect
// back to the sign-in page, or the sign-in form rendered again.
func signInRejected(resp *response) bool {
	if resp.status >= http.StatusBadRequest {
		return true
	}

	if resp.status >= http.StatusMultipleChoices {
		if loc, err := url.Parse(resp.header.Get("Location")); err == nil &&
			strings.TrimSuffix(loc.Path, "/") == pathSignIn {
			return true
		}
	}

	return hasSignInForm(resp.body)
}

// Aspects returns the account's aspects, led by the public pseudo aspect.
// The list is fetched once per login unless force is set.
func (c *Client) Aspects(ctx context.Context, force bool) ([]Aspect, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.checkLogin(); e != nil {
		return nil, c.record(e)
	}

	if len(c.aspects) == 0 || force {
		records, e := c.fetchList(ctx, listAspects)
		if e != nil {
			return nil, c.record(e)
		}

		aspects := make([]Aspect, 0, len(records))
		for _, r := range records {
			aspects = append(aspects, Aspect{ID: r.id, Name: r.name})
		}
		c.aspects = aspects
	}

	c.lastErr = nil
	return append([]Aspect(nil), c.aspects...), nil
}

// Services returns the services connected to the account. The list is
// fetched once per login unless force is set.
func (c *Client) Services(ctx context.Context, force bool) ([]Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.checkLogin(); e != nil {
		return nil, c.record(e)
	}

	if len(c.services) == 0 || force {
		records, e := c.fetchList(ctx, listServices)
		if e != nil {
			return nil, c.record(e)
		}

		services := make([]Service, 0, len(records))
		for _, r := range records {
			services = append(services, Service{Key: r.id, Name: r.name})
		}
		c.services = services
	}

	c.lastErr = nil
	return append([]Service(nil), c.services...), nil
}

// Logout forgets the credentials and the discovered aspects and services.
// Token and cookies are kept, so a later Login needs no new Initialize.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logout()
}

func (c *Client) logout() {
	c.loggedIn = false
	c.username = ""
	c.password = ""
	c.aspects = nil
	c.services = nil
}

// Reset returns the client to its freshly constructed state, keeping only
// host and scheme.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logout()
	c.lastErr = nil
	c.token = ""
	c.cookies = nil
	c.lastRequest = nil
}

// record stores e as the last error and returns it as an error value.
func (c *Client) record(e *Error) error {
	c.lastErr = e
	if e == nil {
		return nil
	}
	return e
}

// LastError returns the error of the last operation, or nil.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastErr == nil {
		return nil
	}
	return c.lastErr
}

// ClearLastError empties the last-error slot.
func (c *Client) ClearLastError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastErr = nil
}

// Host returns the configured pod domain.
func (c *Client) Host() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.host
}

// UseHTTPS reports whether the pod is reached over https.
func (c *Client) UseHTTPS() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.useHTTPS
}

// Token returns the current CSRF token, empty before initialisation.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.token
}

// Cookies returns a copy of the session cookies as name=value pairs.
func (c *Client) Cookies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.cookies...)
}

// Username returns the signed in user, empty when logged out.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.username
}

// LastRequest returns the last outbound request, or nil if none was issued
// since construction or Reset.
func (c *Client) LastRequest() *RequestInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastRequest == nil {
		return nil
	}
	info := *c.lastRequest
	return &info
}

// State snapshots the persistable session.
func (c *Client) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SessionState{
		Host:     c.host,
		UseHTTPS: c.useHTTPS,
		Token:    c.token,
		Cookies:  append([]string(nil), c.cookies...),
		Username: c.username,
	}
}

// Restore loads token and cookies saved by State. It reports false and
// changes nothing when the state belongs to another pod or scheme, or while
// a login is active.
func (c *Client) Restore(state SessionState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state.Host != c.host || state.UseHTTPS != c.useHTTPS {
		return false
	}

	// The login is bound to the current token and cookies.
	if c.loggedIn {
		c.log.Debug("session not restored while logged in", "pod", c.host)
		return false
	}

	c.token = state.Token
	c.cookies = append([]string(nil), state.Cookies...)
	return true
}
