// Package http provides the low-level HTTP execution engine: request
// construction, authentication headers, retry with backoff, and
// response classification. Higher layers never touch net/http
// directly.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/semaphore"

	"github.com/tepilora/tepilora-go/internal/constants"
	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// Client is the internal HTTP client. One instance backs every
// namespace client of a tepilora.Client; it is safe for concurrent
// use.
type Client struct {
	baseURL        string
	apiKey         string
	legacyQueryKey bool
	userAgent      string
	logger         tepilora.Logger
	debug          bool

	retryMax     int
	retryBackoff time.Duration
	retryStatus  map[int]struct{}

	inFlight *semaphore.Weighted

	httpClient    *http.Client
	ownsTransport bool

	responseHook func(*http.Response)
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key sent in the X-API-Key header; when
// legacyQuery is set the key is also sent as the legacy "apikey"
// query parameter.
func WithAPIKey(key string, legacyQuery bool) Option {
	return func(c *Client) {
		c.apiKey = key
		c.legacyQueryKey = legacyQuery
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger tepilora.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithTimeout bounds each HTTP attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRetryConfig sets the retry count, base backoff and retryable
// status set. A max of zero disables retries entirely.
func WithRetryConfig(max int, backoff time.Duration, statuses []int) Option {
	return func(c *Client) {
		c.retryMax = max

		if backoff > 0 {
			c.retryBackoff = backoff
		}

		if statuses != nil {
			c.retryStatus = make(map[int]struct{}, len(statuses))
			for _, s := range statuses {
				c.retryStatus[s] = struct{}{}
			}
		}
	}
}

// WithMaxInFlight bounds concurrent calls; a call holds its slot
// across its entire retry loop.
func WithMaxInFlight(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.inFlight = semaphore.NewWeighted(n)
		}
	}
}

// WithHTTPClient installs a borrowed transport that Close never tears
// down.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
			c.ownsTransport = false
		}
	}
}

// WithResponseHook registers a hook observed for every HTTP response,
// including each response of a retry loop. Used for credit and
// version telemetry.
func WithResponseHook(hook func(*http.Response)) Option {
	return func(c *Client) {
		c.responseHook = hook
	}
}

// NewClient creates a client for the given API origin.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		userAgent:    "tepilora-go/" + tepilora.Version,
		retryMax:     0,
		retryBackoff: constants.DefaultRetryBackoff,
		httpClient: &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
		},
		ownsTransport: true,
	}

	for _, status := range tepilora.DefaultRetryStatusCodes() {
		if client.retryStatus == nil {
			client.retryStatus = map[int]struct{}{}
		}

		client.retryStatus[status] = struct{}{}
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Request represents an HTTP request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string

	// Accept overrides the Accept header (response format
	// negotiation). Defaults to application/json.
	Accept string
}

// Response represents an HTTP response with its body fully read.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Do executes a request with the configured retry policy and returns
// the final response. Non-2xx final responses are classified into a
// *tepilora.APIError. When an in-flight bound is configured, the slot
// is held for the whole retry loop.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.inFlight != nil {
		err := c.inFlight.Acquire(ctx, 1)
		if err != nil {
			return nil, fmt.Errorf("acquiring in-flight slot: %w", err)
		}

		defer c.inFlight.Release(1)
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("http request", map[string]interface{}{
			"method": req.Method,
			"url":    httpReq.URL.Redacted(),
		})
	}

	resp, err := c.newRetryClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("http response", map[string]interface{}{
			"status": resp.StatusCode,
			"bytes":  len(body),
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, tepilora.NewAPIError(resp.StatusCode, resp.Header, body)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}

// Get issues a GET request and decodes the JSON response body.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.GetQuery(ctx, path, nil, out)
}

// GetQuery issues a GET request with query parameters and decodes the
// JSON response body.
func (c *Client) GetQuery(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}

	err = json.Unmarshal(resp.Body, out)
	if err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}

	return nil
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body interface{}, headers map[string]string, accept string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodPost,
		Path:    path,
		Query:   query,
		Body:    body,
		Headers: headers,
		Accept:  accept,
	})
}

// BaseURL returns the configured API origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases the owned transport. Borrowed transports are left
// untouched. Safe to call more than once.
func (c *Client) Close() {
	if c.ownsTransport {
		c.httpClient.CloseIdleConnections()
	}
}

func (c *Client) buildRequest(ctx context.Context, req *Request) (*retryablehttp.Request, error) {
	fullURL := c.baseURL + req.Path

	query := url.Values{}
	for k, vs := range req.Query {
		for _, v := range vs {
			query.Add(k, v)
		}
	}

	if c.legacyQueryKey && c.apiKey != "" {
		query.Set(constants.LegacyQueryKeyParam, c.apiKey)
	}

	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	var rawBody interface{}

	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		rawBody = encoded
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	accept := req.Accept
	if accept == "" {
		accept = "application/json"
	}

	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("User-Agent", c.userAgent)

	if c.apiKey != "" {
		httpReq.Header.Set(constants.HeaderAPIKey, c.apiKey)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

// newRetryClient builds a per-call retryablehttp client sharing the
// underlying transport. The retry policy, the backoff and the error
// handler are all custom: retryablehttp contributes the loop.
func (c *Client) newRetryClient() *retryablehttp.Client {
	retryClient := &retryablehttp.Client{
		HTTPClient:   c.httpClient,
		RetryMax:     c.retryMax,
		RetryWaitMin: c.retryBackoff,
		RetryWaitMax: constants.MaxRetryBackoff,
		CheckRetry:   c.checkRetry,
		Backoff:      c.backoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}

	if c.responseHook != nil {
		retryClient.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
			c.responseHook(resp)
		}
	}

	return retryClient
}

// checkRetry implements the retry rule: retry only when the status is
// in the configured set, except that client errors other than 429 are
// never retried. Transport errors propagate immediately.
func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return false, err
	}

	status := resp.StatusCode
	if _, retryable := c.retryStatus[status]; !retryable {
		return false, nil
	}

	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return false, nil
	}

	return true, nil
}

// backoff computes the next sleep. A Retry-After header on a 429
// response wins; otherwise the delay is base * 2^attempt with a
// multiplicative jitter drawn from [0.75, 1.25). attemptNum is
// zero-based.
func (c *Client) backoff(minWait, maxWait time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if delay, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			if c.debug && c.logger != nil {
				c.logger.Debug("honoring Retry-After", map[string]interface{}{
					"delay": delay.String(),
				})
			}

			return delay
		}
	}

	backoff := float64(minWait) * float64(int(1)<<uint(attemptNum))
	jitter := constants.JitterLow + rand.Float64()*(constants.JitterHigh-constants.JitterLow)

	delay := time.Duration(backoff * jitter)
	if delay > maxWait {
		delay = maxWait
	}

	return delay
}

// parseRetryAfter interprets a Retry-After header value as either a
// number of seconds or an HTTP date. Negative durations and
// unparseable values report absence; a date in the past clamps to
// zero.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds < 0 {
			return 0, false
		}

		return time.Duration(seconds * float64(time.Second)), true
	}

	when, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}

	delay := time.Until(when)
	if delay < 0 {
		delay = 0
	}

	return delay, true
}
