// Package client provides the client implementation for the Tepilora
// unified v3 API: one execution path that every namespace funnels
// into, plus response classification, credit telemetry and the
// dynamic analytics namespace.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/tepilora/tepilora-go/internal/constants"
	internalhttp "github.com/tepilora/tepilora-go/internal/http"
	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// Client implements the tepilora.Client interface.
type Client struct {
	httpClient *internalhttp.Client
	logger     tepilora.Logger
	credits    *creditTracker
	cache      tepilora.Cache
	closed     atomic.Bool

	// Namespace clients, initialized once at construction.
	securities   *SecuritiesClient
	news         *NewsClient
	publications *PublicationsClient
	queries      *QueriesClient
	search       *SearchClient
	portfolio    *PortfolioClient
	macro        *MacroClient
	alerts       *AlertsClient
	exports      *ExportsClient
	analytics    *AnalyticsClient
}

// New creates a Client from a resolved configuration. The base URL
// must already be normalized; tepiloraclient.New is the public entry
// point that takes care of that.
func New(config *tepilora.Config) (*Client, error) {
	if config == nil {
		return nil, tepilora.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, tepilora.ErrBaseURLRequired
	}

	logger := config.Logger
	if logger == nil && config.Debug {
		logger = tepilora.DefaultLogger()
	}

	cache, err := tepilora.NewCacheFromConfig(config.Cache)
	if err != nil {
		return nil, fmt.Errorf("building discovery cache: %w", err)
	}

	client := &Client{
		logger:  logger,
		credits: &creditTracker{},
		cache:   cache,
	}

	retryStatuses := config.RetryStatusCodes
	if retryStatuses == nil {
		retryStatuses = tepilora.DefaultRetryStatusCodes()
	}

	opts := []internalhttp.Option{
		internalhttp.WithAPIKey(config.APIKey, config.SendLegacyQueryKey),
		internalhttp.WithTimeout(config.Timeout),
		internalhttp.WithRetryConfig(config.RetryMax, config.RetryBackoff, retryStatuses),
		internalhttp.WithResponseHook(client.observeResponse),
	}

	if config.UserAgent != "" {
		opts = append(opts, internalhttp.WithUserAgent(config.UserAgent))
	}

	if logger != nil {
		opts = append(opts, internalhttp.WithLogger(logger), internalhttp.WithDebug(config.Debug))
	}

	if config.MaxInFlight > 0 {
		opts = append(opts, internalhttp.WithMaxInFlight(config.MaxInFlight))
	}

	if config.HTTPClient != nil {
		opts = append(opts, internalhttp.WithHTTPClient(config.HTTPClient))
	}

	client.httpClient = internalhttp.NewClient(config.BaseURL, opts...)
	client.initializeNamespaceClients()

	return client, nil
}

// observeResponse runs for every HTTP response, including each
// attempt of a retry loop.
func (c *Client) observeResponse(resp *http.Response) {
	c.credits.observe(resp.Header)
	checkSDKVersion(resp.Header, c.logger)
}

func (c *Client) initializeNamespaceClients() {
	c.securities = &SecuritiesClient{client: c}
	c.news = &NewsClient{client: c}
	c.publications = &PublicationsClient{client: c}
	c.queries = &QueriesClient{client: c}
	c.search = &SearchClient{client: c}
	c.portfolio = &PortfolioClient{client: c}
	c.macro = &MacroClient{client: c}
	c.alerts = &AlertsClient{client: c}
	c.exports = &ExportsClient{client: c}
	c.analytics = newAnalyticsClient(c)
}

// Call invokes a v3 action and classifies the response by content
// type: JSON becomes a structured envelope, anything else a binary
// payload tagged with the requested format.
func (c *Client) Call(ctx context.Context, action string, opts *tepilora.CallOptions) (*tepilora.CallResult, error) {
	if c.closed.Load() {
		return nil, tepilora.ErrClientClosed
	}

	if action == "" {
		return nil, tepilora.ErrActionRequired
	}

	format := requestedFormat(opts)

	accept := ""

	var query url.Values

	if format != "" {
		var err error

		accept, err = tepilora.AcceptForFormat(format)
		if err != nil {
			return nil, err
		}

		query = url.Values{"format": []string{format}}
	}

	opts, err := completeCallParams(action, opts)
	if err != nil {
		return nil, err
	}

	var headers map[string]string

	if opts != nil && opts.IdempotencyKey != "" {
		headers = map[string]string{constants.HeaderIdempotencyKey: opts.IdempotencyKey}
	}

	envelope := buildEnvelope(action, opts)

	resp, err := c.httpClient.Post(ctx, constants.V3ActionPath, query, envelope, headers, accept)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", action, err)
	}

	contentType := resp.Headers.Get("Content-Type")
	if tepilora.IsJSONContentType(contentType) {
		return classifyJSON(action, resp)
	}

	return &tepilora.CallResult{Binary: binaryResult(action, format, contentType, resp)}, nil
}

// completeCallParams consults the action registry before dispatch:
// for registered actions, declared defaults are filled in and a
// missing required parameter fails before any I/O. Unregistered
// actions pass through untouched.
func completeCallParams(action string, opts *tepilora.CallOptions) (*tepilora.CallOptions, error) {
	desc, ok := tepilora.DefaultRegistry().Lookup(action)
	if !ok {
		return opts, nil
	}

	var params map[string]interface{}

	if opts != nil {
		params = opts.Params
	}

	completed, err := desc.CompleteParams(params)
	if err != nil {
		return nil, fmt.Errorf("invalid parameters for %s: %w", action, err)
	}

	withParams := tepilora.CallOptions{}
	if opts != nil {
		withParams = *opts
	}

	withParams.Params = completed

	return &withParams, nil
}

// classifyJSON decodes a JSON response into the structured envelope.
// A top-level value that is not an object is a protocol violation.
func classifyJSON(action string, resp *internalhttp.Response) (*tepilora.CallResult, error) {
	var payload interface{}

	err := json.Unmarshal(resp.Body, &payload)
	if err != nil {
		return nil, fmt.Errorf("decoding response for %s: %w", action, err)
	}

	obj, ok := payload.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w (action %s)", tepilora.ErrNonObjectJSON, action)
	}

	return &tepilora.CallResult{Structured: tepilora.ResultFromMap(obj)}, nil
}

func binaryResult(action, format, contentType string, resp *internalhttp.Response) *tepilora.BinaryResult {
	if format == "" {
		format = "binary"
	}

	return &tepilora.BinaryResult{
		Action:      action,
		Format:      format,
		ContentType: contentType,
		Content:     resp.Body,
		Meta:        tepilora.ParseBinaryMeta(resp.Headers),
		Headers:     resp.Headers,
	}
}

// CallData unwraps a call: binary payloads yield their raw bytes,
// structured envelopes yield Data when the action succeeded.
func (c *Client) CallData(ctx context.Context, action string, opts *tepilora.CallOptions) (interface{}, error) {
	result, err := c.Call(ctx, action, opts)
	if err != nil {
		return nil, err
	}

	if result.IsBinary() {
		return result.Binary.Content, nil
	}

	if !result.Structured.Success {
		return nil, &tepilora.ActionFailedError{Response: result.Structured}
	}

	return result.Structured.Data, nil
}

// CallArrowIPCStream forces the Arrow response format; a JSON answer
// from the server is an error.
func (c *Client) CallArrowIPCStream(ctx context.Context, action string, opts *tepilora.CallOptions) (*tepilora.BinaryResult, error) {
	forced := tepilora.CallOptions{}
	if opts != nil {
		forced = *opts
	}

	forced.ResponseFormat = tepilora.FormatArrow

	// An explicit options["format"] would override the keyword; force
	// it too so the stream request cannot be negotiated away.
	if _, set := forced.Options["format"]; set {
		merged := make(map[string]interface{}, len(forced.Options))
		for k, v := range forced.Options {
			merged[k] = v
		}

		merged["format"] = tepilora.FormatArrow
		forced.Options = merged
	}

	result, err := c.Call(ctx, action, &forced)
	if err != nil {
		return nil, err
	}

	if !result.IsBinary() {
		return nil, fmt.Errorf("%w (action %s)", tepilora.ErrExpectedArrowStream, action)
	}

	return result.Binary, nil
}

// Health returns the service health document.
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	return c.getJSON(ctx, constants.HealthPath)
}

// Pricing returns the public pricing document.
func (c *Client) Pricing(ctx context.Context) (map[string]interface{}, error) {
	return c.getJSON(ctx, constants.PricingPath)
}

// LogsStatus returns the ingestion logs status document.
func (c *Client) LogsStatus(ctx context.Context) (map[string]interface{}, error) {
	return c.getJSON(ctx, constants.LogsStatusPath)
}

func (c *Client) getJSON(ctx context.Context, path string) (map[string]interface{}, error) {
	if c.closed.Load() {
		return nil, tepilora.ErrClientClosed
	}

	var out map[string]interface{}

	err := c.httpClient.Get(ctx, path, &out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Credits returns the client-scoped credit counters.
func (c *Client) Credits() tepilora.CreditSnapshot {
	return c.credits.snapshot()
}

// Securities returns the securities namespace client.
func (c *Client) Securities() tepilora.SecuritiesClient { return c.securities }

// News returns the news namespace client.
func (c *Client) News() tepilora.NewsClient { return c.news }

// Publications returns the publications namespace client.
func (c *Client) Publications() tepilora.PublicationsClient { return c.publications }

// Queries returns the saved-queries namespace client.
func (c *Client) Queries() tepilora.QueriesClient { return c.queries }

// Search returns the global search namespace client.
func (c *Client) Search() tepilora.SearchClient { return c.search }

// Portfolio returns the portfolio namespace client.
func (c *Client) Portfolio() tepilora.PortfolioClient { return c.portfolio }

// Macro returns the macro namespace client.
func (c *Client) Macro() tepilora.MacroClient { return c.macro }

// Alerts returns the alerts namespace client.
func (c *Client) Alerts() tepilora.AlertsClient { return c.alerts }

// Exports returns the exports namespace client.
func (c *Client) Exports() tepilora.ExportsClient { return c.exports }

// Analytics returns the dynamic analytics namespace client.
func (c *Client) Analytics() tepilora.AnalyticsClient { return c.analytics }

// Close releases the owned transport and cache resources. Safe to
// call more than once.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.httpClient.Close()

	if closer, ok := c.cache.(interface{ Close() }); ok {
		closer.Close()
	}

	return nil
}

var _ tepilora.Client = (*Client)(nil)
