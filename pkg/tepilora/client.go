package tepilora

import (
	"context"
	"net/http"
	"time"
)

// Default client configuration values.
const (
	DefaultBaseURL      = "https://tepiloradata.com"
	DefaultTimeout      = 30 * time.Second
	DefaultRetryBackoff = 500 * time.Millisecond
)

// DefaultRetryStatusCodes is the default retryable status set. Client
// errors other than 429 are never retried even if listed here.
func DefaultRetryStatusCodes() []int {
	return []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout}
}

// Config represents client configuration for building a Client.
//
// A Config is consumed once at construction and never mutated
// afterwards; reconfiguration means building a new client.
//
// BaseURL and APIKey may be left empty to fall back to the
// TEPILORA_BASE_URL and TEPILORA_API_KEY environment variables
// (resolved by tepiloraclient.New).
type Config struct {
	// APIKey authenticates requests via the X-API-Key header.
	APIKey string

	// BaseURL is the API origin, e.g. "https://tepiloradata.com".
	// Trailing slashes are trimmed.
	BaseURL string

	// Timeout bounds each HTTP attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	// SendLegacyQueryKey additionally sends the API key as the legacy
	// "apikey" query parameter.
	SendLegacyQueryKey bool

	// RetryMax is the number of retries after the first attempt, so a
	// call issues at most RetryMax+1 requests. Zero disables retries.
	// There is no separate cap on total elapsed retry time; bound it
	// with a context deadline on the call.
	RetryMax int

	// RetryBackoff is the base backoff; attempt n (0-based) waits
	// RetryBackoff * 2^n * uniform(0.75, 1.25) unless a Retry-After
	// header overrides it. Zero means DefaultRetryBackoff.
	RetryBackoff time.Duration

	// RetryStatusCodes is the retryable status set. Nil means
	// DefaultRetryStatusCodes(). 4xx codes other than 429 are never
	// retried regardless of this set.
	RetryStatusCodes []int

	// MaxInFlight, when positive, bounds the number of calls allowed
	// in flight simultaneously. A call holds its slot across its whole
	// retry loop and releases it when the call fully resolves.
	MaxInFlight int64

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Debug enables HTTP request/response logging through Logger.
	Debug bool

	// Logger is an optional structured logger. When nil and Debug is
	// set, a zerolog-backed default is used.
	Logger Logger

	// HTTPClient, when set, is a borrowed transport: the client uses
	// it but never closes it. When nil the client owns its transport
	// and tears it down on Close.
	HTTPClient *http.Client

	// Cache configures the discovery-result cache used by the
	// analytics namespace. Nil means an in-memory cache.
	Cache *CacheConfig
}

// Client is the Tepilora API client. All namespace accessors funnel
// into Call/CallData against the unified v3 endpoint.
type Client interface {
	// Call invokes a v3 action and returns the classified result:
	// a structured JSON envelope or a binary payload.
	Call(ctx context.Context, action string, opts *CallOptions) (*CallResult, error)

	// CallData unwraps a call: binary payloads yield their raw bytes,
	// structured envelopes yield .Data when success=true and an
	// *ActionFailedError otherwise.
	CallData(ctx context.Context, action string, opts *CallOptions) (interface{}, error)

	// CallArrowIPCStream forces the arrow response format and fails
	// with ErrExpectedArrowStream if the server returned JSON anyway.
	CallArrowIPCStream(ctx context.Context, action string, opts *CallOptions) (*BinaryResult, error)

	// Discovery and status endpoints (plain GET JSON).
	Health(ctx context.Context) (map[string]interface{}, error)
	Pricing(ctx context.Context) (map[string]interface{}, error)
	LogsStatus(ctx context.Context) (map[string]interface{}, error)

	// Credits returns the client-scoped credit counters.
	Credits() CreditSnapshot

	// Namespace accessors.
	Securities() SecuritiesClient
	News() NewsClient
	Publications() PublicationsClient
	Queries() QueriesClient
	Search() SearchClient
	Portfolio() PortfolioClient
	Macro() MacroClient
	Alerts() AlertsClient
	Exports() ExportsClient
	Analytics() AnalyticsClient

	// Close releases the owned transport. Idempotent; a borrowed
	// transport is never closed.
	Close() error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}
