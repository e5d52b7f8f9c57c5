package constants

import "time"

// API paths.
const (
	// V3Prefix is the unified action endpoint prefix.
	V3Prefix = "/T-Api/v3"

	// V3ActionPath is the POST endpoint all actions funnel into.
	V3ActionPath = V3Prefix

	// HealthPath is the service health endpoint.
	HealthPath = V3Prefix + "/health"

	// PricingPath is the public pricing endpoint.
	PricingPath = V3Prefix + "/pricing"

	// LogsStatusPath is the ingestion logs status endpoint.
	LogsStatusPath = V3Prefix + "/logs/status"

	// AnalyticsListPath and AnalyticsInfoPath are the two fixed GET
	// discovery endpoints next to the action endpoint.
	AnalyticsListPath = V3Prefix + "/analytics/list"
	AnalyticsInfoPath = V3Prefix + "/analytics/info"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for one HTTP attempt.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry limits.
const (
	// DefaultRetryBackoff is the base delay for exponential backoff.
	DefaultRetryBackoff = 500 * time.Millisecond

	// MaxRetryBackoff caps a single computed backoff sleep.
	MaxRetryBackoff = 30 * time.Second

	// JitterLow and JitterHigh bound the multiplicative backoff jitter.
	JitterLow  = 0.75
	JitterHigh = 1.25
)

// Headers.
const (
	// HeaderAPIKey authenticates requests.
	HeaderAPIKey = "X-API-Key"

	// HeaderIdempotencyKey deduplicates retried mutations server-side.
	HeaderIdempotencyKey = "X-Idempotency-Key"

	// HeaderCreditsUsed and HeaderCreditsRemaining carry per-response
	// credit accounting.
	HeaderCreditsUsed      = "X-Tepilora-Credits-Used"
	HeaderCreditsRemaining = "X-Tepilora-Credits-Remaining"

	// HeaderMinSDKVersion advertises the server's minimum supported
	// SDK version.
	HeaderMinSDKVersion = "X-Tepilora-Min-SDK-Version"

	// LegacyQueryKeyParam is the legacy query-string API key parameter.
	LegacyQueryKeyParam = "apikey"
)

// Batching and concurrency.
const (
	// DefaultBatchConcurrency is the default batch worker pool size.
	DefaultBatchConcurrency = 8
)
