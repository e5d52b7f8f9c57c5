package tepilora

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
)

// Namespace clients are thin facades: each method collects its
// arguments into an action parameter map and delegates to
// Client.CallData with a fixed "<namespace>.<operation>" action
// string. They add no semantics of their own.

// SecuritiesClient covers the securities.* actions.
type SecuritiesClient interface {
	Search(ctx context.Context, query string, params map[string]interface{}) (interface{}, error)
	Lookup(ctx context.Context, identifier string) (interface{}, error)
	Filter(ctx context.Context, filters map[string]interface{}) (interface{}, error)
	Details(ctx context.Context, identifier string) (interface{}, error)
	Description(ctx context.Context, identifier string) (interface{}, error)
	History(ctx context.Context, identifier string, startDate, endDate string) (interface{}, error)
	Facets(ctx context.Context) (interface{}, error)
}

// NewsClient covers the news.* actions.
type NewsClient interface {
	Latest(ctx context.Context, limit int) (interface{}, error)
	Search(ctx context.Context, query string, params map[string]interface{}) (interface{}, error)
	Details(ctx context.Context, id string) (interface{}, error)
	Facets(ctx context.Context) (interface{}, error)
}

// PublicationsClient covers the publications.* actions.
type PublicationsClient interface {
	Latest(ctx context.Context, limit int) (interface{}, error)
	Search(ctx context.Context, query string, params map[string]interface{}) (interface{}, error)
	Details(ctx context.Context, id string) (interface{}, error)
	BySource(ctx context.Context, source string) (interface{}, error)
	Facets(ctx context.Context) (interface{}, error)
}

// QueriesClient covers the queries.* saved-query actions.
type QueriesClient interface {
	List(ctx context.Context) (interface{}, error)
	Get(ctx context.Context, id string) (interface{}, error)
	Save(ctx context.Context, name string, definition map[string]interface{}) (interface{}, error)
	Edit(ctx context.Context, id string, changes map[string]interface{}) (interface{}, error)
	Copy(ctx context.Context, id string) (interface{}, error)
	Delete(ctx context.Context, id string) (interface{}, error)
}

// SearchClient covers the search.* actions.
type SearchClient interface {
	Global(ctx context.Context, query string, params map[string]interface{}) (interface{}, error)
}

// PortfolioClient covers the portfolio.* actions.
type PortfolioClient interface {
	List(ctx context.Context) (interface{}, error)
	Create(ctx context.Context, name string, params map[string]interface{}) (interface{}, error)
}

// MacroClient covers the macro.* actions.
type MacroClient interface {
	Indicators(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// AlertsClient covers the alerts.* actions.
type AlertsClient interface {
	List(ctx context.Context) (interface{}, error)
}

// ExportsClient covers the exports.* actions.
type ExportsClient interface {
	Export(ctx context.Context, params map[string]interface{}) (interface{}, error)
	Formats(ctx context.Context) (interface{}, error)
}

// AnalyticsOptions carries the optional parts of an analytics call.
type AnalyticsOptions struct {
	Options        map[string]interface{}
	Context        map[string]interface{}
	ResponseFormat string

	// Strict validates the parameter map against the server-declared
	// schema before dispatch: names are normalized case-insensitively,
	// server defaults are filled in, and unknown or missing required
	// parameters are rejected without a network call.
	Strict bool
}

// AnalyticsClient is the dynamic namespace: analytics functions are
// addressed by name at call time rather than by generated methods, so
// server-side functions added after this SDK was released remain
// callable.
type AnalyticsClient interface {
	// Call invokes analytics.<function> and returns the unwrapped
	// data (JSON value or raw bytes for binary formats).
	Call(ctx context.Context, function string, params map[string]interface{}, opts *AnalyticsOptions) (interface{}, error)

	// CallTable invokes the function with the Arrow format forced and
	// decodes the response into an Arrow table; servers that answer
	// with tabular JSON (a list of records) are decoded as well.
	CallTable(ctx context.Context, function string, params map[string]interface{}, opts *AnalyticsOptions) (arrow.Table, error)

	// List returns the function catalog, cached until refresh.
	List(ctx context.Context, category string, refresh bool) (map[string]interface{}, error)

	// Info returns the schema of one function, cached until refresh.
	Info(ctx context.Context, function string, refresh bool) (map[string]interface{}, error)

	// Search filters catalog function names by substring.
	Search(ctx context.Context, text, category string) ([]string, error)

	// Schema returns the structured parameter schema of a function.
	Schema(ctx context.Context, function string) (map[string]interface{}, error)
}
