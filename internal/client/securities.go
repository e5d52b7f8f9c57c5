package client

import (
	"context"

	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// SecuritiesClient implements the tepilora.SecuritiesClient interface.
type SecuritiesClient struct {
	client *Client
}

// Search performs a full-text search over the securities master.
// Extra parameters (limit, offset, filters) merge into the call.
func (c *SecuritiesClient) Search(ctx context.Context, query string, params map[string]interface{}) (interface{}, error) {
	return c.client.CallData(ctx, "securities.search", &tepilora.CallOptions{
		Params: mergeParams(params, map[string]interface{}{"query": query}),
	})
}

// Lookup resolves a single identifier (ISIN, ticker or internal id).
func (c *SecuritiesClient) Lookup(ctx context.Context, identifier string) (interface{}, error) {
	return c.client.CallData(ctx, "securities.lookup", &tepilora.CallOptions{
		Params: map[string]interface{}{"identifier": identifier},
	})
}

// Filter returns securities matching structured criteria.
func (c *SecuritiesClient) Filter(ctx context.Context, filters map[string]interface{}) (interface{}, error) {
	return c.client.CallData(ctx, "securities.filter", &tepilora.CallOptions{
		Params: map[string]interface{}{"filters": filters},
	})
}

// Details returns the full record for one security.
func (c *SecuritiesClient) Details(ctx context.Context, identifier string) (interface{}, error) {
	return c.client.CallData(ctx, "securities.details", &tepilora.CallOptions{
		Params: map[string]interface{}{"identifier": identifier},
	})
}

// Description returns the narrative description for one security.
func (c *SecuritiesClient) Description(ctx context.Context, identifier string) (interface{}, error) {
	return c.client.CallData(ctx, "securities.description", &tepilora.CallOptions{
		Params: map[string]interface{}{"identifier": identifier},
	})
}

// History returns price and event history for one security. Empty
// dates leave the range open on that side.
func (c *SecuritiesClient) History(ctx context.Context, identifier string, startDate, endDate string) (interface{}, error) {
	params := map[string]interface{}{"identifier": identifier}
	if startDate != "" {
		params["start_date"] = startDate
	}

	if endDate != "" {
		params["end_date"] = endDate
	}

	return c.client.CallData(ctx, "securities.history", &tepilora.CallOptions{Params: params})
}

// Facets returns the available facet values for securities search.
func (c *SecuritiesClient) Facets(ctx context.Context) (interface{}, error) {
	return c.client.CallData(ctx, "securities.facets", nil)
}

// mergeParams overlays fixed key/value pairs on caller-supplied
// parameters; the fixed pairs win.
func mergeParams(params, fixed map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(params)+len(fixed))
	for k, v := range params {
		merged[k] = v
	}

	for k, v := range fixed {
		merged[k] = v
	}

	return merged
}

var _ tepilora.SecuritiesClient = (*SecuritiesClient)(nil)
