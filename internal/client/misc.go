package client

import (
	"context"

	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// SearchClient implements the tepilora.SearchClient interface.
type SearchClient struct {
	client *Client
}

// Global performs a cross-namespace search.
func (c *SearchClient) Global(ctx context.Context, query string, params map[string]interface{}) (interface{}, error) {
	return c.client.CallData(ctx, "search.global", &tepilora.CallOptions{
		Params: mergeParams(params, map[string]interface{}{"query": query}),
	})
}

// PortfolioClient implements the tepilora.PortfolioClient interface.
type PortfolioClient struct {
	client *Client
}

// List returns the caller's portfolios.
func (c *PortfolioClient) List(ctx context.Context) (interface{}, error) {
	return c.client.CallData(ctx, "portfolio.list", nil)
}

// Create creates a portfolio.
func (c *PortfolioClient) Create(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	return c.client.CallData(ctx, "portfolio.create", &tepilora.CallOptions{
		Params: mergeParams(params, map[string]interface{}{"name": name}),
	})
}

// MacroClient implements the tepilora.MacroClient interface.
type MacroClient struct {
	client *Client
}

// Indicators returns macro indicator series.
func (c *MacroClient) Indicators(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return c.client.CallData(ctx, "macro.indicators", &tepilora.CallOptions{Params: params})
}

// AlertsClient implements the tepilora.AlertsClient interface.
type AlertsClient struct {
	client *Client
}

// List returns the configured alerts.
func (c *AlertsClient) List(ctx context.Context) (interface{}, error) {
	return c.client.CallData(ctx, "alerts.list", nil)
}

// ExportsClient implements the tepilora.ExportsClient interface.
type ExportsClient struct {
	client *Client
}

// Export runs a data export.
func (c *ExportsClient) Export(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return c.client.CallData(ctx, "exports.export", &tepilora.CallOptions{Params: params})
}

// Formats returns the supported export formats.
func (c *ExportsClient) Formats(ctx context.Context) (interface{}, error) {
	return c.client.CallData(ctx, "exports.formats", nil)
}

var (
	_ tepilora.SearchClient    = (*SearchClient)(nil)
	_ tepilora.PortfolioClient = (*PortfolioClient)(nil)
	_ tepilora.MacroClient     = (*MacroClient)(nil)
	_ tepilora.AlertsClient    = (*AlertsClient)(nil)
	_ tepilora.ExportsClient   = (*ExportsClient)(nil)
)
