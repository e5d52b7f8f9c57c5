package client

import (
	"context"

	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// NewsClient implements the tepilora.NewsClient interface.
type NewsClient struct {
	client *Client
}

// Latest returns the most recent news items.
func (c *NewsClient) Latest(ctx context.Context, limit int) (interface{}, error) {
	params := map[string]interface{}{}
	if limit > 0 {
		params["limit"] = limit
	}

	return c.client.CallData(ctx, "news.latest", &tepilora.CallOptions{Params: params})
}

// Search performs a news search.
func (c *NewsClient) Search(ctx context.Context, query string, params map[string]interface{}) (interface{}, error) {
	return c.client.CallData(ctx, "news.search", &tepilora.CallOptions{
		Params: mergeParams(params, map[string]interface{}{"query": query}),
	})
}

// Details returns one news item by id.
func (c *NewsClient) Details(ctx context.Context, id string) (interface{}, error) {
	return c.client.CallData(ctx, "news.details", &tepilora.CallOptions{
		Params: map[string]interface{}{"id": id},
	})
}

// Facets returns the available facet values for news search.
func (c *NewsClient) Facets(ctx context.Context) (interface{}, error) {
	return c.client.CallData(ctx, "news.facets", nil)
}

var _ tepilora.NewsClient = (*NewsClient)(nil)
