package client

import (
	"context"

	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// PublicationsClient implements the tepilora.PublicationsClient
// interface.
type PublicationsClient struct {
	client *Client
}

// Latest returns the most recent publications.
func (c *PublicationsClient) Latest(ctx context.Context, limit int) (interface{}, error) {
	params := map[string]interface{}{}
	if limit > 0 {
		params["limit"] = limit
	}

	return c.client.CallData(ctx, "publications.latest", &tepilora.CallOptions{Params: params})
}

// Search performs a publications search.
func (c *PublicationsClient) Search(ctx context.Context, query string, params map[string]interface{}) (interface{}, error) {
	return c.client.CallData(ctx, "publications.search", &tepilora.CallOptions{
		Params: mergeParams(params, map[string]interface{}{"query": query}),
	})
}

// Details returns one publication by id.
func (c *PublicationsClient) Details(ctx context.Context, id string) (interface{}, error) {
	return c.client.CallData(ctx, "publications.details", &tepilora.CallOptions{
		Params: map[string]interface{}{"id": id},
	})
}

// BySource returns publications filtered by source.
func (c *PublicationsClient) BySource(ctx context.Context, source string) (interface{}, error) {
	return c.client.CallData(ctx, "publications.by_source", &tepilora.CallOptions{
		Params: map[string]interface{}{"source": source},
	})
}

// Facets returns the available facet values for publications search.
func (c *PublicationsClient) Facets(ctx context.Context) (interface{}, error) {
	return c.client.CallData(ctx, "publications.facets", nil)
}

var _ tepilora.PublicationsClient = (*PublicationsClient)(nil)
