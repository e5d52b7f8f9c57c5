package client

import (
	"context"

	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// QueriesClient implements the tepilora.QueriesClient interface.
// Mutating operations are good candidates for idempotency keys; pass
// them through Client.CallData directly when needed.
type QueriesClient struct {
	client *Client
}

// List returns the caller's saved queries.
func (c *QueriesClient) List(ctx context.Context) (interface{}, error) {
	return c.client.CallData(ctx, "queries.list", nil)
}

// Get fetches one saved query.
func (c *QueriesClient) Get(ctx context.Context, id string) (interface{}, error) {
	return c.client.CallData(ctx, "queries.get", &tepilora.CallOptions{
		Params: map[string]interface{}{"id": id},
	})
}

// Save stores a query definition under a name.
func (c *QueriesClient) Save(ctx context.Context, name string, definition map[string]interface{}) (interface{}, error) {
	return c.client.CallData(ctx, "queries.save", &tepilora.CallOptions{
		Params: map[string]interface{}{"name": name, "definition": definition},
	})
}

// Edit applies changes to a saved query.
func (c *QueriesClient) Edit(ctx context.Context, id string, changes map[string]interface{}) (interface{}, error) {
	return c.client.CallData(ctx, "queries.edit", &tepilora.CallOptions{
		Params: mergeParams(changes, map[string]interface{}{"id": id}),
	})
}

// Copy duplicates a saved query.
func (c *QueriesClient) Copy(ctx context.Context, id string) (interface{}, error) {
	return c.client.CallData(ctx, "queries.copy", &tepilora.CallOptions{
		Params: map[string]interface{}{"id": id},
	})
}

// Delete removes a saved query.
func (c *QueriesClient) Delete(ctx context.Context, id string) (interface{}, error) {
	return c.client.CallData(ctx, "queries.delete", &tepilora.CallOptions{
		Params: map[string]interface{}{"id": id},
	})
}

var _ tepilora.QueriesClient = (*QueriesClient)(nil)
