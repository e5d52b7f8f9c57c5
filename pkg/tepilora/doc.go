// Package tepilora defines the public API surface of the Tepilora Go
// client: the Client interface, request/result types for the unified
// v3 action endpoint, typed errors, the action registry, caching, and
// batch execution helpers.
//
// Every remote operation is identified by an action string of the form
// "<namespace>.<operation>" (e.g. "securities.search") and dispatched
// as a POST to the unified /T-Api/v3 endpoint with a JSON body of the
// shape {action, params, options?, context?}. Responses are either a
// JSON envelope (Result) or columnar bytes (BinaryResult) depending on
// the negotiated response format.
//
// Use github.com/tepilora/tepilora-go/pkg/tepiloraclient to construct
// a concrete client:
//
//	client, err := tepiloraclient.New(&tepilora.Config{
//		APIKey: "YOUR_API_KEY",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	data, err := client.Securities().Search(ctx, "IE00B4L5Y983", nil)
package tepilora
