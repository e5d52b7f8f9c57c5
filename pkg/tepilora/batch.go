package tepilora

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/tepilora/tepilora-go/internal/constants"
)

// BatchOperation is one call in a batch.
type BatchOperation struct {
	// ID identifies the operation in the results; the slice index is
	// used when empty.
	ID string

	Action         string
	Params         map[string]interface{}
	Options        map[string]interface{}
	Context        map[string]interface{}
	ResponseFormat string
}

// BatchResult is the outcome of one batch operation.
type BatchResult struct {
	ID      string
	Success bool
	Data    interface{}
	Err     error
}

// BatchExecutor runs many independent calls concurrently over a shared
// goroutine pool. Failures are reported per operation; one failing call
// never aborts the rest of the batch.
type BatchExecutor struct {
	client Client
	pool   *ants.Pool
}

// NewBatchExecutor creates an executor with at most concurrency
// in-flight calls.
func NewBatchExecutor(client Client, concurrency int) (*BatchExecutor, error) {
	if concurrency <= 0 {
		concurrency = constants.DefaultBatchConcurrency
	}

	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}

	return &BatchExecutor{client: client, pool: pool}, nil
}

// Execute runs all operations and returns results in operation order.
func (e *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) []BatchResult {
	results := make([]BatchResult, len(operations))

	var wg sync.WaitGroup

	for i := range operations {
		idx := i
		op := operations[i]

		wg.Add(1)

		err := e.pool.Submit(func() {
			defer wg.Done()

			results[idx] = e.runOne(ctx, idx, op)
		})
		if err != nil {
			wg.Done()

			results[idx] = BatchResult{ID: opID(idx, op), Err: fmt.Errorf("submitting operation: %w", err)}
		}
	}

	wg.Wait()

	return results
}

func (e *BatchExecutor) runOne(ctx context.Context, idx int, op BatchOperation) BatchResult {
	data, err := e.client.CallData(ctx, op.Action, &CallOptions{
		Params:         op.Params,
		Options:        op.Options,
		Context:        op.Context,
		ResponseFormat: op.ResponseFormat,
	})
	if err != nil {
		return BatchResult{ID: opID(idx, op), Err: err}
	}

	return BatchResult{ID: opID(idx, op), Success: true, Data: data}
}

func opID(idx int, op BatchOperation) string {
	if op.ID != "" {
		return op.ID
	}

	return fmt.Sprintf("op-%d", idx)
}

// Release shuts down the worker pool. The executor must not be used
// afterwards.
func (e *BatchExecutor) Release() {
	e.pool.Release()
}
