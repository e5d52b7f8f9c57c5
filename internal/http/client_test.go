package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tepilorahttp "github.com/tepilora/tepilora-go/internal/http"
	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) { l.record("debug", msg, fields) }
func (l *MockLogger) Info(msg string, fields map[string]interface{})  { l.record("info", msg, fields) }
func (l *MockLogger) Warn(msg string, fields map[string]interface{})  { l.record("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields map[string]interface{}) { l.record("error", msg, fields) }

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/T-Api/v3", request.URL.Path)
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "secret-key", request.Header.Get("X-API-Key"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]interface{}

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "securities.search", body["action"])

			writer.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(writer).Encode(map[string]interface{}{"success": true})
		}))
		defer server.Close()

		client := tepilorahttp.NewClient(server.URL, tepilorahttp.WithAPIKey("secret-key", false))
		defer client.Close()

		resp, err := client.Do(context.Background(), &tepilorahttp.Request{
			Method: "POST",
			Path:   "/T-Api/v3",
			Body:   map[string]interface{}{"action": "securities.search", "params": map[string]interface{}{}},
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result map[string]interface{}

		require.NoError(t, json.Unmarshal(resp.Body, &result))
		assert.Equal(t, true, result["success"])
	})

	t.Run("legacy query key", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "secret-key", request.URL.Query().Get("apikey"))
			assert.Equal(t, "secret-key", request.Header.Get("X-API-Key"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := tepilorahttp.NewClient(server.URL, tepilorahttp.WithAPIKey("secret-key", true))
		defer client.Close()

		_, err := client.Do(context.Background(), &tepilorahttp.Request{Method: "GET", Path: "/T-Api/v3/health"})
		require.NoError(t, err)
	})

	t.Run("query parameters merge with legacy key", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "2", request.URL.Query().Get("page"))
			assert.Equal(t, "k", request.URL.Query().Get("apikey"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := tepilorahttp.NewClient(server.URL, tepilorahttp.WithAPIKey("k", true))
		defer client.Close()

		_, err := client.Do(context.Background(), &tepilorahttp.Request{
			Method: "GET",
			Path:   "/T-Api/v3/health",
			Query:  url.Values{"page": []string{"2"}},
		})
		require.NoError(t, err)
	})

	t.Run("custom headers and accept", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "application/vnd.apache.arrow.stream", request.Header.Get("Accept"))
			assert.Equal(t, "idem-1", request.Header.Get("X-Idempotency-Key"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := tepilorahttp.NewClient(server.URL)
		defer client.Close()

		_, err := client.Do(context.Background(), &tepilorahttp.Request{
			Method:  "POST",
			Path:    "/T-Api/v3",
			Body:    map[string]interface{}{"action": "x.y"},
			Headers: map[string]string{"X-Idempotency-Key": "idem-1"},
			Accept:  "application/vnd.apache.arrow.stream",
		})
		require.NoError(t, err)
	})

	t.Run("error response classified", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = writer.Write([]byte(`{"message": "query is required"}`))
		}))
		defer server.Close()

		client := tepilorahttp.NewClient(server.URL)
		defer client.Close()

		_, err := client.Do(context.Background(), &tepilorahttp.Request{Method: "POST", Path: "/T-Api/v3"})
		require.Error(t, err)

		apiErr := &tepilora.APIError{}
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
		assert.Equal(t, "query is required", apiErr.Message)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Retry(t *testing.T) {
	t.Parallel()
	t.Run("retries transient server errors", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			n := attempts.Add(1)
			if n <= 2 {
				writer.WriteHeader(http.StatusServiceUnavailable)

				return
			}

			writer.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(writer).Encode(map[string]interface{}{"success": true})
		}))
		defer server.Close()

		client := tepilorahttp.NewClient(server.URL,
			tepilorahttp.WithRetryConfig(3, 10*time.Millisecond, nil))
		defer client.Close()

		resp, err := client.Do(context.Background(), &tepilorahttp.Request{Method: "POST", Path: "/T-Api/v3"})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		// 400 listed in the retry set must still never be retried.
		client := tepilorahttp.NewClient(server.URL,
			tepilorahttp.WithRetryConfig(3, 10*time.Millisecond, []int{400, 503}))
		defer client.Close()

		_, err := client.Do(context.Background(), &tepilorahttp.Request{Method: "POST", Path: "/T-Api/v3"})
		require.Error(t, err)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("statuses outside the set are not retried", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := tepilorahttp.NewClient(server.URL,
			tepilorahttp.WithRetryConfig(3, 10*time.Millisecond, []int{503}))
		defer client.Close()

		_, err := client.Do(context.Background(), &tepilorahttp.Request{Method: "POST", Path: "/T-Api/v3"})
		require.Error(t, err)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("zero retries issues exactly one request", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := tepilorahttp.NewClient(server.URL,
			tepilorahttp.WithRetryConfig(0, 10*time.Millisecond, nil))
		defer client.Close()

		_, err := client.Do(context.Background(), &tepilorahttp.Request{Method: "POST", Path: "/T-Api/v3"})
		require.Error(t, err)
		assert.Equal(t, int32(1), attempts.Load())

		apiErr := &tepilora.APIError{}
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	})

	t.Run("retry-after is honored on 429", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) == 1 {
				writer.Header().Set("Retry-After", "0.2")
				writer.WriteHeader(http.StatusTooManyRequests)

				return
			}

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		// Large base backoff proves the header value won.
		client := tepilorahttp.NewClient(server.URL,
			tepilorahttp.WithRetryConfig(1, 10*time.Second, nil))
		defer client.Close()

		start := time.Now()

		_, err := client.Do(context.Background(), &tepilorahttp.Request{Method: "POST", Path: "/T-Api/v3"})
		require.NoError(t, err)

		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
		assert.Less(t, elapsed, 5*time.Second)
		assert.Equal(t, int32(2), attempts.Load())
	})

	t.Run("response hook observes every attempt", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) < 3 {
				writer.WriteHeader(http.StatusServiceUnavailable)

				return
			}

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		var hookCalls atomic.Int32

		client := tepilorahttp.NewClient(server.URL,
			tepilorahttp.WithRetryConfig(3, 10*time.Millisecond, nil),
			tepilorahttp.WithResponseHook(func(*http.Response) {
				hookCalls.Add(1)
			}))
		defer client.Close()

		_, err := client.Do(context.Background(), &tepilorahttp.Request{Method: "POST", Path: "/T-Api/v3"})
		require.NoError(t, err)
		assert.Equal(t, int32(3), hookCalls.Load())
	})
}

func TestClient_MaxInFlight(t *testing.T) {
	t.Parallel()

	var (
		current atomic.Int32
		peak    atomic.Int32
	)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		n := current.Add(1)
		defer current.Add(-1)

		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}

		time.Sleep(30 * time.Millisecond)
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := tepilorahttp.NewClient(server.URL, tepilorahttp.WithMaxInFlight(3))
	defer client.Close()

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := client.Do(context.Background(), &tepilorahttp.Request{Method: "GET", Path: "/T-Api/v3/health"})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestClient_Get(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/T-Api/v3/health", request.URL.Path)
		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(map[string]interface{}{"status": "ok"})
	}))
	defer server.Close()

	client := tepilorahttp.NewClient(server.URL)
	defer client.Close()

	var out map[string]interface{}

	require.NoError(t, client.Get(context.Background(), "/T-Api/v3/health", &out))
	assert.Equal(t, "ok", out["status"])
}

var _ tepilora.Logger = (*MockLogger)(nil)
