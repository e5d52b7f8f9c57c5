package tepilora

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonHeaders() http.Header {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	return headers
}

func TestNewAPIErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "message field",
			body: `{"message": "bad query"}`,
			want: "bad query",
		},
		{
			name: "detail field",
			body: `{"detail": "missing identifier"}`,
			want: "missing identifier",
		},
		{
			name: "message wins over detail",
			body: `{"message": "first", "detail": "second"}`,
			want: "first",
		},
		{
			name: "nested error message",
			body: `{"error": {"message": "nested"}}`,
			want: "nested",
		},
		{
			name: "error string",
			body: `{"error": "flat"}`,
			want: "flat",
		},
		{
			name: "structured detail serialized",
			body: `{"detail": [{"loc": "params.query"}]}`,
			want: `[{"loc":"params.query"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := NewAPIError(http.StatusUnprocessableEntity, jsonHeaders(), []byte(tt.body))
			assert.Equal(t, tt.want, apiErr.Message)
			assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
		})
	}
}

func TestNewAPIErrorNonJSONBody(t *testing.T) {
	headers := http.Header{}
	headers.Set("Content-Type", "text/html")

	apiErr := NewAPIError(http.StatusBadGateway, headers, []byte("<html>gateway error</html>"))

	assert.Equal(t, "Request failed (502)", apiErr.Message)
	assert.Equal(t, "<html>gateway error</html>", apiErr.ResponseText)
	assert.Nil(t, apiErr.ErrorData)
}

func TestNewAPIErrorMalformedJSONBody(t *testing.T) {
	apiErr := NewAPIError(http.StatusInternalServerError, jsonHeaders(), []byte("{not json"))

	assert.Equal(t, "Request failed (500)", apiErr.Message)
	assert.Equal(t, "{not json", apiErr.ResponseText)
}

func TestNewAPIErrorUpgradeHint(t *testing.T) {
	apiErr := NewAPIError(http.StatusNotFound, jsonHeaders(), []byte(`{"message": "Unknown action: analytics.brand_new"}`))

	assert.Contains(t, apiErr.Message, "Unknown action: analytics.brand_new")
	assert.Contains(t, apiErr.Message, UpgradeHint)
}

func TestNewAPIErrorNoHintOnServerError(t *testing.T) {
	// The hint is only for client-side staleness, never for 5xx.
	apiErr := NewAPIError(http.StatusInternalServerError, jsonHeaders(), []byte(`{"message": "unknown action exploded"}`))

	assert.NotContains(t, apiErr.Message, UpgradeHint)
}

func TestAPIErrorFormatting(t *testing.T) {
	apiErr := &APIError{StatusCode: 429, Message: "slow down"}
	assert.Equal(t, "HTTP 429: slow down", apiErr.Error())
}

func TestErrorPredicates(t *testing.T) {
	rateLimited := fmt.Errorf("calling v3: %w", &APIError{StatusCode: http.StatusTooManyRequests, Message: "limited"})
	assert.True(t, IsRateLimited(rateLimited))
	assert.False(t, IsNotFound(rateLimited))

	notFound := &APIError{StatusCode: http.StatusNotFound, Message: "nope"}
	assert.True(t, IsNotFound(notFound))

	failed := fmt.Errorf("unwrapping: %w", &ActionFailedError{
		Response: &Result{Success: false, Action: "queries.delete"},
	})

	result, ok := IsActionFailed(failed)
	require.True(t, ok)
	assert.Equal(t, "queries.delete", result.Action)

	_, ok = IsActionFailed(notFound)
	assert.False(t, ok)
}
