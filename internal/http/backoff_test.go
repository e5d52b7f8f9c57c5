package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffWindow(t *testing.T) {
	t.Parallel()

	client := NewClient("http://example.test")
	base := 100 * time.Millisecond

	for attempt := 0; attempt < 4; attempt++ {
		expected := float64(base) * float64(int(1)<<uint(attempt))
		low := time.Duration(expected * 0.75)
		high := time.Duration(expected * 1.25)

		// Jitter is random; sample a few draws per attempt.
		for i := 0; i < 20; i++ {
			delay := client.backoff(base, 30*time.Second, attempt, nil)
			assert.GreaterOrEqual(t, delay, low, "attempt %d", attempt)
			assert.LessOrEqual(t, delay, high, "attempt %d", attempt)
		}
	}
}

func TestBackoffCappedAtMax(t *testing.T) {
	t.Parallel()

	client := NewClient("http://example.test")

	delay := client.backoff(10*time.Second, 15*time.Second, 5, nil)
	assert.Equal(t, 15*time.Second, delay)
}

func TestBackoffRetryAfterOnlyOn429(t *testing.T) {
	t.Parallel()

	client := NewClient("http://example.test")

	resp := &http.Response{
		StatusCode: http.StatusServiceUnavailable,
		Header:     http.Header{"Retry-After": []string{"60"}},
	}

	// A Retry-After on a non-429 response falls back to the window.
	delay := client.backoff(100*time.Millisecond, 30*time.Second, 0, resp)
	assert.Less(t, delay, time.Second)

	resp.StatusCode = http.StatusTooManyRequests
	delay = client.backoff(100*time.Millisecond, 30*time.Second, 0, resp)
	assert.Equal(t, time.Minute, delay)
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	t.Run("float seconds", func(t *testing.T) {
		t.Parallel()

		delay, ok := parseRetryAfter("2.5")
		require.True(t, ok)
		assert.Equal(t, 2500*time.Millisecond, delay)
	})

	t.Run("http date", func(t *testing.T) {
		t.Parallel()

		when := time.Now().Add(3 * time.Second).UTC()

		delay, ok := parseRetryAfter(when.Format(http.TimeFormat))
		require.True(t, ok)
		assert.Greater(t, delay, time.Second)
		assert.LessOrEqual(t, delay, 3*time.Second)
	})

	t.Run("past date clamps to zero", func(t *testing.T) {
		t.Parallel()

		when := time.Now().Add(-time.Minute).UTC()

		delay, ok := parseRetryAfter(when.Format(http.TimeFormat))
		require.True(t, ok)
		assert.Equal(t, time.Duration(0), delay)
	})

	t.Run("negative seconds reported absent", func(t *testing.T) {
		t.Parallel()

		_, ok := parseRetryAfter("-1")
		assert.False(t, ok)
	})

	t.Run("garbage reported absent", func(t *testing.T) {
		t.Parallel()

		_, ok := parseRetryAfter("soon")
		assert.False(t, ok)

		_, ok = parseRetryAfter("")
		assert.False(t, ok)
	})
}
