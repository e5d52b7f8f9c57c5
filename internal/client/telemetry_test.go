package client

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, map[string]interface{}) {}
func (l *recordingLogger) Info(string, map[string]interface{})  {}
func (l *recordingLogger) Error(string, map[string]interface{}) {}

func (l *recordingLogger) Warn(msg string, _ map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.warns = append(l.warns, msg)
}

func TestCheckSDKVersionWarnsOnce(t *testing.T) {
	resetVersionWarning()

	logger := &recordingLogger{}

	headers := http.Header{}
	headers.Set("X-Tepilora-Min-SDK-Version", "99.0.0")

	checkSDKVersion(headers, logger)
	checkSDKVersion(headers, logger)
	checkSDKVersion(headers, logger)

	assert.Len(t, logger.warns, 1)
}

func TestCheckSDKVersionWarnsWithoutLogger(t *testing.T) {
	resetVersionWarning()

	fallback := &recordingLogger{}
	original := versionWarnFallback
	versionWarnFallback = func() tepilora.Logger { return fallback }

	t.Cleanup(func() { versionWarnFallback = original })

	headers := http.Header{}
	headers.Set("X-Tepilora-Min-SDK-Version", "99.0.0")

	// A client without a logger still surfaces the advisory.
	checkSDKVersion(headers, nil)
	assert.Len(t, fallback.warns, 1)

	// The once is spent; a later client with a logger stays quiet.
	logger := &recordingLogger{}
	checkSDKVersion(headers, logger)
	assert.Len(t, fallback.warns, 1)
	assert.Empty(t, logger.warns)
}

func TestCheckSDKVersionCurrentEnough(t *testing.T) {
	resetVersionWarning()

	logger := &recordingLogger{}

	headers := http.Header{}
	headers.Set("X-Tepilora-Min-SDK-Version", "0.0.1")

	checkSDKVersion(headers, logger)
	assert.Empty(t, logger.warns)
}

func TestCheckSDKVersionIgnoresGarbage(t *testing.T) {
	resetVersionWarning()

	logger := &recordingLogger{}

	for _, value := range []string{"", "banana", "1.x.3"} {
		headers := http.Header{}
		if value != "" {
			headers.Set("X-Tepilora-Min-SDK-Version", value)
		}

		checkSDKVersion(headers, logger)
	}

	assert.Empty(t, logger.warns)
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0", "1.0.0", 0},
		{"0.9.9", "1.0.0", -1},
		{"1.2.3", "1.2.2", 1},
		{"2", "1.9.9", 1},
		{"1.10.0", "1.9.0", 1},
	}

	for _, tt := range tests {
		av, ok := parseDottedVersion(tt.a)
		require.True(t, ok, tt.a)

		bv, ok := parseDottedVersion(tt.b)
		require.True(t, ok, tt.b)

		assert.Equal(t, tt.want, compareVersions(av, bv), "%s vs %s", tt.a, tt.b)
	}
}

func TestCreditTracker(t *testing.T) {
	tracker := &creditTracker{}

	h1 := http.Header{}
	h1.Set("X-Tepilora-Credits-Used", "7")
	tracker.observe(h1)

	h2 := http.Header{}
	h2.Set("X-Tepilora-Credits-Used", "3")
	h2.Set("X-Tepilora-Credits-Remaining", "990")
	tracker.observe(h2)

	// Unparseable values are ignored, never fatal.
	h3 := http.Header{}
	h3.Set("X-Tepilora-Credits-Used", "many")
	tracker.observe(h3)

	snap := tracker.snapshot()
	assert.Equal(t, 10, snap.Used)
	require.NotNil(t, snap.Remaining)
	assert.Equal(t, 990, *snap.Remaining)
}
