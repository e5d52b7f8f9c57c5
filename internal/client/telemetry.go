package client

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/tepilora/tepilora-go/internal/constants"
	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// creditTracker accumulates credit usage across the lifetime of one
// client: used counts sum monotonically, remaining is the latest
// server snapshot. It observes every HTTP response, including each
// attempt of a retry loop.
type creditTracker struct {
	mu        sync.Mutex
	used      int
	remaining *int
}

func (t *creditTracker) observe(headers http.Header) {
	info := tepilora.ParseCreditHeaders(headers)

	t.mu.Lock()
	defer t.mu.Unlock()

	if info.Used != nil {
		t.used += *info.Used
	}

	if info.Remaining != nil {
		remaining := *info.Remaining
		t.remaining = &remaining
	}
}

func (t *creditTracker) snapshot() tepilora.CreditSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := tepilora.CreditSnapshot{Used: t.used}
	if t.remaining != nil {
		remaining := *t.remaining
		snap.Remaining = &remaining
	}

	return snap
}

// The version advisory fires at most once per process, no matter how
// many clients observe the header.
var (
	versionWarnOnce sync.Once
	versionWarnMu   sync.Mutex

	// versionWarnFallback supplies the sink when the observing client
	// has no logger, so the advisory is never dropped. Swapped in
	// tests.
	versionWarnFallback = tepilora.DefaultLogger
)

// resetVersionWarning rearms the advisory. Test hook.
func resetVersionWarning() {
	versionWarnMu.Lock()
	defer versionWarnMu.Unlock()

	versionWarnOnce = sync.Once{}
}

// checkSDKVersion compares the server's advertised minimum SDK
// version against this build and logs a warning when the SDK is
// older. Purely advisory; it never fails a call.
func checkSDKVersion(headers http.Header, logger tepilora.Logger) {
	minVersion := strings.TrimSpace(headers.Get(constants.HeaderMinSDKVersion))
	if minVersion == "" {
		return
	}

	current, ok := parseDottedVersion(tepilora.Version)
	if !ok {
		return
	}

	required, ok := parseDottedVersion(minVersion)
	if !ok {
		return
	}

	if compareVersions(current, required) >= 0 {
		return
	}

	versionWarnMu.Lock()
	defer versionWarnMu.Unlock()

	versionWarnOnce.Do(func() {
		sink := logger
		if sink == nil {
			sink = versionWarnFallback()
		}

		sink.Warn("SDK version below server minimum", map[string]interface{}{
			"current":  tepilora.Version,
			"required": minVersion,
			"hint":     tepilora.UpgradeHint,
		})
	})
}

// parseDottedVersion parses "1.2.3" into its numeric components.
// Non-numeric components make the whole value unparseable.
func parseDottedVersion(version string) ([]int, bool) {
	parts := strings.Split(strings.TrimSpace(version), ".")

	out := make([]int, 0, len(parts))

	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, false
		}

		out = append(out, n)
	}

	return out, len(out) > 0
}

// compareVersions compares dotted tuples componentwise; missing
// components count as zero.
func compareVersions(a, b []int) int {
	length := len(a)
	if len(b) > length {
		length = len(b)
	}

	for i := 0; i < length; i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}

		if i < len(b) {
			bv = b[i]
		}

		if av != bv {
			if av < bv {
				return -1
			}

			return 1
		}
	}

	return 0
}
