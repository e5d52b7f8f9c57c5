package tepilora

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tepilora/tepilora-go/internal/constants"
)

// ActionRequest is the envelope sent to the unified v3 endpoint.
// Options and Context are omitted from the wire payload when nil.
type ActionRequest struct {
	Action  string                 `json:"action"            yaml:"action"`
	Params  map[string]interface{} `json:"params"            yaml:"params"`
	Options map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
	Context map[string]interface{} `json:"context,omitempty" yaml:"context,omitempty"`
}

// Meta carries response metadata from a structured v3 envelope.
// Fields the SDK does not know about are preserved in Extra rather
// than dropped, so newer server fields survive a round trip.
type Meta struct {
	RequestID       string
	ExecutionTimeMs *int
	Timestamp       string
	CacheHit        *bool
	Extra           map[string]interface{}
}

var metaKnownKeys = map[string]struct{}{
	"request_id":        {},
	"execution_time_ms": {},
	"timestamp":         {},
	"cache_hit":         {},
}

// MetaFromMap builds a Meta from a decoded JSON object, preserving
// unknown keys in Extra.
func MetaFromMap(data map[string]interface{}) Meta {
	meta := Meta{Extra: map[string]interface{}{}}

	for key, value := range data {
		if _, known := metaKnownKeys[key]; !known {
			meta.Extra[key] = value
		}
	}

	if v, ok := data["request_id"]; ok && v != nil {
		meta.RequestID = toString(v)
	}

	if v, ok := data["execution_time_ms"]; ok && v != nil {
		if n, ok := toInt(v); ok {
			meta.ExecutionTimeMs = &n
		}
	}

	if v, ok := data["timestamp"]; ok && v != nil {
		meta.Timestamp = toString(v)
	}

	if v, ok := data["cache_hit"]; ok && v != nil {
		b := toBool(v)
		meta.CacheHit = &b
	}

	return meta
}

// MarshalJSON emits the known fields alongside any preserved extras.
func (m Meta) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(m.Extra)+4)
	for k, v := range m.Extra {
		out[k] = v
	}

	if m.RequestID != "" {
		out["request_id"] = m.RequestID
	}

	if m.ExecutionTimeMs != nil {
		out["execution_time_ms"] = *m.ExecutionTimeMs
	}

	if m.Timestamp != "" {
		out["timestamp"] = m.Timestamp
	}

	if m.CacheHit != nil {
		out["cache_hit"] = *m.CacheHit
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes a meta object, routing unknown keys to Extra.
func (m *Meta) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	*m = MetaFromMap(raw)

	return nil
}

// Result is a decoded structured (JSON) response from the v3 endpoint.
// Success=false marks an application-level failure; it is distinct
// from a transport failure and is surfaced as *ActionFailedError by
// the data-unwrapping helpers.
type Result struct {
	Success bool        `json:"success" yaml:"success"`
	Action  string      `json:"action"  yaml:"action"`
	Data    interface{} `json:"data"    yaml:"data"`
	Meta    Meta        `json:"meta"    yaml:"meta"`
}

// ResultFromMap builds a Result from a decoded JSON object. A missing
// success field defaults to true, matching the server's envelope
// semantics for older responses.
func ResultFromMap(data map[string]interface{}) *Result {
	metaRaw, _ := data["meta"].(map[string]interface{})
	if metaRaw == nil {
		metaRaw = map[string]interface{}{}
	}

	success := true
	if v, ok := data["success"]; ok && v != nil {
		success = toBool(v)
	}

	return &Result{
		Success: success,
		Action:  toString(data["action"]),
		Data:    data["data"],
		Meta:    MetaFromMap(metaRaw),
	}
}

// UnmarshalJSON decodes a v3 envelope, defaulting success to true when
// the field is absent.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	*r = *ResultFromMap(raw)

	return nil
}

// BinaryMeta carries metadata parsed from the response headers of a
// binary (non-JSON) payload. Absent or non-numeric headers yield nil
// fields, never an error.
type BinaryMeta struct {
	RequestID       string
	ExecutionTimeMs *int
	TotalCount      *int
	RowCount        *int
}

// ParseBinaryMeta extracts binary payload metadata from headers.
func ParseBinaryMeta(headers http.Header) BinaryMeta {
	return BinaryMeta{
		RequestID:       headers.Get("X-Tepilora-Request-Id"),
		ExecutionTimeMs: headerInt(headers, "X-Tepilora-Execution-Time-Ms"),
		TotalCount:      headerInt(headers, "X-Tepilora-Total-Count"),
		RowCount:        headerInt(headers, "X-Tepilora-Row-Count"),
	}
}

// BinaryResult is a non-JSON response payload (Arrow IPC stream,
// Parquet, CSV, ...) with its parsed metadata headers.
type BinaryResult struct {
	Action      string
	Format      string
	ContentType string
	Content     []byte
	Meta        BinaryMeta
	Headers     http.Header
}

// CallResult holds the outcome of a v3 call: exactly one of Structured
// or Binary is non-nil, depending on the response content type.
type CallResult struct {
	Structured *Result
	Binary     *BinaryResult
}

// IsBinary reports whether the call produced a binary payload.
func (r *CallResult) IsBinary() bool {
	return r.Binary != nil
}

// CallOptions carries the optional parts of a v3 action invocation.
type CallOptions struct {
	// Params are the action parameters; values are sanitized before
	// transmission (see the envelope builder).
	Params map[string]interface{}

	// Options is the request options mapping; the key "format" is
	// recognized for response format negotiation.
	Options map[string]interface{}

	// Context is an opaque mapping passed through to the server.
	Context map[string]interface{}

	// ResponseFormat is a format keyword (json, arrow, parquet, csv)
	// or an explicit MIME type. Injected into Options["format"] when
	// that key is absent.
	ResponseFormat string

	// IdempotencyKey, when set, is sent as the X-Idempotency-Key
	// header. Keys are never auto-generated.
	IdempotencyKey string
}

// CreditInfo is the per-response credit usage parsed from the
// X-Tepilora-Credits-* headers. Nil fields mean the header was absent
// or unparseable.
type CreditInfo struct {
	Remaining *int
	Used      *int
}

// ParseCreditHeaders extracts credit counters from response headers.
// Parsing failures are treated as absent, never as errors.
func ParseCreditHeaders(headers http.Header) CreditInfo {
	return CreditInfo{
		Remaining: headerInt(headers, constants.HeaderCreditsRemaining),
		Used:      headerInt(headers, constants.HeaderCreditsUsed),
	}
}

// CreditSnapshot is the client-scoped view of credit usage: Used
// accumulates monotonically across calls, Remaining is the
// last-observed server snapshot (nil until first seen).
type CreditSnapshot struct {
	Remaining *int
	Used      int
}

// Date is a calendar date without a time component. It marshals to
// YYYY-MM-DD, and the envelope sanitizer transmits it in that form.
type Date struct {
	Time time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// String returns the date in YYYY-MM-DD form.
func (d Date) String() string {
	return d.Time.Format("2006-01-02")
}

// MarshalJSON emits the date as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses a quoted YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string

	err := json.Unmarshal(data, &s)
	if err != nil {
		return err
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}

	d.Time = t

	return nil
}

func headerInt(headers http.Header, name string) *int {
	raw := headers.Get(name)
	if raw == "" {
		return nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}

	return &n
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(b)
	}
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}

		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}

		return i, true
	default:
		return 0, false
	}
}

// toBool mirrors the server's lenient boolean encoding: real booleans
// pass through, strings accept "true"/"1"/"yes".
func toBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(b) {
		case "true", "1", "yes":
			return true
		default:
			return false
		}
	case float64:
		return b != 0
	default:
		return v != nil
	}
}
