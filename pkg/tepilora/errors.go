package tepilora

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired      = errors.New("config is required")
	ErrBaseURLRequired     = errors.New("base URL is required")
	ErrUnsupportedFormat   = errors.New("unsupported response format")
	ErrNonObjectJSON       = errors.New("unexpected non-object JSON response from v3 endpoint")
	ErrExpectedArrowStream = errors.New("expected Arrow IPC stream response, got JSON")
	ErrRetriesExhausted    = errors.New("request failed after retries")
	ErrActionRequired      = errors.New("action is required")
	ErrUnknownAction       = errors.New("unknown action")
	ErrMissingParameter    = errors.New("missing required parameter")
	ErrUnknownParameter    = errors.New("unknown parameter")
	ErrDuplicateParameter  = errors.New("duplicate parameter")
	ErrClientClosed        = errors.New("client is closed")
)

// UpgradeHint is appended to unknown-action error messages; a 400/404
// naming an unrecognized action usually means the SDK predates the
// operation.
const UpgradeHint = "This may require a newer SDK version. Try: go get -u github.com/tepilora/tepilora-go"

var unknownActionPhrases = []string{
	"unknown action",
	"action not found",
	"invalid action",
	"unsupported action",
}

// APIError is a transport/HTTP failure: the final non-2xx response
// after retries are exhausted. Message is extracted best-effort from
// the JSON error body; ErrorData holds the raw decoded payload when
// the body was JSON, ResponseText the raw body when it was not.
type APIError struct {
	StatusCode   int
	Message      string
	ErrorData    map[string]interface{}
	ResponseText string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}

	return e.Message
}

// ActionFailedError is an application-level failure: a well-formed
// structured response with success=false. It wraps the full envelope
// for caller inspection.
type ActionFailedError struct {
	Response *Result
}

// Error implements the error interface.
func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("v3 action %q returned success=false", e.Response.Action)
}

// NewAPIError classifies a non-2xx response into an *APIError. The
// message is pulled from the JSON body's message/detail/error.message
// or error-string field in that order; non-JSON bodies (or bodies
// that fail to parse) are kept as raw text. Unknown-action messages
// on 400/404 get the upgrade hint appended.
func NewAPIError(statusCode int, headers http.Header, body []byte) *APIError {
	message := fmt.Sprintf("Request failed (%d)", statusCode)

	var (
		errorData    map[string]interface{}
		responseText string
	)

	if IsJSONContentType(headers.Get("Content-Type")) {
		var payload map[string]interface{}

		err := json.Unmarshal(body, &payload)
		if err != nil {
			responseText = string(body)
		} else {
			errorData = payload
			if extracted := extractErrorMessage(payload); extracted != "" {
				message = extracted
			}
		}
	} else {
		responseText = string(body)
	}

	if statusCode == http.StatusBadRequest || statusCode == http.StatusNotFound {
		lower := strings.ToLower(message)
		for _, phrase := range unknownActionPhrases {
			if strings.Contains(lower, phrase) {
				message = message + "\nHint: " + UpgradeHint

				break
			}
		}
	}

	return &APIError{
		StatusCode:   statusCode,
		Message:      message,
		ErrorData:    errorData,
		ResponseText: responseText,
	}
}

func extractErrorMessage(payload map[string]interface{}) string {
	if msg := stringField(payload, "message"); msg != "" {
		return msg
	}

	if msg := stringField(payload, "detail"); msg != "" {
		return msg
	}

	switch errField := payload["error"].(type) {
	case map[string]interface{}:
		return stringField(errField, "message")
	case string:
		return errField
	}

	return ""
}

// stringField normalizes non-string message/detail values (dicts,
// lists) to their JSON text, mirroring server responses that put
// structured detail where a string is expected.
func stringField(payload map[string]interface{}, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	return string(b)
}

// IsRateLimited reports whether err is an HTTP 429 APIError.
func IsRateLimited(err error) bool {
	apiErr := &APIError{}

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsNotFound reports whether err is an HTTP 404 APIError.
func IsNotFound(err error) bool {
	apiErr := &APIError{}

	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsActionFailed reports whether err is an application-level
// success=false failure, returning the wrapped envelope when so.
func IsActionFailed(err error) (*Result, bool) {
	failed := &ActionFailedError{}
	if errors.As(err, &failed) {
		return failed.Response, true
	}

	return nil, false
}
