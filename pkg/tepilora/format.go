package tepilora

import (
	"fmt"
	"strings"
)

// Response format keywords recognized by the v3 endpoint.
const (
	FormatJSON    = "json"
	FormatArrow   = "arrow"
	FormatParquet = "parquet"
	FormatCSV     = "csv"
)

var formatAcceptMap = map[string]string{
	FormatJSON:    "application/json",
	FormatArrow:   "application/vnd.apache.arrow.stream",
	FormatParquet: "application/vnd.apache.parquet",
	FormatCSV:     "text/csv",
}

// AcceptForFormat translates a response format into an Accept header
// value. Known keywords map to fixed MIME types; strings containing a
// "/" pass through verbatim as explicit MIME types; anything else is
// a configuration error raised before any network I/O.
func AcceptForFormat(format string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(format))
	if mime, ok := formatAcceptMap[key]; ok {
		return mime, nil
	}

	if strings.Contains(format, "/") {
		return strings.TrimSpace(format), nil
	}

	return "", fmt.Errorf(
		"%w: %q (valid formats: json, arrow, parquet, csv, or an explicit MIME type)",
		ErrUnsupportedFormat, format)
}

// BaseContentType strips parameters from a Content-Type header value
// and lowercases the media type.
func BaseContentType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")

	return strings.ToLower(strings.TrimSpace(base))
}

// IsJSONContentType reports whether a Content-Type denotes a JSON
// payload (application/json or any +json suffix).
func IsJSONContentType(contentType string) bool {
	base := BaseContentType(contentType)

	return base == "application/json" || strings.HasSuffix(base, "+json")
}
