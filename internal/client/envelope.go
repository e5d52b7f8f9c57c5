package client

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// sanitizeParams rewrites parameter values into wire-safe JSON types:
// arbitrary-precision numbers become float64, timestamps become
// RFC 3339 strings, dates become YYYY-MM-DD strings. Maps and slices
// are walked recursively. The input is never mutated, and sanitizing
// an already-sanitized value is a no-op.
func sanitizeParams(params map[string]interface{}) map[string]interface{} {
	if params == nil {
		return nil
	}

	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = sanitizeValue(v)
	}

	return out
}

func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}

		return f
	case *big.Float:
		f, _ := val.Float64()

		return f
	case *big.Rat:
		f, _ := val.Float64()

		return f
	case tepilora.Date:
		return val.String()
	case *tepilora.Date:
		if val == nil {
			return nil
		}

		return val.String()
	case time.Time:
		return val.Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return nil
		}

		return val.Format(time.RFC3339)
	case map[string]interface{}:
		return sanitizeParams(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}

		return out
	default:
		return v
	}
}

// buildEnvelope assembles the wire request for an action. The
// response format keyword, when given, is injected into the options
// mapping under "format" unless the caller set that key explicitly.
func buildEnvelope(action string, opts *tepilora.CallOptions) tepilora.ActionRequest {
	if opts == nil {
		opts = &tepilora.CallOptions{}
	}

	params := sanitizeParams(opts.Params)
	if params == nil {
		params = map[string]interface{}{}
	}

	options := opts.Options
	if opts.ResponseFormat != "" {
		if _, set := options["format"]; !set {
			merged := make(map[string]interface{}, len(options)+1)
			for k, v := range options {
				merged[k] = v
			}

			merged["format"] = opts.ResponseFormat
			options = merged
		}
	}

	return tepilora.ActionRequest{
		Action:  action,
		Params:  params,
		Options: options,
		Context: opts.Context,
	}
}

// requestedFormat returns the effective response format of a call.
// An explicit options["format"] wins over the ResponseFormat keyword,
// matching what buildEnvelope puts on the wire.
func requestedFormat(opts *tepilora.CallOptions) string {
	if opts == nil {
		return ""
	}

	if f, ok := opts.Options["format"].(string); ok && f != "" {
		return f
	}

	return opts.ResponseFormat
}
