package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/tepilora/tepilora-go/internal/constants"
	"github.com/tepilora/tepilora-go/pkg/tabular"
	"github.com/tepilora/tepilora-go/pkg/tepilora"
)

// AnalyticsClient implements the tepilora.AnalyticsClient interface.
// Functions are addressed by name at call time; the catalog and the
// per-function schemas come from the server and are cached.
type AnalyticsClient struct {
	client   *Client
	cacheTTL time.Duration
}

func newAnalyticsClient(c *Client) *AnalyticsClient {
	return &AnalyticsClient{
		client:   c,
		cacheTTL: tepilora.DefaultCacheTTL,
	}
}

// Call invokes analytics.<function>. In strict mode the parameters
// are checked against the server-declared schema before any network
// dispatch of the function itself.
func (a *AnalyticsClient) Call(ctx context.Context, function string, params map[string]interface{}, opts *tepilora.AnalyticsOptions) (interface{}, error) {
	if opts == nil {
		opts = &tepilora.AnalyticsOptions{}
	}

	if opts.Strict {
		var err error

		params, err = a.validateStrict(ctx, function, params)
		if err != nil {
			return nil, err
		}
	}

	return a.client.CallData(ctx, "analytics."+function, &tepilora.CallOptions{
		Params:         params,
		Options:        opts.Options,
		Context:        opts.Context,
		ResponseFormat: opts.ResponseFormat,
	})
}

// CallTable invokes the function with the Arrow format forced and
// decodes the response into an Arrow table. Servers that ignore the
// format request and answer with tabular JSON are decoded as well.
func (a *AnalyticsClient) CallTable(ctx context.Context, function string, params map[string]interface{}, opts *tepilora.AnalyticsOptions) (arrow.Table, error) {
	if opts == nil {
		opts = &tepilora.AnalyticsOptions{}
	}

	if opts.Strict {
		var err error

		params, err = a.validateStrict(ctx, function, params)
		if err != nil {
			return nil, err
		}
	}

	options := opts.Options
	if _, set := options["format"]; set {
		merged := make(map[string]interface{}, len(options))
		for k, v := range options {
			merged[k] = v
		}

		merged["format"] = tepilora.FormatArrow
		options = merged
	}

	result, err := a.client.Call(ctx, "analytics."+function, &tepilora.CallOptions{
		Params:         params,
		Options:        options,
		Context:        opts.Context,
		ResponseFormat: tepilora.FormatArrow,
	})
	if err != nil {
		return nil, err
	}

	if result.IsBinary() {
		table, err := tabular.Decode(result.Binary.Content, result.Binary.ContentType)
		if err != nil {
			return nil, fmt.Errorf("decoding %s response: %w", function, err)
		}

		return table, nil
	}

	if !result.Structured.Success {
		return nil, &tepilora.ActionFailedError{Response: result.Structured}
	}

	records, err := coerceTabularJSON(result.Structured.Data)
	if err != nil {
		return nil, fmt.Errorf("response for %s: %w", function, err)
	}

	table, err := tabular.FromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("building table for %s: %w", function, err)
	}

	return table, nil
}

// List returns the analytics function catalog, grouped by the
// server. Served by the fixed GET discovery endpoint; results are
// cached per category until refresh.
func (a *AnalyticsClient) List(ctx context.Context, category string, refresh bool) (map[string]interface{}, error) {
	key := "analytics.list:" + category

	if !refresh {
		if cached, ok := a.fromCache(ctx, key); ok {
			return cached, nil
		}
	}

	query := url.Values{}
	if category != "" {
		query.Set("category", category)
	}

	catalog, err := a.discoveryGet(ctx, constants.AnalyticsListPath, query)
	if err != nil {
		return nil, err
	}

	a.toCache(ctx, key, catalog)

	return catalog, nil
}

// Info returns the schema of one function, cached until refresh.
func (a *AnalyticsClient) Info(ctx context.Context, function string, refresh bool) (map[string]interface{}, error) {
	key := "analytics.info:" + function

	if !refresh {
		if cached, ok := a.fromCache(ctx, key); ok {
			return cached, nil
		}
	}

	query := url.Values{}
	query.Set("function", function)

	info, err := a.discoveryGet(ctx, constants.AnalyticsInfoPath, query)
	if err != nil {
		return nil, err
	}

	a.toCache(ctx, key, info)

	return info, nil
}

// discoveryGet fetches one of the two fixed GET discovery endpoints.
// Servers answer either with the bare document or with the standard
// success envelope around it; both forms are accepted.
func (a *AnalyticsClient) discoveryGet(ctx context.Context, path string, query url.Values) (map[string]interface{}, error) {
	if a.client.closed.Load() {
		return nil, tepilora.ErrClientClosed
	}

	var out map[string]interface{}

	err := a.client.httpClient.GetQuery(ctx, path, query, &out)
	if err != nil {
		return nil, err
	}

	if success, ok := out["success"].(bool); ok {
		if !success {
			return nil, &tepilora.ActionFailedError{Response: tepilora.ResultFromMap(out)}
		}

		if raw, present := out["data"]; present {
			doc, ok := raw.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: discovery document from %s", tepilora.ErrNonObjectJSON, path)
			}

			return doc, nil
		}
	}

	return out, nil
}

// Search filters catalog function names by substring, optionally
// within one category. Matching is case-insensitive.
func (a *AnalyticsClient) Search(ctx context.Context, text, category string) ([]string, error) {
	catalog, err := a.List(ctx, category, false)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(text)

	var matches []string

	for _, name := range catalogFunctionNames(catalog) {
		if needle == "" || strings.Contains(strings.ToLower(name), needle) {
			matches = append(matches, name)
		}
	}

	sort.Strings(matches)

	return matches, nil
}

// Schema returns the structured parameter schema of one function.
func (a *AnalyticsClient) Schema(ctx context.Context, function string) (map[string]interface{}, error) {
	info, err := a.Info(ctx, function, false)
	if err != nil {
		return nil, err
	}

	for _, key := range []string{"params", "parameters", "schema"} {
		if schema, ok := info[key].(map[string]interface{}); ok {
			return schema, nil
		}

		if specs, ok := info[key].([]interface{}); ok {
			out := make(map[string]interface{}, len(specs))

			for _, raw := range specs {
				spec, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}

				if name, ok := spec["name"].(string); ok {
					out[name] = spec
				}
			}

			return out, nil
		}
	}

	return map[string]interface{}{}, nil
}

// validateStrict normalizes parameter names case-insensitively
// against the server schema, fills declared defaults and rejects
// unknown or missing required parameters, all before dispatch.
func (a *AnalyticsClient) validateStrict(ctx context.Context, function string, params map[string]interface{}) (map[string]interface{}, error) {
	info, err := a.Info(ctx, function, false)
	if err != nil {
		return nil, fmt.Errorf("fetching schema for %s: %w", function, err)
	}

	specs := paramSpecsFromInfo(info)

	normalized, err := normalizeParamNames(params, specs)
	if err != nil {
		return nil, err
	}

	return validateAndFillParams(normalized, specs)
}

type serverParamSpec struct {
	name     string
	required bool
	hasDef   bool
	def      interface{}
}

func paramSpecsFromInfo(info map[string]interface{}) []serverParamSpec {
	raw, ok := info["params"].([]interface{})
	if !ok {
		raw, _ = info["parameters"].([]interface{})
	}

	specs := make([]serverParamSpec, 0, len(raw))

	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		name, _ := m["name"].(string)
		if name == "" {
			continue
		}

		spec := serverParamSpec{name: name}
		if req, ok := m["required"].(bool); ok {
			spec.required = req
		}

		if def, ok := m["default"]; ok && def != nil {
			spec.hasDef = true
			spec.def = def
		}

		specs = append(specs, spec)
	}

	return specs
}

// normalizeParamNames maps caller parameter names onto the canonical
// schema spelling, case-insensitively. Two caller names collapsing to
// the same canonical name is an error. Names with no schema
// counterpart pass through unchanged so the unknown-parameter check
// can report them.
func normalizeParamNames(params map[string]interface{}, specs []serverParamSpec) (map[string]interface{}, error) {
	canonical := make(map[string]string, len(specs))
	for _, spec := range specs {
		canonical[strings.ToLower(spec.name)] = spec.name
	}

	out := make(map[string]interface{}, len(params))

	for name, value := range params {
		target := name
		if c, ok := canonical[strings.ToLower(name)]; ok {
			target = c
		}

		if _, dup := out[target]; dup {
			return nil, fmt.Errorf("%w: %q", tepilora.ErrDuplicateParameter, target)
		}

		out[target] = value
	}

	return out, nil
}

func validateAndFillParams(params map[string]interface{}, specs []serverParamSpec) (map[string]interface{}, error) {
	allowed := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		allowed[spec.name] = struct{}{}
	}

	var unknown []string

	for name := range params {
		if _, ok := allowed[name]; !ok {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)

		return nil, fmt.Errorf("%w: %s", tepilora.ErrUnknownParameter, strings.Join(unknown, ", "))
	}

	filled := make(map[string]interface{}, len(params))
	for k, v := range params {
		filled[k] = v
	}

	for _, spec := range specs {
		if _, present := filled[spec.name]; present {
			continue
		}

		if spec.hasDef {
			filled[spec.name] = spec.def

			continue
		}

		if spec.required {
			return nil, fmt.Errorf("%w: %s", tepilora.ErrMissingParameter, spec.name)
		}
	}

	return filled, nil
}

// coerceTabularJSON extracts a record list from a JSON data payload:
// either a bare list of objects or an object wrapping one under
// "result".
func coerceTabularJSON(data interface{}) ([]map[string]interface{}, error) {
	if wrapped, ok := data.(map[string]interface{}); ok {
		if inner, ok := wrapped["result"]; ok {
			data = inner
		}
	}

	list, ok := data.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of records", tepilora.ErrNonObjectJSON)
	}

	records := make([]map[string]interface{}, 0, len(list))

	for _, item := range list {
		record, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: expected a list of records", tepilora.ErrNonObjectJSON)
		}

		records = append(records, record)
	}

	return records, nil
}

func catalogFunctionNames(catalog map[string]interface{}) []string {
	var names []string

	if list, ok := catalog["functions"].([]interface{}); ok {
		for _, item := range list {
			switch fn := item.(type) {
			case string:
				names = append(names, fn)
			case map[string]interface{}:
				if name, ok := fn["name"].(string); ok {
					names = append(names, name)
				}
			}
		}

		return names
	}

	// Categorized form: category name to function list.
	for _, value := range catalog {
		list, ok := value.([]interface{})
		if !ok {
			continue
		}

		for _, item := range list {
			switch fn := item.(type) {
			case string:
				names = append(names, fn)
			case map[string]interface{}:
				if name, ok := fn["name"].(string); ok {
					names = append(names, name)
				}
			}
		}
	}

	return names
}

func (a *AnalyticsClient) fromCache(ctx context.Context, key string) (map[string]interface{}, bool) {
	entry, err := a.client.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	var out map[string]interface{}

	err = json.Unmarshal(entry.Data, &out)
	if err != nil {
		return nil, false
	}

	return out, true
}

func (a *AnalyticsClient) toCache(ctx context.Context, key string, value map[string]interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	err = a.client.cache.Set(ctx, key, &tepilora.CacheEntry{
		Data:      data,
		ExpiresAt: time.Now().Add(a.cacheTTL),
	})
	if err != nil && a.client.logger != nil {
		a.client.logger.Debug("caching discovery result failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

var _ tepilora.AnalyticsClient = (*AnalyticsClient)(nil)
