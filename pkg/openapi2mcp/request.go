// request.go
package openapi2mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/net/http/httpguts"
)

// DefaultUserAgent is sent on every outgoing request unless overridden.
const DefaultUserAgent = "mcp-pangolin"

// RequestBuilder turns a tool invocation into an authenticated HTTP request.
// It holds no per-call state and is safe for concurrent use.
type RequestBuilder struct {
	baseURL   string
	apiKey    string
	userAgent string
}

// NewRequestBuilder returns a builder targeting baseURL with bearer credential apiKey.
func NewRequestBuilder(baseURL, apiKey string) *RequestBuilder {
	return &RequestBuilder{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: DefaultUserAgent,
	}
}

// WithUserAgent returns a copy of the builder that sends ua as User-Agent.
func (b *RequestBuilder) WithUserAgent(ua string) *RequestBuilder {
	c := *b
	if ua != "" {
		c.userAgent = ua
	}
	return &c
}

// Build validates args against tool and assembles the request. Argument problems
// are *InvalidArgumentError; inconsistencies in the descriptor are *InternalError.
func (b *RequestBuilder) Build(ctx context.Context, tool *Tool, args map[string]any) (*http.Request, error) {
	if err := ValidateArguments(tool, args); err != nil {
		return nil, err
	}

	path, err := ExpandPath(tool.Path, args)
	if err != nil {
		return nil, &InternalError{Tool: tool.Name, Err: err}
	}
	target := b.baseURL + path
	if query := EncodeQuery(tool, args); query != "" {
		target += "?" + query
	}

	var body io.Reader
	var payload []byte
	if v, ok := args[BodyParamName]; ok && v != nil && tool.HasBody() {
		payload, err = json.Marshal(v)
		if err != nil {
			return nil, &InvalidArgumentError{Name: BodyParamName, Reason: "value cannot be encoded as JSON"}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, tool.Method.String(), target, body)
	if err != nil {
		return nil, &InternalError{Tool: tool.Name, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", b.userAgent)
	for _, p := range tool.Params {
		if p.In != LocationHeader {
			continue
		}
		if v, ok := args[p.Name]; ok && v != nil {
			req.Header.Set(p.Name, formatScalar(v))
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	return req, nil
}

// ValidateArguments checks args against the tool's parameter list. Required
// arguments must be present and non-null; unknown keys are ignored.
func ValidateArguments(tool *Tool, args map[string]any) error {
	for _, p := range tool.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return &InvalidArgumentError{Name: p.Name, Reason: "required parameter is missing"}
			}
			continue
		}
		switch p.In {
		case LocationPath:
			if !isScalarValue(v) {
				return &InvalidArgumentError{Name: p.Name, Reason: "expected a scalar value"}
			}
			if formatScalar(v) == "" {
				return &InvalidArgumentError{Name: p.Name, Reason: "path parameter must not be empty"}
			}
		case LocationHeader:
			if !isScalarValue(v) {
				return &InvalidArgumentError{Name: p.Name, Reason: "expected a scalar value"}
			}
			if !httpguts.ValidHeaderFieldValue(formatScalar(v)) {
				return &InvalidArgumentError{Name: p.Name, Reason: "invalid header value"}
			}
		case LocationQuery:
			if items, isList := v.([]any); isList {
				if !p.IsArray() {
					return &InvalidArgumentError{Name: p.Name, Reason: "expected a scalar value"}
				}
				if p.Required && len(items) == 0 {
					return &InvalidArgumentError{Name: p.Name, Reason: "required parameter is missing"}
				}
				for _, item := range items {
					if !isScalarValue(item) {
						return &InvalidArgumentError{Name: p.Name, Reason: "expected an array of scalar values"}
					}
				}
			} else if !isScalarValue(v) {
				return &InvalidArgumentError{Name: p.Name, Reason: "expected a scalar value"}
			}
		case LocationBody:
			if err := validateBody(tool.bodySchema, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateBody(schema *gojsonschema.Schema, v any) error {
	if schema == nil {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return &InvalidArgumentError{Name: BodyParamName, Reason: err.Error()}
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return &InvalidArgumentError{Name: BodyParamName, Reason: strings.Join(msgs, "; ")}
}

// ExpandPath substitutes every placeholder of tmpl with its percent-encoded argument.
// A value containing "/" is escaped and never splits the path.
func ExpandPath(tmpl string, args map[string]any) (string, error) {
	var b strings.Builder
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(tmpl, -1) {
		b.WriteString(tmpl[last:loc[0]])
		name := tmpl[loc[2]:loc[3]]
		v, ok := args[name]
		if !ok || v == nil {
			return "", fmt.Errorf("no value for path parameter %q", name)
		}
		s := formatScalar(v)
		if s == "" {
			return "", fmt.Errorf("empty value for path parameter %q", name)
		}
		b.WriteString(escapeSegment(s))
		last = loc[1]
	}
	b.WriteString(tmpl[last:])
	return b.String(), nil
}

// escapeSegment percent-encodes a path segment; dot segments are encoded too so
// they cannot be collapsed by the remote.
func escapeSegment(s string) string {
	switch s {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return url.PathEscape(s)
}

// EncodeQuery renders the query arguments present in args, sorted by key.
// Absent or null arguments are omitted.
func EncodeQuery(tool *Tool, args map[string]any) string {
	values := url.Values{}
	for _, p := range tool.Params {
		if p.In != LocationQuery {
			continue
		}
		v, ok := args[p.Name]
		if !ok || v == nil {
			continue
		}
		items, isList := v.([]any)
		if !isList {
			values.Set(p.Name, formatScalar(v))
			continue
		}
		if len(items) == 0 {
			continue
		}
		if p.explode {
			for _, item := range items {
				values.Add(p.Name, formatScalar(item))
			}
			continue
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = formatScalar(item)
		}
		values.Set(p.Name, strings.Join(parts, ","))
	}
	return values.Encode()
}

func isScalarValue(v any) bool {
	switch v.(type) {
	case string, bool, json.Number,
		float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// formatScalar renders a scalar argument the way it appears in a URL or header.
// Whole floats print without exponent or trailing zeros: 42.0 -> "42".
func formatScalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	}
	return fmt.Sprint(v)
}
