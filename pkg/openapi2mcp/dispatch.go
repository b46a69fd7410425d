package openapi2mcp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds one HTTP round trip.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes int64 = 50 << 20
)

// emptySuccess is the payload reported for a 2xx response without a body.
var emptySuccess = []byte(`{"status":"success"}`)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Output is the successful result of one invocation.
type Output struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"-"`
	Truncated   bool   `json:"truncated,omitempty"`
}

// IsJSON reports whether the body parses as JSON.
func (o *Output) IsJSON() bool { return json.Valid(o.Body) }

// Text renders the body for the calling protocol: JSON is indented, anything else
// is passed through as is.
func (o *Output) Text() string {
	if o.IsJSON() {
		var buf bytes.Buffer
		if json.Indent(&buf, o.Body, "", "  ") == nil {
			return buf.String()
		}
	}
	return string(o.Body)
}

// Dispatcher performs exactly one HTTP attempt per request and classifies the result.
type Dispatcher struct {
	client   Doer
	maxBytes int64
	logger   *zap.Logger
}

// NewDispatcher wraps client. A zero maxBytes means DefaultMaxResponseBytes.
func NewDispatcher(client Doer, maxBytes int64, logger *zap.Logger) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{client: client, maxBytes: maxBytes, logger: logger}
}

// Dispatch sends req. A 2xx response yields *Output; any other status yields
// *APIError with the body verbatim; no response at all yields *TransportError.
func (d *Dispatcher) Dispatch(req *http.Request) (*Output, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	truncated := int64(len(body)) > d.maxBytes
	if truncated {
		body = body[:d.maxBytes]
		d.logger.Warn("response body truncated",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int64("limit_bytes", d.maxBytes))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: body}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = append([]byte(nil), emptySuccess...)
	}
	return &Output{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
	}, nil
}
