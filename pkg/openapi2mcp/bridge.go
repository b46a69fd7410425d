package openapi2mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds the process-wide settings the bridge needs per call.
type Config struct {
	// BaseURL is absolute and includes any API version segment.
	BaseURL string
	// APIKey is sent as a bearer token and never logged.
	APIKey           string
	ReadOnly         bool
	Timeout          time.Duration
	MaxResponseBytes int64
	UserAgent        string
}

// Validate checks the settings the bridge cannot run without.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrConfig)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base URL %q must be absolute with scheme and host", ErrConfig, c.BaseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%w: base URL %q must not carry a query or fragment", ErrConfig, c.BaseURL)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: API key is required", ErrConfig)
	}
	return nil
}

// MetricsRecorder receives per-invocation measurements.
type MetricsRecorder interface {
	ObserveInvocation(tool, outcome string, d time.Duration)
	PolicyDenied(tool string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveInvocation(string, string, time.Duration) {}
func (nopMetrics) PolicyDenied(string)                             {}

// OutcomeSuccess is the outcome label of a successful invocation; failures use their kind.
const OutcomeSuccess = "success"

// UnknownToolLabel replaces the caller-supplied name in metrics for calls to unregistered tools.
const UnknownToolLabel = "_unknown"

// Bridge executes tool invocations against the remote API.
type Bridge struct {
	registry   *Registry
	policy     Policy
	baseURL    string
	builder    *RequestBuilder
	dispatcher *Dispatcher
	client     Doer
	logger     *zap.Logger
	metrics    MetricsRecorder
}

// Option customizes a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger for audit lines and warnings.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics sets the invocation metrics sink.
func WithMetrics(m MetricsRecorder) Option {
	return func(b *Bridge) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithHTTPClient replaces the HTTP client used for dispatch.
func WithHTTPClient(c Doer) Option {
	return func(b *Bridge) { b.client = c }
}

// New binds a synthesized registry to the remote API described by cfg.
func New(reg *Registry, cfg Config, opts ...Option) (*Bridge, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: tool registry is required", ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Bridge{
		registry: reg,
		policy:   Policy{ReadOnly: cfg.ReadOnly},
		baseURL:  cfg.BaseURL,
		logger:   zap.NewNop(),
		metrics:  nopMetrics{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		b.client = &http.Client{Timeout: timeout}
	}
	b.logger = b.logger.With(zap.String("component", "bridge"))
	b.builder = NewRequestBuilder(cfg.BaseURL, cfg.APIKey).WithUserAgent(cfg.UserAgent)
	b.dispatcher = NewDispatcher(b.client, cfg.MaxResponseBytes, b.logger)
	return b, nil
}

// Registry returns the tool registry served by the bridge.
func (b *Bridge) Registry() *Registry { return b.registry }

// Policy returns the active policy gate.
func (b *Bridge) Policy() Policy { return b.policy }

// BaseURL returns the configured remote base URL.
func (b *Bridge) BaseURL() string { return b.baseURL }

// Invoke runs one tool call: registry lookup, policy gate, request build, dispatch.
// The policy gate runs before any argument is read, so a denied call never sends
// a request. Errors carry a Kind (see ErrorKind); none of them terminate the process.
func (b *Bridge) Invoke(ctx context.Context, name string, args map[string]any) (*Output, error) {
	start := time.Now()
	callLogger := b.logger.With(zap.String("call_id", uuid.NewString()), zap.String("tool", name))

	tool, ok := b.registry.Lookup(name)
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownTool, name)
		callLogger.Warn("tool invocation", zap.String("outcome", KindUnknownTool))
		b.metrics.ObserveInvocation(UnknownToolLabel, KindUnknownTool, time.Since(start))
		return nil, err
	}
	callLogger = callLogger.With(zap.String("method", tool.Method.String()))

	decision := b.policy.Evaluate(tool.Method)
	if !decision.Allowed {
		err := &PolicyDeniedError{Tool: tool.Name, Method: tool.Method, Reason: decision.Reason}
		b.metrics.PolicyDenied(tool.Name)
		b.finish(callLogger, tool.Name, decision, start, err)
		return nil, err
	}

	if args == nil {
		args = map[string]any{}
	}
	req, err := b.builder.Build(ctx, tool, args)
	if err != nil {
		b.finish(callLogger, tool.Name, decision, start, err)
		return nil, err
	}
	out, err := b.dispatcher.Dispatch(req)
	b.finish(callLogger, tool.Name, decision, start, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// finish writes the audit line and records metrics for one call.
func (b *Bridge) finish(logger *zap.Logger, tool string, decision Decision, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := OutcomeSuccess
	if err != nil {
		outcome = ErrorKind(err)
	}
	fields := []zap.Field{
		zap.String("decision", decision.String()),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.Int("status", apiErr.Status))
	}
	var internal *InternalError
	switch {
	case err == nil:
		logger.Info("tool invocation", fields...)
	case errors.As(err, &internal):
		logger.Error("tool invocation", append(fields, zap.NamedError("cause", internal.Err))...)
	default:
		logger.Warn("tool invocation", append(fields, zap.Error(err))...)
	}
	b.metrics.ObserveInvocation(tool, outcome, elapsed)
}
