package openapi2mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConfig marks a configuration error detected before any tool is built.
	ErrConfig = errors.New("configuration error")
	// ErrUnknownTool is returned when an invocation names a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
)

// Failure kinds reported to the calling protocol.
const (
	KindInvalidArgument = "invalid_argument"
	KindPolicyDenied    = "policy_denied"
	KindInternal        = "internal_error"
	KindTransport       = "transport_error"
	KindAPI             = "api_error"
	KindUnknownTool     = "unknown_tool"
)

// PolicyDeniedReason is the fixed reason given for write operations in read-only mode.
const PolicyDeniedReason = "write operation not allowed in read-only mode"

// SpecLoadError reports an unreadable or malformed OpenAPI document.
type SpecLoadError struct {
	Source string
	Err    error
}

func (e *SpecLoadError) Error() string {
	return fmt.Sprintf("failed to load OpenAPI document from %s: %v", e.Source, e.Err)
}

func (e *SpecLoadError) Unwrap() error { return e.Err }

// ToolNameCollisionError reports two operations deriving the same tool name.
type ToolNameCollisionError struct {
	Name   string
	First  string
	Second string
}

func (e *ToolNameCollisionError) Error() string {
	return fmt.Sprintf("tool name collision: %q derived from both %s and %s", e.Name, e.First, e.Second)
}

// InvalidArgumentError reports a caller-supplied argument that cannot be used.
type InvalidArgumentError struct {
	Name   string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Name, e.Reason)
}

func (e *InvalidArgumentError) Kind() string { return KindInvalidArgument }

// PolicyDeniedError reports an invocation rejected by the policy gate.
type PolicyDeniedError struct {
	Tool   string
	Method Method
	Reason string
}

func (e *PolicyDeniedError) Error() string { return e.Reason }

func (e *PolicyDeniedError) Kind() string { return KindPolicyDenied }

// InternalError reports a synthesis/validation inconsistency. The cause is kept for
// logging and never rendered to the caller.
type InternalError struct {
	Tool string
	Err  error
}

func (e *InternalError) Error() string { return "internal error while preparing request" }

func (e *InternalError) Unwrap() error { return e.Err }

func (e *InternalError) Kind() string { return KindInternal }

// TransportError reports that no HTTP response was received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote service unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Kind() string { return KindTransport }

// APIError carries a non-2xx response from the remote service verbatim.
type APIError struct {
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error (HTTP %d %s)", e.Status, http.StatusText(e.Status))
	if detail := e.detail(); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// detail prefers the "message" or "error" string of a JSON error body.
func (e *APIError) detail() string {
	var payload map[string]any
	if json.Unmarshal(e.Body, &payload) == nil {
		for _, key := range []string{"message", "error"} {
			if s, ok := payload[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return string(e.Body)
}

func (e *APIError) Kind() string { return KindAPI }

// ErrorKind classifies a per-call error for the calling protocol.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrUnknownTool) {
		return KindUnknownTool
	}
	var k interface{ Kind() string }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}
