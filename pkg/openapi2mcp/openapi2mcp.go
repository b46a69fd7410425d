// Package openapi2mcp exposes the operations of an OpenAPI document as MCP tools.
// It loads the document once, synthesizes an immutable registry of tool descriptors,
// and at call time validates arguments, enforces the read-only policy, builds the
// HTTP request and translates the HTTP response back into a tool result.
package openapi2mcp

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIOperation describes a single OpenAPI operation to be mapped to an MCP tool.
// Parameters holds the merged path-level and operation-level parameters.
type OpenAPIOperation struct {
	OperationID string
	Summary     string
	Description string
	Path        string
	Method      Method
	Parameters  openapi3.Parameters
	RequestBody *openapi3.RequestBodyRef
	Tags        []string
}
