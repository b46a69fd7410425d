package openapi2mcp

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// Method is an HTTP method bound to a tool at synthesis time.
type Method string

const (
	MethodGet     Method = http.MethodGet
	MethodHead    Method = http.MethodHead
	MethodOptions Method = http.MethodOptions
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
)

// exposedMethods lists the methods the synthesizer turns into tools, in registry order.
var exposedMethods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// IsSafe reports whether the method never mutates remote state.
func (m Method) IsSafe() bool {
	switch m {
	case MethodGet, MethodHead, MethodOptions:
		return true
	}
	return false
}

// IsWrite reports whether the method is a write operation.
func (m Method) IsWrite() bool { return !m.IsSafe() }

func (m Method) String() string { return string(m) }

// ParamLocation tells the request builder where an argument goes.
type ParamLocation int

const (
	LocationPath ParamLocation = iota + 1
	LocationQuery
	LocationHeader
	LocationBody
)

func (l ParamLocation) String() string {
	switch l {
	case LocationPath:
		return "path"
	case LocationQuery:
		return "query"
	case LocationHeader:
		return "header"
	case LocationBody:
		return "body"
	}
	return "unknown"
}

// MarshalText renders the location by name so dumps stay readable.
func (l ParamLocation) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// BodyParamName is the argument that carries the request body.
const BodyParamName = "body"

// Param is one flattened tool argument.
type Param struct {
	Name        string        `json:"name" yaml:"name"`
	In          ParamLocation `json:"in" yaml:"in"`
	Required    bool          `json:"required" yaml:"required"`
	Type        string        `json:"type,omitempty" yaml:"type,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`

	// explode is only meaningful for query arrays; false joins items with commas.
	explode bool
}

// IsArray reports whether the argument is a list of scalars (query parameters only).
func (p Param) IsArray() bool { return p.Type == "array" }

// Tool is the immutable descriptor of one registered tool.
type Tool struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	OperationID string         `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Method      Method         `json:"method" yaml:"method"`
	Path        string         `json:"path" yaml:"path"`
	Tags        []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Params      []Param        `json:"params" yaml:"params"`
	InputSchema map[string]any `json:"inputSchema" yaml:"inputSchema"`

	inputSchemaJSON json.RawMessage
	bodySchema      *gojsonschema.Schema
}

// InputSchemaJSON returns the marshalled input schema handed to MCP clients.
func (t *Tool) InputSchemaJSON() json.RawMessage { return t.inputSchemaJSON }

// Param returns the named argument descriptor.
func (t *Tool) Param(name string) (Param, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// HasBody reports whether the tool accepts a request body argument.
func (t *Tool) HasBody() bool {
	_, ok := t.Param(BodyParamName)
	return ok
}

// ToolInfo is the discovery view of a tool: what MCP clients see in tools/list.
type ToolInfo struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	InputSchema map[string]any `json:"inputSchema" yaml:"inputSchema"`
}

// ToolGenOptions controls which operations become tools.
//
// TagFilter: only include operations with at least one of these tags (if non-empty)
// IncludePath: only include operations whose path template matches (if not nil)
// ExcludePath: drop operations whose path template matches (if not nil)
// Logger: receives synthesis warnings; nil discards them
type ToolGenOptions struct {
	TagFilter   []string
	IncludePath *regexp.Regexp
	ExcludePath *regexp.Regexp
	Logger      *zap.Logger
}

func (o *ToolGenOptions) logger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *ToolGenOptions) accept(op OpenAPIOperation) bool {
	if o == nil {
		return true
	}
	if o.IncludePath != nil && !o.IncludePath.MatchString(op.Path) {
		return false
	}
	if o.ExcludePath != nil && o.ExcludePath.MatchString(op.Path) {
		return false
	}
	if len(o.TagFilter) == 0 {
		return true
	}
	for _, tag := range op.Tags {
		for _, want := range o.TagFilter {
			if tag == want {
				return true
			}
		}
	}
	return false
}
