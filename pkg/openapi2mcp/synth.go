// synth.go
package openapi2mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// errUnsupported marks an operation the bridge cannot express as a tool.
var errUnsupported = errors.New("unsupported operation")

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUnsupported, fmt.Sprintf(format, args...))
}

// reservedHeaders are set by the request builder and may not be supplied as arguments.
var reservedHeaders = map[string]bool{
	"authorization": true,
	"content-type":  true,
}

// Synthesize walks every operation of doc and builds the tool registry.
//
// Operations filtered out by opts are ignored. Operations that cannot be expressed
// as a tool are logged at WARN and skipped. Two operations deriving the same tool
// name abort synthesis with *ToolNameCollisionError.
//
//	doc, _ := openapi2mcp.LoadOpenAPISpec("pangolin-api.json")
//	reg, err := openapi2mcp.Synthesize(doc, &openapi2mcp.ToolGenOptions{Logger: logger})
func Synthesize(doc *openapi3.T, opts *ToolGenOptions) (*Registry, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: no OpenAPI document to synthesize from", ErrConfig)
	}
	logger := opts.logger().With(zap.String("component", "synthesizer"))

	reg := newRegistry(doc.Info)
	origin := map[string]string{}
	for _, op := range ExtractOpenAPIOperations(doc) {
		if !opts.accept(op) {
			continue
		}
		opLogger := logger.With(zap.String("method", op.Method.String()), zap.String("path", op.Path))

		tool, notes, err := buildTool(op)
		if err != nil {
			opLogger.Warn("skipping operation", zap.Error(err))
			continue
		}
		for _, reason := range notes.opened {
			opLogger.Warn("schema simplified to an open schema", zap.String("reason", reason))
		}

		where := op.Method.String() + " " + op.Path
		if first, ok := origin[tool.Name]; ok {
			return nil, &ToolNameCollisionError{Name: tool.Name, First: first, Second: where}
		}
		origin[tool.Name] = where
		reg.add(tool)
	}
	logger.Info("tool registry built", zap.Int("tools", reg.Len()))
	return reg, nil
}

// buildTool derives the tool descriptor for one operation.
func buildTool(op OpenAPIOperation) (*Tool, *schemaNotes, error) {
	notes := &schemaNotes{}
	placeholders := PathPlaceholders(op.Path)
	inTemplate := map[string]bool{}
	for _, name := range placeholders {
		inTemplate[name] = true
	}

	var (
		pathParams  = map[string]Param{}
		otherParams []Param
		props       = map[string]map[string]any{}
	)
	seen := map[string]bool{}
	for _, ref := range op.Parameters {
		if ref == nil || ref.Value == nil {
			return nil, nil, unsupported("unresolved parameter reference")
		}
		p := ref.Value
		if seen[p.Name] {
			return nil, nil, unsupported("argument %q is declared more than once", p.Name)
		}
		seen[p.Name] = true
		if p.Schema == nil && len(p.Content) > 0 {
			return nil, nil, unsupported("parameter %q uses content serialization", p.Name)
		}

		param := Param{Name: p.Name, Required: p.Required, Description: p.Description}
		if p.Schema != nil && p.Schema.Value != nil {
			param.Type = schemaType(p.Schema.Value)
		}
		prop := extractProperty(p.Schema, 0, notes)

		switch p.In {
		case openapi3.ParameterInPath:
			if !inTemplate[p.Name] {
				return nil, nil, unsupported("path parameter %q does not appear in the path template", p.Name)
			}
			if !isScalarType(param.Type) {
				return nil, nil, unsupported("path parameter %q has non-scalar type %q", p.Name, param.Type)
			}
			if p.Style != "" && p.Style != openapi3.SerializationSimple {
				return nil, nil, unsupported("path parameter %q uses style %q", p.Name, p.Style)
			}
			param.In = LocationPath
			param.Required = true
			if param.Type == "" {
				prop["type"] = "string"
			}
			pathParams[p.Name] = param
		case openapi3.ParameterInQuery:
			if p.Style != "" && p.Style != openapi3.SerializationForm {
				return nil, nil, unsupported("query parameter %q uses style %q", p.Name, p.Style)
			}
			if param.IsArray() {
				if !scalarItems(p.Schema.Value) {
					return nil, nil, unsupported("query parameter %q is an array of non-scalar items", p.Name)
				}
				param.explode = p.Explode == nil || *p.Explode
			} else if !isScalarType(param.Type) {
				return nil, nil, unsupported("query parameter %q has non-scalar type %q", p.Name, param.Type)
			}
			param.In = LocationQuery
			otherParams = append(otherParams, param)
		case openapi3.ParameterInHeader:
			if reservedHeaders[strings.ToLower(p.Name)] {
				return nil, nil, unsupported("header parameter %q is reserved", p.Name)
			}
			if !isScalarType(param.Type) {
				return nil, nil, unsupported("header parameter %q has non-scalar type %q", p.Name, param.Type)
			}
			param.In = LocationHeader
			otherParams = append(otherParams, param)
		default:
			return nil, nil, unsupported("parameter %q has unsupported location %q", p.Name, p.In)
		}
		props[p.Name] = prop
	}

	// Path parameters follow template order; undeclared placeholders become required strings.
	params := make([]Param, 0, len(placeholders)+len(otherParams)+1)
	for _, name := range placeholders {
		param, ok := pathParams[name]
		if !ok {
			if seen[name] {
				return nil, nil, unsupported("placeholder %q is declared outside the path", name)
			}
			param = Param{Name: name, In: LocationPath, Required: true, Type: "string"}
			props[name] = map[string]any{"type": "string"}
			seen[name] = true
		}
		params = append(params, param)
	}
	params = append(params, otherParams...)

	var bodySchema *gojsonschema.Schema
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if seen[BodyParamName] {
			return nil, nil, unsupported("argument %q clashes with the request body", BodyParamName)
		}
		prop, err := bodyProperty(op.RequestBody.Value, notes)
		if err != nil {
			return nil, nil, err
		}
		bodySchema, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(prop))
		if err != nil {
			prop = notes.open("body schema could not be compiled: " + err.Error())
			bodySchema = nil
		}
		params = append(params, Param{
			Name:        BodyParamName,
			In:          LocationBody,
			Required:    op.RequestBody.Value.Required,
			Type:        bodyType(prop),
			Description: op.RequestBody.Value.Description,
		})
		props[BodyParamName] = prop
	}

	inputSchema := BuildInputSchema(params, props)
	raw, err := json.Marshal(inputSchema)
	if err != nil {
		return nil, nil, unsupported("input schema cannot be encoded: %v", err)
	}

	return &Tool{
		Name:            ToolName(op.Path, op.Method),
		Description:     describe(op),
		OperationID:     op.OperationID,
		Method:          op.Method,
		Path:            op.Path,
		Tags:            op.Tags,
		Params:          params,
		InputSchema:     inputSchema,
		inputSchemaJSON: raw,
		bodySchema:      bodySchema,
	}, notes, nil
}

// bodyProperty picks the JSON media type of a request body and converts its schema.
func bodyProperty(rb *openapi3.RequestBody, notes *schemaNotes) (map[string]any, error) {
	if len(rb.Content) == 0 {
		return notes.open("request body declares no media type"), nil
	}
	mt := jsonMediaType(rb.Content)
	if mt == nil {
		return nil, unsupported("request body has no JSON media type")
	}
	if mt.Schema == nil {
		return notes.open("request body has no schema"), nil
	}
	return extractProperty(mt.Schema, 0, notes), nil
}

func jsonMediaType(content openapi3.Content) *openapi3.MediaType {
	if mt := content.Get("application/json"); mt != nil {
		return mt
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		base := strings.TrimSpace(strings.SplitN(strings.ToLower(k), ";", 2)[0])
		if base == "application/json" || strings.HasSuffix(base, "+json") {
			return content[k]
		}
	}
	return nil
}

func scalarItems(s *openapi3.Schema) bool {
	if s == nil || s.Items == nil || s.Items.Value == nil {
		return true
	}
	return isScalarType(schemaType(s.Items.Value))
}

func bodyType(prop map[string]any) string {
	switch t := prop["type"].(type) {
	case string:
		return t
	case []string:
		if len(t) > 0 {
			return t[0]
		}
	}
	return ""
}

// describe renders the tool description: "[METHOD] text (Tags: a, b)".
func describe(op OpenAPIOperation) string {
	text := strings.TrimSpace(op.Description)
	if text == "" {
		text = strings.TrimSpace(op.Summary)
	}
	if text == "" {
		text = op.Method.String() + " " + op.Path
	}
	desc := fmt.Sprintf("[%s] %s", op.Method, text)
	if len(op.Tags) > 0 {
		desc += fmt.Sprintf(" (Tags: %s)", strings.Join(op.Tags, ", "))
	}
	return desc
}
