// spec.go
package openapi2mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
)

// SpecSource names where the OpenAPI document comes from. Exactly one field must be set.
type SpecSource struct {
	Path   string
	Inline string
}

// Validate checks that exactly one source is supplied.
func (s SpecSource) Validate() error {
	switch {
	case s.Path != "" && s.Inline != "":
		return fmt.Errorf("%w: both an OpenAPI file and inline OpenAPI JSON were supplied; use exactly one", ErrConfig)
	case s.Path == "" && s.Inline == "":
		return fmt.Errorf("%w: an OpenAPI file or inline OpenAPI JSON is required", ErrConfig)
	}
	return nil
}

func (s SpecSource) String() string {
	if s.Path != "" {
		return "file " + s.Path
	}
	return "inline JSON"
}

// LoadSpec loads the document named by src. Source misuse is reported as ErrConfig,
// everything else as *SpecLoadError.
func LoadSpec(src SpecSource) (*openapi3.T, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.Path != "" {
		return LoadOpenAPISpec(src.Path)
	}
	return LoadOpenAPISpecFromString(src.Inline)
}

// LoadOpenAPISpec loads and parses an OpenAPI JSON file from the given path.
//
//	doc, err := openapi2mcp.LoadOpenAPISpec("pangolin-api.json")
//	if err != nil { log.Fatal(err) }
//	reg, err := openapi2mcp.Synthesize(doc, nil)
func LoadOpenAPISpec(path string) (*openapi3.T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SpecLoadError{Source: "file " + path, Err: err}
	}
	doc, err := parseSpec(data)
	if err != nil {
		return nil, &SpecLoadError{Source: "file " + path, Err: err}
	}
	return doc, nil
}

// LoadOpenAPISpecFromString loads and parses an inline OpenAPI JSON document.
func LoadOpenAPISpecFromString(data string) (*openapi3.T, error) {
	return LoadOpenAPISpecFromBytes([]byte(data))
}

// LoadOpenAPISpecFromBytes loads and parses an OpenAPI JSON document from a byte slice.
func LoadOpenAPISpecFromBytes(data []byte) (*openapi3.T, error) {
	doc, err := parseSpec(data)
	if err != nil {
		return nil, &SpecLoadError{Source: "inline JSON", Err: err}
	}
	return doc, nil
}

// specProbe peeks at the top level before committing to a parser.
type specProbe struct {
	SwaggerDoc json.RawMessage `json:"swaggerDoc"`
	Swagger    string          `json:"swagger"`
	Paths      json.RawMessage `json:"paths"`
}

func parseSpec(data []byte) (*openapi3.T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("document is empty")
	}
	if !json.Valid(data) {
		return nil, errors.New("document is not valid JSON")
	}
	var probe specProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}
	// Documents served by swagger-ui-express come wrapped as {"swaggerDoc": {...}}.
	if len(probe.SwaggerDoc) > 0 && !isJSONNull(probe.SwaggerDoc) {
		data = probe.SwaggerDoc
		probe = specProbe{}
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("swaggerDoc is not a JSON object: %w", err)
		}
	}
	if len(probe.Paths) == 0 || isJSONNull(probe.Paths) {
		return nil, errors.New("document has no paths collection")
	}

	if strings.HasPrefix(probe.Swagger, "2") {
		var doc2 openapi2.T
		if err := json.Unmarshal(data, &doc2); err != nil {
			return nil, fmt.Errorf("failed to parse Swagger 2.0 document: %w", err)
		}
		doc, err := openapi2conv.ToV3(&doc2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert Swagger 2.0 document: %w", err)
		}
		return doc, nil
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if doc.Paths == nil {
		return nil, errors.New("document has no paths collection")
	}
	return doc, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// ExtractOpenAPIOperations extracts all exposed operations from the document, merging
// path-level and operation-level parameters. Operations are ordered by path template,
// then by method (GET, POST, PUT, PATCH, DELETE), so the result is deterministic.
func ExtractOpenAPIOperations(doc *openapi3.T) []OpenAPIOperation {
	if doc == nil || doc.Paths == nil {
		return nil
	}
	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var ops []OpenAPIOperation
	for _, path := range paths {
		pathItem := pathMap[path]
		if pathItem == nil {
			continue
		}
		for _, method := range exposedMethods {
			op := pathItem.GetOperation(string(method))
			if op == nil {
				continue
			}
			ops = append(ops, OpenAPIOperation{
				OperationID: op.OperationID,
				Summary:     op.Summary,
				Description: op.Description,
				Path:        path,
				Method:      method,
				Parameters:  mergeParameters(pathItem.Parameters, op.Parameters),
				RequestBody: op.RequestBody,
				Tags:        op.Tags,
			})
		}
	}
	return ops
}

// mergeParameters appends operation parameters to path-level ones; an operation
// parameter replaces a path-level parameter with the same name and location.
func mergeParameters(pathLevel, opLevel openapi3.Parameters) openapi3.Parameters {
	merged := openapi3.Parameters{}
	for _, ref := range pathLevel {
		if ref == nil || ref.Value == nil {
			continue
		}
		if opLevel.GetByInAndName(ref.Value.In, ref.Value.Name) != nil {
			continue
		}
		merged = append(merged, ref)
	}
	return append(merged, opLevel...)
}
