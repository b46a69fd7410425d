// schema.go
package openapi2mcp

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// maxSchemaDepth bounds schema inlining; recursive component schemas stop here
// and continue as an open schema.
const maxSchemaDepth = 8

// schemaNotes collects the simplifications made while converting a schema.
type schemaNotes struct {
	opened []string
}

func (n *schemaNotes) open(reason string) map[string]any {
	if n != nil {
		n.opened = append(n.opened, reason)
	}
	return map[string]any{}
}

// extractProperty converts an OpenAPI schema into a JSON Schema fragment.
// allOf members are merged; oneOf, anyOf, not and schemas nested deeper than
// maxSchemaDepth become an open schema that accepts any value.
func extractProperty(s *openapi3.SchemaRef, depth int, notes *schemaNotes) map[string]any {
	if s == nil || s.Value == nil {
		return map[string]any{}
	}
	if depth > maxSchemaDepth {
		return notes.open("schema nested deeper than supported")
	}
	val := s.Value
	if len(val.OneOf) > 0 || len(val.AnyOf) > 0 || val.Not != nil {
		prop := notes.open("oneOf/anyOf/not composition")
		if val.Description != "" {
			prop["description"] = val.Description
		}
		return prop
	}

	prop := map[string]any{}
	if len(val.AllOf) > 0 {
		mergeAllOf(prop, val.AllOf, depth, notes)
	}

	if t := schemaType(val); t != "" {
		if val.Nullable {
			prop["type"] = []string{t, "null"}
		} else {
			prop["type"] = t
		}
	}
	if val.Format != "" {
		prop["format"] = val.Format
	}
	if val.Description != "" {
		prop["description"] = val.Description
	}
	if len(val.Enum) > 0 {
		prop["enum"] = val.Enum
	}
	if val.Default != nil {
		prop["default"] = val.Default
	}
	if val.Pattern != "" {
		prop["pattern"] = val.Pattern
	}
	if val.MinLength > 0 {
		prop["minLength"] = val.MinLength
	}
	if val.MaxLength != nil {
		prop["maxLength"] = *val.MaxLength
	}
	if val.Min != nil {
		prop["minimum"] = *val.Min
	}
	if val.Max != nil {
		prop["maximum"] = *val.Max
	}

	if len(val.Properties) > 0 {
		objProps, _ := prop["properties"].(map[string]any)
		if objProps == nil {
			objProps = map[string]any{}
		}
		for name, sub := range val.Properties {
			if sub != nil && sub.Value != nil && sub.Value.ReadOnly {
				continue
			}
			objProps[name] = extractProperty(sub, depth+1, notes)
		}
		prop["properties"] = objProps
		if _, ok := prop["type"]; !ok {
			prop["type"] = "object"
		}
	}
	if len(val.Required) > 0 {
		prop["required"] = appendUnique(requiredOf(prop), val.Required...)
	}
	if ap := val.AdditionalProperties; ap.Has != nil && !*ap.Has {
		prop["additionalProperties"] = false
	} else if ap.Schema != nil {
		prop["additionalProperties"] = extractProperty(ap.Schema, depth+1, notes)
	}

	if val.Items != nil {
		prop["items"] = extractProperty(val.Items, depth+1, notes)
		if val.MinItems > 0 {
			prop["minItems"] = val.MinItems
		}
		if val.MaxItems != nil {
			prop["maxItems"] = *val.MaxItems
		}
	}
	return prop
}

func mergeAllOf(prop map[string]any, subs openapi3.SchemaRefs, depth int, notes *schemaNotes) {
	props := map[string]any{}
	var required []string
	for _, sub := range subs {
		subProp := extractProperty(sub, depth+1, notes)
		for k, v := range subProp {
			switch k {
			case "properties":
				if m, ok := v.(map[string]any); ok {
					for name, p := range m {
						props[name] = p
					}
				}
			case "required":
				required = appendUnique(required, requiredOf(subProp)...)
			default:
				prop[k] = v
			}
		}
	}
	if len(props) > 0 {
		prop["properties"] = props
		prop["type"] = "object"
	}
	if len(required) > 0 {
		prop["required"] = required
	}
}

func schemaType(val *openapi3.Schema) string {
	if val.Type == nil || len(*val.Type) == 0 {
		return ""
	}
	for _, t := range val.Type.Slice() {
		if t != "null" {
			return t
		}
	}
	return ""
}

func requiredOf(prop map[string]any) []string {
	req, _ := prop["required"].([]string)
	return req
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}

// isScalarType reports whether a JSON Schema type names a primitive value.
// An empty type is treated as a scalar: untyped parameters are sent as strings.
func isScalarType(t string) bool {
	switch t {
	case "", "string", "number", "integer", "boolean":
		return true
	}
	return false
}

// BuildInputSchema combines the flattened tool arguments into one JSON Schema object.
// Each argument becomes a property; required arguments are listed under "required".
//
//	schema := openapi2mcp.BuildInputSchema(tool.Params, props)
func BuildInputSchema(params []Param, props map[string]map[string]any) map[string]any {
	properties := map[string]any{}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	var required []string
	for _, p := range params {
		prop := props[p.Name]
		if prop == nil {
			prop = map[string]any{}
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
