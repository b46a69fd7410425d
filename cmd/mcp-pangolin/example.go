package main

import (
	"github.com/mcp-pangolin/mcp-pangolin/pkg/openapi2mcp"
)

// exampleArgs returns placeholder arguments for every required parameter of t.
func exampleArgs(t *openapi2mcp.Tool) map[string]any {
	props, _ := t.InputSchema["properties"].(map[string]any)
	example := map[string]any{}
	for _, p := range t.Params {
		if !p.Required {
			continue
		}
		prop, _ := props[p.Name].(map[string]any)
		example[p.Name] = exampleValue(prop)
	}
	return example
}

func exampleValue(prop map[string]any) any {
	if enum, ok := prop["enum"].([]any); ok && len(enum) > 0 {
		return enum[0]
	}
	typ, _ := prop["type"].(string)
	if types, ok := prop["type"].([]string); ok && len(types) > 0 {
		typ = types[0]
	}
	switch typ {
	case "string":
		return "example"
	case "integer":
		return 123
	case "number":
		return 123.45
	case "boolean":
		return true
	case "array":
		item, _ := prop["items"].(map[string]any)
		return []any{exampleValue(item)}
	case "object":
		obj := map[string]any{}
		nested, _ := prop["properties"].(map[string]any)
		required, _ := prop["required"].([]string)
		for _, name := range required {
			sub, _ := nested[name].(map[string]any)
			obj[name] = exampleValue(sub)
		}
		return obj
	}
	return "..."
}
