package openapi2mcp

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typesPtr(t string) *openapi3.Types {
	return &openapi3.Types{t}
}

func schemaRef(s *openapi3.Schema) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: s}
}

func TestExtractProperty_NumberVsInteger(t *testing.T) {
	prop := extractProperty(schemaRef(&openapi3.Schema{
		Type: typesPtr("object"),
		Properties: openapi3.Schemas{
			"integerField": schemaRef(&openapi3.Schema{Type: typesPtr("integer"), Format: "int32"}),
			"numberField":  schemaRef(&openapi3.Schema{Type: typesPtr("number"), Format: "float"}),
			"dateField":    schemaRef(&openapi3.Schema{Type: typesPtr("string"), Format: "date"}),
		},
		Required: []string{"integerField", "numberField"},
	}), 0, nil)

	props := prop["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "integer", "format": "int32"}, props["integerField"])
	assert.Equal(t, map[string]any{"type": "number", "format": "float"}, props["numberField"])
	assert.Equal(t, map[string]any{"type": "string", "format": "date"}, props["dateField"])
	assert.Equal(t, []string{"integerField", "numberField"}, prop["required"])
}

func TestExtractProperty_Constraints(t *testing.T) {
	minV, maxV := 1.0, 10.0
	maxLen := uint64(32)
	prop := extractProperty(schemaRef(&openapi3.Schema{
		Type:      typesPtr("string"),
		Pattern:   "^[a-z]+$",
		MinLength: 2,
		MaxLength: &maxLen,
		Enum:      []any{"newt", "wireguard"},
		Default:   "newt",
	}), 0, nil)
	assert.Equal(t, "^[a-z]+$", prop["pattern"])
	assert.Equal(t, uint64(2), prop["minLength"])
	assert.Equal(t, uint64(32), prop["maxLength"])
	assert.Equal(t, []any{"newt", "wireguard"}, prop["enum"])
	assert.Equal(t, "newt", prop["default"])

	num := extractProperty(schemaRef(&openapi3.Schema{Type: typesPtr("integer"), Min: &minV, Max: &maxV}), 0, nil)
	assert.Equal(t, 1.0, num["minimum"])
	assert.Equal(t, 10.0, num["maximum"])
}

func TestExtractProperty_Nullable(t *testing.T) {
	prop := extractProperty(schemaRef(&openapi3.Schema{Type: typesPtr("string"), Nullable: true}), 0, nil)
	assert.Equal(t, []string{"string", "null"}, prop["type"])
}

func TestExtractProperty_AllOfMerged(t *testing.T) {
	prop := extractProperty(schemaRef(&openapi3.Schema{
		AllOf: openapi3.SchemaRefs{
			schemaRef(&openapi3.Schema{
				Type:       typesPtr("object"),
				Properties: openapi3.Schemas{"name": schemaRef(&openapi3.Schema{Type: typesPtr("string")})},
				Required:   []string{"name"},
			}),
			schemaRef(&openapi3.Schema{
				Type:       typesPtr("object"),
				Properties: openapi3.Schemas{"subnet": schemaRef(&openapi3.Schema{Type: typesPtr("string")})},
				Required:   []string{"subnet", "name"},
			}),
		},
	}), 0, nil)

	assert.Equal(t, "object", prop["type"])
	props := prop["properties"].(map[string]any)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "subnet")
	assert.ElementsMatch(t, []string{"name", "subnet"}, prop["required"])
}

func TestExtractProperty_CompositionIsOpen(t *testing.T) {
	notes := &schemaNotes{}
	prop := extractProperty(schemaRef(&openapi3.Schema{
		Description: "either kind",
		OneOf: openapi3.SchemaRefs{
			schemaRef(&openapi3.Schema{Type: typesPtr("string")}),
			schemaRef(&openapi3.Schema{Type: typesPtr("integer")}),
		},
	}), 0, notes)
	assert.Equal(t, map[string]any{"description": "either kind"}, prop)
	assert.Len(t, notes.opened, 1)
}

func TestExtractProperty_RecursiveSchemaStops(t *testing.T) {
	node := &openapi3.Schema{Type: typesPtr("object"), Properties: openapi3.Schemas{}}
	ref := schemaRef(node)
	node.Properties["child"] = ref

	notes := &schemaNotes{}
	prop := extractProperty(ref, 0, notes)

	depth := 0
	for {
		props, ok := prop["properties"].(map[string]any)
		if !ok {
			break
		}
		prop = props["child"].(map[string]any)
		depth++
	}
	assert.Equal(t, maxSchemaDepth+1, depth)
	assert.Empty(t, prop)
	assert.NotEmpty(t, notes.opened)
}

func TestExtractProperty_SkipsReadOnly(t *testing.T) {
	prop := extractProperty(schemaRef(&openapi3.Schema{
		Type: typesPtr("object"),
		Properties: openapi3.Schemas{
			"siteId": schemaRef(&openapi3.Schema{Type: typesPtr("integer"), ReadOnly: true}),
			"name":   schemaRef(&openapi3.Schema{Type: typesPtr("string")}),
		},
	}), 0, nil)
	props := prop["properties"].(map[string]any)
	assert.NotContains(t, props, "siteId")
	assert.Contains(t, props, "name")
}

func TestExtractProperty_ArrayItems(t *testing.T) {
	maxItems := uint64(5)
	prop := extractProperty(schemaRef(&openapi3.Schema{
		Type:     typesPtr("array"),
		Items:    schemaRef(&openapi3.Schema{Type: typesPtr("integer")}),
		MinItems: 1,
		MaxItems: &maxItems,
	}), 0, nil)
	assert.Equal(t, map[string]any{"type": "integer"}, prop["items"])
	assert.Equal(t, uint64(1), prop["minItems"])
	assert.Equal(t, uint64(5), prop["maxItems"])
}

func TestBuildInputSchema_Basic(t *testing.T) {
	params := []Param{
		{Name: "orgId", In: LocationPath, Required: true, Type: "string", Description: "organization"},
		{Name: "limit", In: LocationQuery, Type: "integer"},
	}
	props := map[string]map[string]any{
		"orgId": {"type": "string"},
		"limit": {"type": "integer"},
	}
	schema := BuildInputSchema(params, props)

	assert.Equal(t, "object", schema["type"])
	properties := schema["properties"].(map[string]any)
	require.Len(t, properties, 2)
	assert.Equal(t, map[string]any{"type": "string", "description": "organization"}, properties["orgId"])
	assert.Equal(t, []string{"orgId"}, schema["required"])
}

func TestBuildInputSchema_Empty(t *testing.T) {
	schema := BuildInputSchema(nil, nil)
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Empty(t, props)
	assert.NotContains(t, schema, "required")
}
