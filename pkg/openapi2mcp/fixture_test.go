package openapi2mcp

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/require"
)

// pangolinSpec mirrors the shape of the Pangolin integration API: PUT creates,
// POST updates, path-level parameters on /org/{orgId}, and one operation with a
// cookie parameter that cannot be expressed as a tool.
const pangolinSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Pangolin Integration API", "version": "v1"},
  "paths": {
    "/orgs": {
      "get": {
        "summary": "List organizations",
        "tags": ["Organization"],
        "parameters": [
          {"name": "limit", "in": "query", "schema": {"type": "integer"}},
          {"name": "offset", "in": "query", "schema": {"type": "integer"}}
        ]
      }
    },
    "/org": {
      "put": {
        "summary": "Create an organization",
        "tags": ["Organization"],
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {
            "type": "object",
            "properties": {
              "orgId": {"type": "string"},
              "name": {"type": "string", "minLength": 1}
            },
            "required": ["orgId", "name"]
          }}}
        }
      }
    },
    "/org/{orgId}": {
      "parameters": [{"name": "orgId", "in": "path", "required": true, "schema": {"type": "string"}}],
      "get": {"summary": "Get an organization", "tags": ["Organization"]},
      "post": {
        "summary": "Update an organization",
        "tags": ["Organization"],
        "requestBody": {"content": {"application/json": {"schema": {
          "type": "object",
          "properties": {"name": {"type": "string"}}
        }}}}
      },
      "delete": {"summary": "Delete an organization", "tags": ["Organization"]}
    },
    "/orgs/{orgId}": {
      "delete": {"description": "Remove an organization and all of its sites."}
    },
    "/orgs/{orgId}/sites": {
      "get": {
        "summary": "List sites",
        "tags": ["Site"],
        "parameters": [
          {"name": "orgId", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "ids", "in": "query", "schema": {"type": "array", "items": {"type": "integer"}}},
          {"name": "fields", "in": "query", "explode": false, "schema": {"type": "array", "items": {"type": "string"}}},
          {"name": "X-Request-Source", "in": "header", "schema": {"type": "string"}}
        ]
      }
    },
    "/site/{siteId}": {
      "get": {
        "summary": "Get a site",
        "tags": ["Site"],
        "parameters": [{"name": "siteId", "in": "path", "required": true, "schema": {"type": "integer"}}]
      },
      "post": {
        "summary": "Update a site",
        "tags": ["Site"],
        "parameters": [{"name": "siteId", "in": "path", "required": true, "schema": {"type": "integer"}}],
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {
            "type": "object",
            "properties": {
              "name": {"type": "string"},
              "type": {"type": "string", "enum": ["newt", "wireguard"]}
            },
            "required": ["name"]
          }}}
        }
      },
      "delete": {
        "summary": "Delete a site",
        "tags": ["Site"],
        "parameters": [{"name": "siteId", "in": "path", "required": true, "schema": {"type": "integer"}}]
      }
    },
    "/site/{siteId}/resources": {
      "get": {
        "summary": "List resources",
        "parameters": [
          {"name": "siteId", "in": "path", "required": true, "schema": {"type": "integer"}},
          {"name": "session", "in": "cookie", "schema": {"type": "string"}}
        ]
      }
    }
  }
}`

// pangolinToolNames is the registry order for pangolinSpec.
var pangolinToolNames = []string{
	"create_org",
	"org_by_orgId",
	"update_org_by_orgId",
	"delete_org_by_orgId",
	"orgs",
	"delete_orgs_by_orgId",
	"orgs_by_orgId_sites",
	"site_by_siteId",
	"update_site_by_siteId",
	"delete_site_by_siteId",
}

func loadFixture(t testing.TB, spec string) *openapi3.T {
	t.Helper()
	doc, err := LoadOpenAPISpecFromString(spec)
	require.NoError(t, err)
	return doc
}

func pangolinRegistry(t testing.TB) *Registry {
	t.Helper()
	reg, err := Synthesize(loadFixture(t, pangolinSpec), nil)
	require.NoError(t, err)
	return reg
}

func mustTool(t testing.TB, reg *Registry, name string) *Tool {
	t.Helper()
	tool, ok := reg.Lookup(name)
	require.True(t, ok, "tool %q not registered", name)
	return tool
}
