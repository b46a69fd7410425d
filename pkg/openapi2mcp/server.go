// server.go
package openapi2mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// ServerOptions names the MCP server. HideDenied leaves tools the policy
// denies out of the listing; calls to them are still gated per invocation.
type ServerOptions struct {
	Name       string
	Version    string
	HideDenied bool
}

// NewServer creates an MCP server exposing every tool of the bridge.
// Example usage for NewServer:
//
//	reg, _ := openapi2mcp.Synthesize(doc, nil)
//	b, _ := openapi2mcp.New(reg, openapi2mcp.Config{BaseURL: base, APIKey: key, ReadOnly: true})
//	srv := openapi2mcp.NewServer(b, openapi2mcp.ServerOptions{Name: "pangolin", Version: "1.0.0"})
//	openapi2mcp.ServeStdio(srv)
func NewServer(b *Bridge, opts ServerOptions) *mcpserver.MCPServer {
	if opts.Name == "" {
		opts.Name = "mcp-pangolin"
	}
	srv := mcpserver.NewMCPServer(opts.Name, opts.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithInstructions(Instructions(b)),
	)
	RegisterTools(srv, b, opts.HideDenied)
	return srv
}

// RegisterTools adds the registry tools to srv and returns how many were added.
// Unless hideDenied is set, write tools stay registered in read-only mode so
// that calling them reports a policy denial.
func RegisterTools(srv *mcpserver.MCPServer, b *Bridge, hideDenied bool) int {
	policy := b.Policy()
	n := 0
	for _, t := range b.Registry().Tools() {
		if hideDenied && !policy.Evaluate(t.Method).Allowed {
			continue
		}
		srv.AddTool(ToMCPTool(t), ToolHandler(b, t.Name))
		n++
	}
	return n
}

// Instructions describes the served API to the assistant.
func Instructions(b *Bridge) string {
	reg := b.Registry()
	policy := b.Policy()
	var sb strings.Builder
	title := reg.Title()
	if title == "" {
		title = "the remote API"
	}
	fmt.Fprintf(&sb, "Tools in this server call %s at %s", title, b.BaseURL())
	if reg.Version() != "" {
		fmt.Fprintf(&sb, " (API version %s)", reg.Version())
	}
	sb.WriteString(".\n")
	fmt.Fprintf(&sb, "Mode: %s. %d of %d tools are permitted in this mode.", policy.Mode(), reg.CountAllowed(policy), reg.Len())
	if policy.ReadOnly {
		sb.WriteString(" Write tools (POST, PUT, PATCH, DELETE) are rejected.")
	}
	return sb.String()
}

// ToMCPTool converts a descriptor into the MCP tool definition.
func ToMCPTool(t *Tool) mcp.Tool {
	tool := mcp.NewToolWithRawSchema(t.Name, t.Description, t.InputSchemaJSON())
	title := t.Name
	if len(t.Tags) > 0 {
		title = strings.Join(t.Tags, ", ") + ": " + t.Name
	}
	tool.Annotations = mcp.ToolAnnotation{
		Title:           title,
		ReadOnlyHint:    boolPtr(t.Method.IsSafe()),
		DestructiveHint: boolPtr(t.Method == MethodDelete),
		IdempotentHint:  boolPtr(t.Method == MethodGet || t.Method == MethodPut || t.Method == MethodDelete),
		OpenWorldHint:   boolPtr(true),
	}
	return tool
}

func boolPtr(b bool) *bool { return &b }

// ToolHandler returns the MCP handler for one tool. Every failure is returned as
// a tool-execution error result; the handler itself never returns an error.
func ToolHandler(b *Bridge, name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := b.Invoke(ctx, name, req.GetArguments())
		if err != nil {
			return failureResult(err), nil
		}
		return mcp.NewToolResultText(out.Text()), nil
	}
}

// Failure is the structured form of a failed invocation.
type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Body    string `json:"body,omitempty"`
}

// NewFailure classifies err for the calling protocol.
func NewFailure(err error) Failure {
	f := Failure{Kind: ErrorKind(err), Message: err.Error()}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		f.Status = apiErr.Status
		f.Body = string(apiErr.Body)
	}
	return f
}

func failureResult(err error) *mcp.CallToolResult {
	payload, mErr := json.MarshalIndent(map[string]Failure{"failure": NewFailure(err)}, "", "  ")
	if mErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(payload))
}

// ServeStdio serves srv over stdin/stdout until the input closes.
func ServeStdio(srv *mcpserver.MCPServer) error {
	return mcpserver.ServeStdio(srv)
}

// NewHTTPHandler mounts the streamable HTTP transport at basePath. Extra handlers
// (for example /metrics) are mounted next to it.
//
//	mux := openapi2mcp.NewHTTPHandler(srv, "/mcp", map[string]http.Handler{"/metrics": h})
//	http.ListenAndServe(":8080", mux)
func NewHTTPHandler(srv *mcpserver.MCPServer, basePath string, extra map[string]http.Handler) http.Handler {
	if basePath == "" {
		basePath = "/mcp"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	mux := http.NewServeMux()
	mux.Handle(basePath, mcpserver.NewStreamableHTTPServer(srv, mcpserver.WithStateLess(true)))
	for path, h := range extra {
		mux.Handle(path, h)
	}
	return mux
}

// GetHTTPURL returns the MCP endpoint URL for a listen address.
func GetHTTPURL(addr, basePath string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	if basePath == "" {
		basePath = "/mcp"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return "http://" + host + basePath
}
