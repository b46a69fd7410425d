// Command mcp-pangolin exposes a Pangolin-style REST API, described by an
// OpenAPI document, as a set of MCP tools.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	app := New()

	if err := app.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
