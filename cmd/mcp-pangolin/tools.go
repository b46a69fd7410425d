package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mcp-pangolin/mcp-pangolin/pkg/openapi2mcp"
)

// toolsOptions holds options for the tools command.
type toolsOptions struct {
	format  string
	summary bool
}

// newToolsCmd creates the tools command.
func (a *App) newToolsCmd() *cobra.Command {
	opts := &toolsOptions{}

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the generated tools without starting a server",
		Long: `Load the OpenAPI document and print the tool registry.

Examples:
  # JSON dump of every tool
  mcp-pangolin tools -o pangolin-api.json

  # YAML dump of the Site tools only
  mcp-pangolin tools -o pangolin-api.json --tag Site --format yaml

  # Counts by method and tag
  mcp-pangolin tools -o pangolin-api.json --summary --read-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, _, reg, err := a.offlineSetup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if opts.summary {
				openapi2mcp.PrintToolSummary(a.stdout, reg, openapi2mcp.Policy{ReadOnly: cfg.API.ReadOnly})
				return nil
			}
			return writeTools(a.stdout, reg.Tools(), opts.format)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format: json or yaml")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "Print counts by method and tag instead of the tools")

	return cmd
}

func writeTools(w io.Writer, tools []*openapi2mcp.Tool, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tools)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tools); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q (want json or yaml)", format)
}
