package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcp-pangolin/mcp-pangolin/pkg/openapi2mcp"
)

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the OpenAPI document and the generated tools",
		Long: `Load the OpenAPI document, report structural problems found by the
OpenAPI validator as warnings, synthesize the tools and run a self-test on
them. No request is sent to the API.

Examples:
  mcp-pangolin validate -o pangolin-api.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, doc, reg, err := a.offlineSetup(cmd)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			if err := doc.Validate(cmd.Context()); err != nil {
				fmt.Fprintf(a.stderr, "[WARN] OpenAPI document: %v\n", err)
			}
			if err := openapi2mcp.SelfTest(reg, a.stderr); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "✓ %d tools generated from %s\n", reg.Len(), docTitle(reg))
			return nil
		},
	}
}

func docTitle(reg *openapi2mcp.Registry) string {
	if reg.Title() == "" {
		return "the OpenAPI document"
	}
	if reg.Version() == "" {
		return reg.Title()
	}
	return fmt.Sprintf("%s %s", reg.Title(), reg.Version())
}
