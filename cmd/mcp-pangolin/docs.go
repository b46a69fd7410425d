package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"

	"github.com/mcp-pangolin/mcp-pangolin/pkg/openapi2mcp"
)

// docsOptions holds options for the docs command.
type docsOptions struct {
	output string
}

// newDocsCmd creates the docs command.
func (a *App) newDocsCmd() *cobra.Command {
	opts := &docsOptions{}

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Write Markdown documentation for the generated tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, doc, reg, err := a.offlineSetup(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			policy := openapi2mcp.Policy{ReadOnly: cfg.API.ReadOnly}
			if opts.output == "" || opts.output == "-" {
				return writeMarkdown(a.stdout, doc.Info, reg, policy)
			}
			f, err := os.Create(opts.output)
			if err != nil {
				return err
			}
			if err := writeMarkdown(f, doc.Info, reg, policy); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "Wrote Markdown documentation to %s\n", opts.output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "O", "", "Write to this file instead of stdout")

	return cmd
}

// writeMarkdown renders one section per tool, in registry order.
func writeMarkdown(w io.Writer, info *openapi3.Info, reg *openapi2mcp.Registry, policy openapi2mcp.Policy) error {
	var sb strings.Builder
	sb.WriteString("# MCP Tools Documentation\n\n")
	if info != nil {
		fmt.Fprintf(&sb, "**API Title:** %s\n\n", info.Title)
		fmt.Fprintf(&sb, "**Version:** %s\n\n", info.Version)
		if info.Description != "" {
			sb.WriteString(info.Description + "\n\n")
		}
	}
	fmt.Fprintf(&sb, "**Mode:** %s (%d of %d tools permitted)\n\n", policy.Mode(), reg.CountAllowed(policy), reg.Len())

	for _, t := range reg.Tools() {
		fmt.Fprintf(&sb, "## %s\n\n", t.Name)
		sb.WriteString(t.Description + "\n\n")
		fmt.Fprintf(&sb, "`%s %s`", t.Method, t.Path)
		if !policy.Evaluate(t.Method).Allowed {
			sb.WriteString(" (denied in read-only mode)")
		}
		sb.WriteString("\n\n")
		if len(t.Tags) > 0 {
			fmt.Fprintf(&sb, "**Tags:** %s\n\n", strings.Join(t.Tags, ", "))
		}

		if len(t.Params) > 0 {
			props, _ := t.InputSchema["properties"].(map[string]any)
			sb.WriteString("**Arguments:**\n\n")
			sb.WriteString("| Name | In | Type | Required | Description |\n|------|----|------|----------|-------------|\n")
			for _, p := range t.Params {
				prop, _ := props[p.Name].(map[string]any)
				desc, _ := prop["description"].(string)
				fmt.Fprintf(&sb, "| %s | %s | %s | %t | %s |\n", p.Name, p.In, typeLabel(p, prop), p.Required, tableCell(desc))
			}
			sb.WriteString("\n")
		}

		example, err := json.MarshalIndent(exampleArgs(t), "", "  ")
		if err != nil {
			return err
		}
		sb.WriteString("**Example call:**\n\n")
		fmt.Fprintf(&sb, "```\ncall %s %s\n```\n\n", t.Name, example)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func typeLabel(p openapi2mcp.Param, prop map[string]any) string {
	if p.Type != "" {
		return p.Type
	}
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
