package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/mcp-pangolin/mcp-pangolin/internal/logging"
	"github.com/mcp-pangolin/mcp-pangolin/pkg/openapi2mcp"
)

const consoleHelp = `Available commands:

  list                  List tools (write tools are marked in read-only mode)
  schema <tool>         Show the input schema of a tool and an example call
  call <tool> <json>    Call a tool with a JSON object of arguments
  help                  Show this help message
  exit, quit            Leave the console
`

// newConsoleCmd creates the console command.
func (a *App) newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Call tools interactively through the bridge",
		Long: `Start an interactive shell that invokes tools in-process. Calls go through
the same policy gate, request builder and dispatcher as the MCP server.

Examples:
  mcp-pangolin console -o pangolin-api.json -b https://api.example.com/v1 -k $KEY --read-only
  mcp> call orgs {"limit": 5}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			b, err := newBridge(cfg, logger, nil)
			if err != nil {
				return err
			}
			return a.runConsole(cmd.Context(), &console{bridge: b, out: a.stdout, errOut: a.stderr})
		},
	}
}

func (a *App) runConsole(ctx context.Context, c *console) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mcp> ",
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    c.completer(),
		Stdin:           a.stdin,
		Stdout:          a.stdout,
		Stderr:          a.stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if c.exec(ctx, line) {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mcp_pangolin_history")
}

// console executes shell lines against a bridge.
type console struct {
	bridge *openapi2mcp.Bridge
	out    io.Writer
	errOut io.Writer
}

func (c *console) completer() *readline.PrefixCompleter {
	names := c.bridge.Registry().Names()
	callItems := make([]readline.PrefixCompleterInterface, 0, len(names))
	schemaItems := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, name := range names {
		callItems = append(callItems, readline.PcItem(name))
		schemaItems = append(schemaItems, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("list"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
		readline.PcItem("call", callItems...),
		readline.PcItem("schema", schemaItems...),
	)
}

// exec runs one line and reports whether the console should stop.
func (c *console) exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "":
	case "exit", "quit":
		return true
	case "help":
		fmt.Fprint(c.out, consoleHelp)
	case "list":
		c.list()
	case "schema":
		c.schema(rest)
	case "call":
		c.call(ctx, rest)
	default:
		fmt.Fprintln(c.errOut, "[error] Unknown command. Type 'help' for available commands.")
	}
	return false
}

func (c *console) list() {
	policy := c.bridge.Policy()
	for _, t := range c.bridge.Registry().Tools() {
		marker := ""
		if !policy.Evaluate(t.Method).Allowed {
			marker = " (denied)"
		}
		fmt.Fprintf(c.out, "%-40s %-6s %s%s\n", t.Name, t.Method, t.Path, marker)
	}
}

func (c *console) schema(name string) {
	t, ok := c.bridge.Registry().Lookup(name)
	if !ok {
		fmt.Fprintf(c.errOut, "[error] No schema found for tool '%s'.\n", name)
		return
	}
	pretty, _ := json.MarshalIndent(t.InputSchema, "", "  ")
	fmt.Fprintf(c.out, "Schema for %s:\n%s\n", name, pretty)
	example, _ := json.Marshal(exampleArgs(t))
	fmt.Fprintf(c.out, "Example: call %s %s\n", name, example)
}

func (c *console) call(ctx context.Context, rest string) {
	name, raw, _ := strings.Cut(rest, " ")
	if name == "" {
		fmt.Fprintln(c.errOut, "Usage: call <tool> <json-args>")
		return
	}
	args := map[string]any{}
	if raw = strings.TrimSpace(raw); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			fmt.Fprintln(c.errOut, "Invalid JSON for args:", err)
			return
		}
	}

	out, err := c.bridge.Invoke(ctx, name, args)
	if err != nil {
		payload, _ := json.MarshalIndent(map[string]openapi2mcp.Failure{"failure": openapi2mcp.NewFailure(err)}, "", "  ")
		fmt.Fprintln(c.errOut, string(payload))
		return
	}
	fmt.Fprintln(c.out, out.Text())
	if out.Truncated {
		fmt.Fprintln(c.errOut, "[warn] response truncated")
	}
}
