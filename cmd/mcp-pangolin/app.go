package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcp-pangolin/mcp-pangolin/internal/config"
	"github.com/mcp-pangolin/mcp-pangolin/internal/logging"
	"github.com/mcp-pangolin/mcp-pangolin/pkg/openapi2mcp"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func userAgent() string {
	return openapi2mcp.DefaultUserAgent + "/" + Version
}

// globalOptions holds the flags shared by every command.
type globalOptions struct {
	configPath  string
	openAPIFile string
	openAPIJSON string
	apiKey      string
	baseURL     string
	readOnly    bool
	logLevel    string
	logFormat   string
	tags        []string
	includePath string
	excludePath string
}

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	opts   globalOptions
	stdin  io.ReadCloser
	stdout io.Writer
	stderr io.Writer
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	serve := &serveOptions{}
	app.root = &cobra.Command{
		Use:   "mcp-pangolin",
		Short: "Expose a REST API described by OpenAPI as MCP tools",
		Long: `mcp-pangolin reads an OpenAPI document, turns every supported operation
into an MCP tool and forwards tool calls to the REST API with a bearer key.

With --read-only only GET tools reach the API; write tools stay listed and
report a policy denial when called.

Running without a subcommand is the same as "mcp-pangolin serve".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runServe(cmd, serve)
		},
	}
	bindServeFlags(app.root, serve)

	pf := app.root.PersistentFlags()
	pf.StringVarP(&app.opts.configPath, "config", "c", "", "Path to a TOML configuration file")
	pf.StringVarP(&app.opts.openAPIFile, "openapi", "o", "", "Path to the OpenAPI JSON document (env PANGOLIN_OPENAPI_FILE)")
	pf.StringVar(&app.opts.openAPIJSON, "openapi-json", "", "Inline OpenAPI JSON document (env PANGOLIN_OPENAPI_JSON)")
	pf.StringVarP(&app.opts.apiKey, "api-key", "k", "", "API key sent as a bearer token (env PANGOLIN_API_KEY)")
	pf.StringVarP(&app.opts.baseURL, "base-url", "b", "", "Base URL of the REST API (env PANGOLIN_BASE_URL)")
	pf.BoolVarP(&app.opts.readOnly, "read-only", "r", false, "Only allow GET tools to reach the API (env PANGOLIN_READ_ONLY)")
	pf.StringVar(&app.opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&app.opts.logFormat, "log-format", "", "Log format: console or json")
	pf.StringSliceVar(&app.opts.tags, "tag", nil, "Only expose operations with one of these tags (repeatable)")
	pf.StringVar(&app.opts.includePath, "include-path", "", "Only expose operations whose path matches this regex")
	pf.StringVar(&app.opts.excludePath, "exclude-path", "", "Hide operations whose path matches this regex")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newServeCmd(),
		app.newToolsCmd(),
		app.newDocsCmd(),
		app.newValidateCmd(),
		app.newConsoleCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithInput sets the reader used by the console command.
func (a *App) WithInput(stdin io.ReadCloser) *App {
	a.stdin = stdin
	a.root.SetIn(stdin)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// loadConfig layers defaults, the TOML file, the environment and finally the
// flags the user actually set.
func (a *App) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFromFile(a.opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("openapi") {
		cfg.OpenAPI.File = a.opts.openAPIFile
		if !flags.Changed("openapi-json") {
			cfg.OpenAPI.JSON = ""
		}
	}
	if flags.Changed("openapi-json") {
		cfg.OpenAPI.JSON = a.opts.openAPIJSON
		if !flags.Changed("openapi") {
			cfg.OpenAPI.File = ""
		}
	}
	if flags.Changed("api-key") {
		cfg.API.APIKey = a.opts.apiKey
	}
	if flags.Changed("base-url") {
		cfg.API.BaseURL = a.opts.baseURL
	}
	if flags.Changed("read-only") {
		cfg.API.ReadOnly = a.opts.readOnly
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.opts.logFormat
	}
	if flags.Changed("tag") {
		cfg.Filter.Tags = a.opts.tags
	}
	if flags.Changed("include-path") {
		cfg.Filter.IncludePath = a.opts.includePath
	}
	if flags.Changed("exclude-path") {
		cfg.Filter.ExcludePath = a.opts.excludePath
	}
	return cfg, nil
}

// loadRegistry loads the document and synthesizes the tool registry.
func loadRegistry(cfg *config.Config, logger *zap.Logger) (*openapi3.T, *openapi2mcp.Registry, error) {
	genOpts, err := cfg.ToolGenOptions(logger)
	if err != nil {
		return nil, nil, err
	}
	doc, err := openapi2mcp.LoadSpec(cfg.SpecSource())
	if err != nil {
		return nil, nil, err
	}
	reg, err := openapi2mcp.Synthesize(doc, genOpts)
	if err != nil {
		return nil, nil, err
	}
	return doc, reg, nil
}

// offlineSetup prepares commands that only read the document.
func (a *App) offlineSetup(cmd *cobra.Command) (*config.Config, *zap.Logger, *openapi3.T, *openapi2mcp.Registry, error) {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := cfg.ValidateSource(); err != nil {
		return nil, nil, nil, nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	doc, reg, err := loadRegistry(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, nil, err
	}
	return cfg, logger, doc, reg, nil
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "mcp-pangolin version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
