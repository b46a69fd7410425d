package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcp-pangolin/mcp-pangolin/internal/config"
	"github.com/mcp-pangolin/mcp-pangolin/internal/logging"
	"github.com/mcp-pangolin/mcp-pangolin/internal/metrics"
	"github.com/mcp-pangolin/mcp-pangolin/pkg/openapi2mcp"
)

const shutdownTimeout = 10 * time.Second

// serveOptions holds options for the serve command.
type serveOptions struct {
	transport  string
	addr       string
	basePath   string
	timeout    int
	hideDenied bool
}

func bindServeFlags(cmd *cobra.Command, opts *serveOptions) {
	cmd.Flags().StringVar(&opts.transport, "transport", "", "MCP transport: stdio or http")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address for the http transport (env PANGOLIN_HTTP_ADDR)")
	cmd.Flags().StringVar(&opts.basePath, "base-path", "", "MCP endpoint path for the http transport")
	cmd.Flags().IntVar(&opts.timeout, "timeout", 0, "Per-request timeout in seconds (env PANGOLIN_TIMEOUT)")
	cmd.Flags().BoolVar(&opts.hideDenied, "hide-denied", false, "Leave tools denied by the read-only policy out of the tool listing")
}

// newServeCmd creates the serve command.
func (a *App) newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API as MCP tools over stdio or HTTP",
		Long: `Serve every supported operation of the OpenAPI document as an MCP tool.

Examples:
  # stdio, for desktop assistants
  mcp-pangolin serve -o pangolin-api.json -b https://api.example.com/v1 -k $KEY --read-only

  # streamable HTTP with Prometheus metrics on /metrics
  mcp-pangolin serve -c pangolin.toml --transport http --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd, opts)
		},
	}
	bindServeFlags(cmd, opts)

	return cmd
}

func (a *App) runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Server.Transport = opts.transport
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = opts.addr
	}
	if flags.Changed("base-path") {
		cfg.Server.BasePath = opts.basePath
	}
	if flags.Changed("timeout") {
		cfg.API.TimeoutSeconds = opts.timeout
	}
	if flags.Changed("hide-denied") {
		cfg.Server.HideDenied = opts.hideDenied
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	collector := metrics.NewCollector(metrics.DefaultNamespace, logger)
	b, err := newBridge(cfg, logger, collector)
	if err != nil {
		return err
	}
	collector.SetRegistryTools(methodLabels(b.Registry()))

	srv := openapi2mcp.NewServer(b, openapi2mcp.ServerOptions{
		Name:       cfg.Server.Name,
		Version:    Version,
		HideDenied: cfg.Server.HideDenied,
	})
	logger.Info("MCP server starting",
		zap.String("transport", cfg.Server.Transport),
		zap.String("mode", b.Policy().Mode()),
		zap.Int("tools", b.Registry().Len()),
		zap.Int("permitted", b.Registry().CountAllowed(b.Policy())),
	)

	if cfg.Server.Transport == config.TransportHTTP {
		var extra map[string]http.Handler
		if cfg.Metrics.Enabled {
			extra = map[string]http.Handler{cfg.Metrics.Path: collector.Handler()}
		}
		handler := openapi2mcp.NewHTTPHandler(srv, cfg.Server.BasePath, extra)
		return serveHTTP(cmd.Context(), cfg, handler, logger)
	}
	return openapi2mcp.ServeStdio(srv)
}

// newBridge loads the document and binds the registry to the remote API.
func newBridge(cfg *config.Config, logger *zap.Logger, recorder openapi2mcp.MetricsRecorder) (*openapi2mcp.Bridge, error) {
	_, reg, err := loadRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	opts := []openapi2mcp.Option{openapi2mcp.WithLogger(logger)}
	if recorder != nil {
		opts = append(opts, openapi2mcp.WithMetrics(recorder))
	}
	return openapi2mcp.New(reg, cfg.Bridge(userAgent()), opts...)
}

func methodLabels(reg *openapi2mcp.Registry) map[string]int {
	out := map[string]int{}
	for m, n := range reg.MethodCounts() {
		out[m.String()] = n
	}
	return out
}

// serveHTTP runs handler until ctx is cancelled, then shuts down gracefully.
func serveHTTP(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger) error {
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           withHealth(handler),
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting",
			zap.String("address", server.Addr),
			zap.String("url", openapi2mcp.GetHTTPURL(server.Addr, cfg.Server.BasePath)),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server failed: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

// withHealth answers /healthz in front of handler.
func withHealth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, "ok")
			return
		}
		next.ServeHTTP(w, r)
	})
}
