package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/mcp-pangolin/mcp-pangolin/pkg/openapi2mcp"
)

// Config represents the application configuration.
type Config struct {
	API     APIConfig     `toml:"api"`
	OpenAPI OpenAPIConfig `toml:"openapi"`
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
	Metrics MetricsConfig `toml:"metrics"`
	Filter  FilterConfig  `toml:"filter"`
}

// APIConfig describes the remote REST API.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	ReadOnly       bool   `toml:"read_only"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxResponseMB  int    `toml:"max_response_mb"`
}

// OpenAPIConfig names the document source. Exactly one field must be set.
type OpenAPIConfig struct {
	File string `toml:"file"`
	JSON string `toml:"json"`
}

// ServerConfig contains MCP server settings.
type ServerConfig struct {
	Name       string `toml:"name"`
	Transport  string `toml:"transport"`
	Addr       string `toml:"addr"`
	BasePath   string `toml:"base_path"`
	HideDenied bool   `toml:"hide_denied"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig controls the Prometheus endpoint served in HTTP mode.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// FilterConfig selects which operations become tools.
type FilterConfig struct {
	Tags        []string `toml:"tags"`
	IncludePath string   `toml:"include_path"`
	ExcludePath string   `toml:"exclude_path"`
}

// Transports understood by the serve command.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Timeout returns the per-request HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// MaxResponseBytes returns the response body cap in bytes.
func (c *Config) MaxResponseBytes() int64 {
	return int64(c.API.MaxResponseMB) << 20
}

// SpecSource returns the configured document source.
func (c *Config) SpecSource() openapi2mcp.SpecSource {
	return openapi2mcp.SpecSource{Path: c.OpenAPI.File, Inline: c.OpenAPI.JSON}
}

// Bridge returns the settings consumed by the bridge.
func (c *Config) Bridge(userAgent string) openapi2mcp.Config {
	return openapi2mcp.Config{
		BaseURL:          c.API.BaseURL,
		APIKey:           c.API.APIKey,
		ReadOnly:         c.API.ReadOnly,
		Timeout:          c.Timeout(),
		MaxResponseBytes: c.MaxResponseBytes(),
		UserAgent:        userAgent,
	}
}

// ToolGenOptions compiles the operation filters.
func (c *Config) ToolGenOptions(logger *zap.Logger) (*openapi2mcp.ToolGenOptions, error) {
	opts := &openapi2mcp.ToolGenOptions{TagFilter: c.Filter.Tags, Logger: logger}
	var err error
	if opts.IncludePath, err = compileFilter("include_path", c.Filter.IncludePath); err != nil {
		return nil, err
	}
	if opts.ExcludePath, err = compileFilter("exclude_path", c.Filter.ExcludePath); err != nil {
		return nil, err
	}
	return opts, nil
}

func compileFilter(name, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: filter %s: %v", openapi2mcp.ErrConfig, name, err)
	}
	return re, nil
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies PANGOLIN_* environment variable overrides to config.
func applyEnvOverrides(config *Config) error {
	if v := os.Getenv("PANGOLIN_API_KEY"); v != "" {
		config.API.APIKey = v
	}
	if v := os.Getenv("PANGOLIN_BASE_URL"); v != "" {
		config.API.BaseURL = v
	}
	if v := os.Getenv("PANGOLIN_READ_ONLY"); v != "" {
		b, err := ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: PANGOLIN_READ_ONLY: %v", openapi2mcp.ErrConfig, err)
		}
		config.API.ReadOnly = b
	}
	if v := os.Getenv("PANGOLIN_OPENAPI_FILE"); v != "" {
		config.OpenAPI.File = v
	}
	if v := os.Getenv("PANGOLIN_OPENAPI_JSON"); v != "" {
		config.OpenAPI.JSON = v
	}
	if v := os.Getenv("PANGOLIN_TIMEOUT"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PANGOLIN_TIMEOUT must be a number of seconds, got %q", openapi2mcp.ErrConfig, v)
		}
		config.API.TimeoutSeconds = secs
	}
	if v := os.Getenv("PANGOLIN_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("PANGOLIN_LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}
	if v := os.Getenv("PANGOLIN_HTTP_ADDR"); v != "" {
		config.Server.Addr = v
	}
	return nil
}

// ParseBool accepts 1/true/yes/on and 0/false/no/off, case-insensitively.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

// ValidateSource checks only the document source; offline commands need nothing else.
func (c *Config) ValidateSource() error {
	return c.SpecSource().Validate()
}

// Validate checks everything serving requires. It runs before the document is loaded.
func (c *Config) Validate() error {
	if err := c.ValidateSource(); err != nil {
		return err
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required (--base-url or PANGOLIN_BASE_URL)", openapi2mcp.ErrConfig)
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base URL %q must be absolute, e.g. https://pangolin.example.com/v1", openapi2mcp.ErrConfig, c.API.BaseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%w: base URL %q must not carry a query or fragment", openapi2mcp.ErrConfig, c.API.BaseURL)
	}
	if c.API.APIKey == "" {
		return fmt.Errorf("%w: API key is required (--api-key or PANGOLIN_API_KEY)", openapi2mcp.ErrConfig)
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %d", openapi2mcp.ErrConfig, c.API.TimeoutSeconds)
	}
	if c.API.MaxResponseMB <= 0 {
		return fmt.Errorf("%w: max_response_mb must be positive, got %d", openapi2mcp.ErrConfig, c.API.MaxResponseMB)
	}
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("%w: unknown transport %q (want %s or %s)", openapi2mcp.ErrConfig, c.Server.Transport, TransportStdio, TransportHTTP)
	}
	return nil
}
