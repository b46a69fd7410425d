package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			TimeoutSeconds: 60,
			MaxResponseMB:  50,
		},
		Server: ServerConfig{
			Name:      "mcp-pangolin",
			Transport: TransportStdio,
			Addr:      ":8080",
			BasePath:  "/mcp",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Filter: FilterConfig{
			Tags: []string{},
		},
	}
}
