// Package container provides dependency injection and lifecycle management
// for the payroll preview server.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
type Config struct {
	// PayrollAPI is the backend the previews are read from
	PayrollAPI PayrollAPIConfig

	// Cache configuration
	Cache CacheConfig

	// Export configuration
	Export ExportConfig

	// Server configuration
	Server ServerConfig
}

// PayrollAPIConfig holds backend API settings.
type PayrollAPIConfig struct {
	// BaseURL of the payroll backend, without trailing slash
	BaseURL string

	// Token is sent as a bearer token
	Token string

	// Timeout for API calls
	Timeout time.Duration
}

// CacheConfig holds month cache settings.
type CacheConfig struct {
	// TTL is the freshness window of a month entry
	TTL time.Duration
}

// ExportConfig holds spreadsheet export settings.
type ExportConfig struct {
	// OutputDir receives the generated workbooks; empty disables export
	OutputDir string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PayrollAPI: PayrollAPIConfig{
			Timeout: 60 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Export: ExportConfig{
			OutputDir: "exports",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.PayrollAPI.BaseURL == "" {
		return fmt.Errorf("payroll_api.base_url is required")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	return nil
}
