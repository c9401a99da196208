package config

import (
	"github.com/garyjia/payroll-preview/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This bridges the file-based config loaded by viper and the container.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		PayrollAPI: container.PayrollAPIConfig{
			BaseURL: c.PayrollAPI.BaseURL,
			Token:   c.PayrollAPI.Token,
			Timeout: c.PayrollAPI.Timeout,
		},
		Cache: container.CacheConfig{
			TTL: c.Cache.TTL,
		},
		Export: container.ExportConfig{
			OutputDir: c.Export.OutputDir,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
	}
}
