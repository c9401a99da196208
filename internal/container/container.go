package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/payroll-preview/internal/application/port"
	"github.com/garyjia/payroll-preview/internal/application/service"
	"github.com/garyjia/payroll-preview/internal/infrastructure/cache"
	httpServer "github.com/garyjia/payroll-preview/internal/interfaces/http"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure
	payrollAPI port.PayrollAPI
	monthCache *cache.MonthCache
	exporter   port.PreviewExporter

	// Application
	previewService service.PreviewService

	// Interfaces
	server *httpServer.Server

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Payroll API client and month cache
// 2. Preview service and exporter
// 3. HTTP server (not listening until Server().Start is called)
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	api, err := ProvidePayrollAPI(&c.config.PayrollAPI, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize payroll api: %w", err)
	}
	c.payrollAPI = api
	c.monthCache = ProvideMonthCache(&c.config.Cache)
	c.logger.Info("Infrastructure initialized", zap.Duration("cache_ttl", c.monthCache.TTL()))

	svc, err := ProvidePreviewService(c.payrollAPI, c.monthCache, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.previewService = svc
	c.exporter = ProvideExporter(&c.config.Export, c.logger)
	c.logger.Info("Application services initialized")

	c.server = ProvideServer(&c.config.Server, c.previewService, c.exporter, c.logger)

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close stops the HTTP server and releases the container.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	if c.cancel != nil {
		c.cancel()
	}

	var closeErr error
	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			c.logger.Error("Failed to stop HTTP server", zap.Error(err))
			closeErr = fmt.Errorf("stop server: %w", err)
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if closeErr != nil {
		return closeErr
	}
	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	check := func(name string, ok bool, message string) {
		if ok {
			status.Components[name] = ComponentHealth{Healthy: true, Message: message}
			return
		}
		status.Components[name] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	check("payroll_api", c.payrollAPI != nil, c.config.PayrollAPI.BaseURL)
	check("month_cache", c.monthCache != nil, "")
	check("preview_service", c.previewService != nil, "")
	check("http_server", c.server != nil, "")

	if c.exporter == nil {
		status.Components["export"] = ComponentHealth{Healthy: true, Message: "disabled"}
	} else {
		status.Components["export"] = ComponentHealth{Healthy: true, Message: c.config.Export.OutputDir}
	}

	return status
}

// PayrollAPI returns the backend client.
func (c *Container) PayrollAPI() port.PayrollAPI {
	return c.payrollAPI
}

// PreviewService returns the preview service.
func (c *Container) PreviewService() service.PreviewService {
	return c.previewService
}

// Exporter returns the spreadsheet exporter; nil when export is disabled.
func (c *Container) Exporter() port.PreviewExporter {
	return c.exporter
}

// Server returns the HTTP server.
func (c *Container) Server() *httpServer.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
