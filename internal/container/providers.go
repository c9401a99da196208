package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/payroll-preview/internal/application/port"
	"github.com/garyjia/payroll-preview/internal/application/service"
	"github.com/garyjia/payroll-preview/internal/infrastructure/cache"
	"github.com/garyjia/payroll-preview/internal/infrastructure/export"
	"github.com/garyjia/payroll-preview/internal/infrastructure/external/payrollapi"
	httpServer "github.com/garyjia/payroll-preview/internal/interfaces/http"
	"github.com/garyjia/payroll-preview/pkg/utils"
)

// ProvidePayrollAPI creates the backend API client.
func ProvidePayrollAPI(cfg *PayrollAPIConfig, logger *zap.Logger) (port.PayrollAPI, error) {
	if cfg == nil {
		return nil, fmt.Errorf("payroll api config is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("payroll api base url is required")
	}

	client := payrollapi.NewClient(payrollapi.Config{
		BaseURL: cfg.BaseURL,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	}, logger)

	logger.Info("Payroll API client created", zap.String("base_url", cfg.BaseURL))
	return client, nil
}

// ProvideMonthCache creates the session month cache.
func ProvideMonthCache(cfg *CacheConfig) *cache.MonthCache {
	return cache.NewMonthCache(cache.Config{TTL: cfg.TTL})
}

// ProvidePreviewService wires the preview service over the API and cache.
func ProvidePreviewService(api port.PayrollAPI, monthCache *cache.MonthCache, logger *zap.Logger) (service.PreviewService, error) {
	if api == nil {
		return nil, fmt.Errorf("payroll api is required")
	}
	if monthCache == nil {
		return nil, fmt.Errorf("month cache is required")
	}
	return service.NewPreviewService(api, monthCache, utils.NewKeyValueLogger(logger.Named("preview"))), nil
}

// ProvideExporter creates the spreadsheet exporter, or nil when export is disabled.
func ProvideExporter(cfg *ExportConfig, logger *zap.Logger) port.PreviewExporter {
	if cfg == nil || cfg.OutputDir == "" {
		logger.Info("Spreadsheet export disabled")
		return nil
	}
	return export.NewExcelExporter(cfg.OutputDir, logger.Named("export"))
}

// ProvideServer creates the HTTP server.
func ProvideServer(cfg *ServerConfig, svc service.PreviewService, exporter port.PreviewExporter, logger *zap.Logger) *httpServer.Server {
	return httpServer.NewServer(httpServer.ServerConfig{
		Host:         cfg.Host,
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, svc, exporter, utils.NewKeyValueLogger(logger.Named("http")))
}
