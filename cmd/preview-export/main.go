package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/payroll-preview/internal/application/service"
	"github.com/garyjia/payroll-preview/internal/config"
	"github.com/garyjia/payroll-preview/internal/infrastructure/cache"
	"github.com/garyjia/payroll-preview/internal/infrastructure/export"
	"github.com/garyjia/payroll-preview/internal/infrastructure/external/payrollapi"
	"github.com/garyjia/payroll-preview/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file (empty for env only)")
	month := flag.String("month", time.Now().Format("2006-01"), "Month to export (YYYY-MM)")
	outDir := flag.String("out", "", "Output directory (defaults to export.output_dir)")
	refresh := flag.Bool("refresh", false, "Ask the backend to recompute the preview")
	flag.Parse()

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *outDir == "" {
		*outDir = cfg.Export.OutputDir
	}
	if *outDir == "" {
		fmt.Fprintf(os.Stderr, "ERROR: no output directory: pass -out or set export.output_dir\n")
		flag.Usage()
		os.Exit(2)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	client := payrollapi.NewClient(payrollapi.Config{
		BaseURL: cfg.PayrollAPI.BaseURL,
		Token:   cfg.PayrollAPI.Token,
		Timeout: cfg.PayrollAPI.Timeout,
	}, logger)
	monthCache := cache.NewMonthCache(cache.Config{TTL: cfg.Cache.TTL})
	svc := service.NewPreviewService(client, monthCache, utils.NewKeyValueLogger(logger))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PayrollAPI.Timeout+10*time.Second)
	defer cancel()

	result, err := svc.LoadPreview(ctx, *month, *refresh)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to load preview for %s: %v\n", *month, err)
		os.Exit(1)
	}

	path, err := export.NewExcelExporter(*outDir, logger).Export(ctx, *month, result.Employees)
	if err != nil {
		logger.Error("Export failed", zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("Exported %d of %d employees for %s to %s\n", len(result.Employees), result.Total, *month, path)
}
