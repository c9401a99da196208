// Package export writes payroll previews to spreadsheets.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/payroll-preview/internal/application/port"
	"github.com/garyjia/payroll-preview/internal/domain/entity"
	"github.com/garyjia/payroll-preview/internal/domain/payroll"
)

// SheetName is the worksheet the preview is written to
const SheetName = "Preview"

// ErrOutputDirRequired is returned when no output directory is configured
var ErrOutputDirRequired = errors.New("export output directory is required")

// ExcelExporter writes one row per employee with per-detail-field item counts
type ExcelExporter struct {
	outputDir string
	logger    *zap.Logger
}

var _ port.PreviewExporter = (*ExcelExporter)(nil)

// NewExcelExporter creates a new exporter writing under outputDir
func NewExcelExporter(outputDir string, logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{
		outputDir: outputDir,
		logger:    logger,
	}
}

// FileName returns the file name used for month
func FileName(month string) string {
	return fmt.Sprintf("payroll-preview-%s.xlsx", month)
}

// Export writes the employees of month and returns the file path
func (e *ExcelExporter) Export(ctx context.Context, month string, employees []entity.EmployeeRecord) (string, error) {
	if e.outputDir == "" {
		return "", ErrOutputDirRequired
	}
	if err := payroll.ValidateMonth(month); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return "", fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{"Employee ID", "Name", "Month", "Full Detail"}
	for _, p := range entity.DetailFieldPairs {
		header = append(header, p.Camel)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for i, rec := range employees {
		row := []interface{}{rec.ID(), stringField(rec, entity.FieldName), month, yesNo(rec.Bool(entity.FlagFullDataLoaded) || rec.HasAnyDetail())}
		for _, p := range entity.DetailFieldPairs {
			row = append(row, itemCount(rec, p))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "B", 18); err != nil {
		return "", fmt.Errorf("failed to set column width: %w", err)
	}

	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(e.outputDir, FileName(month))
	if err := f.SaveAs(path); err != nil {
		e.logger.Error("Failed to save preview export", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to save export: %w", err)
	}

	e.logger.Info("Preview exported",
		zap.String("month", month),
		zap.Int("employees", len(employees)),
		zap.String("path", path))
	return path, nil
}

func stringField(rec entity.EmployeeRecord, key string) string {
	if v, ok := rec[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// itemCount is the number of entries (or object keys) in the populated spelling
func itemCount(rec entity.EmployeeRecord, p entity.FieldPair) int {
	v, ok := p.Value(rec)
	if !ok {
		return 0
	}
	return reflect.ValueOf(v).Len()
}
