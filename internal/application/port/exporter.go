package port

import (
	"context"

	"github.com/garyjia/payroll-preview/internal/domain/entity"
)

// PreviewExporter writes a month preview to a file
type PreviewExporter interface {
	// Export writes employees of month and returns the path written
	Export(ctx context.Context, month string, employees []entity.EmployeeRecord) (string, error)
}
