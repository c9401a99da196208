package port

import (
	"context"

	"github.com/garyjia/payroll-preview/internal/domain/entity"
)

// PreviewPage is one month of preview rows after response-shape normalisation
type PreviewPage struct {
	Items []entity.EmployeeRecord
	Total int
}

// PayrollAPI defines the backend payroll preview operations.
// Implementations map HTTP 401 to entity.ErrAuthRequired, 403 to
// entity.ErrForbidden and every other failure to *entity.TransportError.
type PayrollAPI interface {
	// LoadPreview fetches the summary rows of every employee in month
	LoadPreview(ctx context.Context, month string, forceRefresh bool) (*PreviewPage, error)

	// LoadFullDetail fetches the full breakdown of one employee in month
	LoadFullDetail(ctx context.Context, month, employeeID string) (entity.EmployeeRecord, error)
}
