package payroll

import (
	"fmt"
	"time"

	"github.com/garyjia/payroll-preview/internal/domain/entity"
)

// MonthLayout is the layout of a month key, e.g. "2024-03"
const MonthLayout = "2006-01"

// ValidateMonth checks that month is a YYYY-MM key
func ValidateMonth(month string) error {
	if len(month) != len(MonthLayout) {
		return fmt.Errorf("%w: %q", entity.ErrInvalidMonth, month)
	}
	if _, err := time.Parse(MonthLayout, month); err != nil {
		return fmt.Errorf("%w: %q", entity.ErrInvalidMonth, month)
	}
	return nil
}
