package payroll

import (
	"github.com/mohae/deepcopy"

	"github.com/garyjia/payroll-preview/internal/domain/entity"
)

// Merge combines a fresher record (target) with a cached one (source).
//
// The result starts as a shallow copy of target, so every field target carries
// survives as is. For each detail pair that target leaves empty, source's
// populated value is copied in under both spellings. Where both carry a value,
// target's is kept. Neither input is modified.
func Merge(target, source entity.EmployeeRecord) entity.EmployeeRecord {
	merged := make(entity.EmployeeRecord, len(target))
	for k, v := range target {
		merged[k] = v
	}

	for _, p := range entity.DetailFieldPairs {
		if _, ok := p.Value(target); ok {
			continue
		}
		value, ok := p.Value(source)
		if !ok {
			continue
		}
		merged[p.Camel] = deepcopy.Copy(value)
		merged[p.Underscore] = deepcopy.Copy(value)
	}

	return Reconcile(merged, entity.DetailFieldPairs)
}
