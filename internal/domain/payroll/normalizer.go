// Package payroll holds the record-level rules for payroll preview data:
// keeping dual-spelled detail fields in step and merging a cached record
// into a fresher one.
package payroll

import (
	"reflect"

	"github.com/mohae/deepcopy"

	"github.com/garyjia/payroll-preview/internal/domain/entity"
)

// Reconcile makes every pair in pairs agree across its two spellings.
// When exactly one spelling is populated its value is deep-copied into the
// other. When both are populated but differ, the camel spelling wins.
// Nothing is written for a pair where neither spelling is populated.
// The record is updated in place and returned.
func Reconcile(record entity.EmployeeRecord, pairs []entity.FieldPair) entity.EmployeeRecord {
	if record == nil {
		return nil
	}

	for _, p := range pairs {
		camel, camelOK := populated(record, p.Camel, p.Kind)
		under, underOK := populated(record, p.Underscore, p.Kind)

		switch {
		case camelOK && !underOK:
			record[p.Underscore] = deepcopy.Copy(camel)
		case underOK && !camelOK:
			record[p.Camel] = deepcopy.Copy(under)
		case camelOK && underOK && !reflect.DeepEqual(camel, under):
			record[p.Underscore] = deepcopy.Copy(camel)
		}
	}

	return record
}

// Inconsistencies lists the camel names of pairs whose spellings disagree
func Inconsistencies(record entity.EmployeeRecord, pairs []entity.FieldPair) []string {
	var bad []string
	for _, p := range pairs {
		camel, camelOK := populated(record, p.Camel, p.Kind)
		under, underOK := populated(record, p.Underscore, p.Kind)
		if camelOK != underOK || (camelOK && !reflect.DeepEqual(camel, under)) {
			bad = append(bad, p.Camel)
		}
	}
	return bad
}

func populated(record entity.EmployeeRecord, key string, kind entity.FieldKind) (interface{}, bool) {
	v, ok := record[key]
	if !ok || !kind.IsPopulated(v) {
		return nil, false
	}
	return v, true
}
