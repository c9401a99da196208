package entity

import (
	"reflect"

	"github.com/mohae/deepcopy"
	"github.com/spf13/cast"
)

// EmployeeRecord is one employee row of a payroll preview as decoded from JSON.
// Arrays decode as []interface{} and objects as map[string]interface{}.
type EmployeeRecord map[string]interface{}

// Identity and bookkeeping keys on an EmployeeRecord
const (
	FieldUserID      = "userId"
	FieldUserIDAlias = "user_id"
	FieldName        = "name"
	FieldMonth       = "month"

	FlagFullDataLoaded   = "_fullDataLoaded"
	FlagFromCache        = "_fromCache"
	FlagNeedsCalculation = "_needsCalculation"
)

// FieldKind describes what counts as a populated value for a detail field
type FieldKind int

const (
	// KindArray is populated only by a non-empty array
	KindArray FieldKind = iota
	// KindObjectOrArray is populated by a non-empty array or an object with at least one key
	KindObjectOrArray
)

// FieldPair names one detail field under both of the spellings the backend emits
type FieldPair struct {
	Camel      string
	Underscore string
	Kind       FieldKind
}

// DetailFieldPairs is the catalogue of per-employee detail fields.
// Add new detail fields here; normalizer and merger iterate it generically.
var DetailFieldPairs = []FieldPair{
	{Camel: "tripDetails", Underscore: "trip_details", Kind: KindArray},
	{Camel: "leaveDetails", Underscore: "leave_details", Kind: KindArray},
	{Camel: "dailyOvertime", Underscore: "daily_overtime", Kind: KindArray},
	{Camel: "deductionItems", Underscore: "deduction_items", Kind: KindArray},
	{Camel: "regularAllowanceItems", Underscore: "regular_allowance_items", Kind: KindArray},
	{Camel: "irregularAllowanceItems", Underscore: "irregular_allowance_items", Kind: KindArray},
	{Camel: "regularBonusItems", Underscore: "regular_bonus_items", Kind: KindArray},
	{Camel: "yearEndBonusItems", Underscore: "year_end_bonus_items", Kind: KindArray},
	{Camel: "expiredCompensationDetails", Underscore: "expired_compensation_details", Kind: KindObjectOrArray},
	{Camel: "mealAllowanceDays", Underscore: "meal_allowance_days", Kind: KindObjectOrArray},
}

// IsPopulated reports whether v is a non-empty value of the given kind
func (k FieldKind) IsPopulated(v interface{}) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Map:
		return k == KindObjectOrArray && rv.Len() > 0
	}
	return false
}

// Value returns the populated value of the pair, preferring the camel spelling.
// ok is false when neither spelling is populated.
func (p FieldPair) Value(r EmployeeRecord) (interface{}, bool) {
	if v, found := r[p.Camel]; found && p.Kind.IsPopulated(v) {
		return v, true
	}
	if v, found := r[p.Underscore]; found && p.Kind.IsPopulated(v) {
		return v, true
	}
	return nil, false
}

// ID returns the canonical string form of the record's identity, or "" when absent
func (r EmployeeRecord) ID() string {
	for _, key := range []string{FieldUserID, FieldUserIDAlias} {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		if id := CanonicalID(v); id != "" {
			return id
		}
	}
	return ""
}

// CanonicalID converts an id value (JSON number or string) to its comparison key
func CanonicalID(v interface{}) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

// HasAnyDetail reports whether at least one detail field is populated
func (r EmployeeRecord) HasAnyDetail() bool {
	for _, p := range DetailFieldPairs {
		if _, ok := p.Value(r); ok {
			return true
		}
	}
	return false
}

// Bool reads a boolean flag; anything but a true bool is false
func (r EmployeeRecord) Bool(key string) bool {
	b, ok := r[key].(bool)
	return ok && b
}

// Clone returns a deep copy of the record
func (r EmployeeRecord) Clone() EmployeeRecord {
	if r == nil {
		return nil
	}
	return EmployeeRecord(deepcopy.Copy(map[string]interface{}(r)).(map[string]interface{}))
}

// ShallowCopy copies the top-level keys; nested values are shared
func (r EmployeeRecord) ShallowCopy() EmployeeRecord {
	out := make(EmployeeRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneRecords deep-copies a list of records
func CloneRecords(records []EmployeeRecord) []EmployeeRecord {
	if records == nil {
		return nil
	}
	out := make([]EmployeeRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
