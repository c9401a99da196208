package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/payroll-preview/internal/domain/entity"
)

func TestMerge_Idempotent(t *testing.T) {
	records := []entity.EmployeeRecord{
		{"userId": float64(1), "name": "A"},
		{"userId": float64(2), "tripDetails": trips(1), "trip_details": trips(1)},
		{
			"user_id":             "3",
			"baseSalary":          float64(32000),
			"mealAllowanceDays":   map[string]interface{}{"1": true},
			"meal_allowance_days": map[string]interface{}{"1": true},
			"leaveDetails":        []interface{}{},
		},
	}

	for _, rec := range records {
		assert.Equal(t, rec, Merge(rec, rec))
	}
}

func TestMerge_FresherWins(t *testing.T) {
	target := entity.EmployeeRecord{"userId": float64(1), "tripDetails": trips(1)}
	source := entity.EmployeeRecord{"userId": float64(1), "tripDetails": trips(7), "trip_details": trips(7)}

	merged := Merge(target, source)

	assert.Equal(t, trips(1), merged["tripDetails"])
	assert.Equal(t, trips(1), merged["trip_details"])
}

func TestMerge_FillsGaps(t *testing.T) {
	target := entity.EmployeeRecord{"userId": float64(1), "name": "A", "baseSalary": float64(40000)}
	source := entity.EmployeeRecord{
		"userId":            float64(1),
		"baseSalary":        float64(38000),
		"trip_details":      trips(1),
		"yearEndBonusItems": []interface{}{map[string]interface{}{"amount": float64(1000)}},
	}

	merged := Merge(target, source)

	assert.Equal(t, trips(1), merged["tripDetails"])
	assert.Equal(t, trips(1), merged["trip_details"])
	assert.Equal(t, source["yearEndBonusItems"], merged["year_end_bonus_items"])
	assert.Equal(t, float64(40000), merged["baseSalary"], "non-detail fields come from target")
	assert.Empty(t, Inconsistencies(merged, entity.DetailFieldPairs))
}

func TestMerge_EmptyTargetFieldIsAGap(t *testing.T) {
	target := entity.EmployeeRecord{"userId": float64(1), "tripDetails": []interface{}{}, "trip_details": []interface{}{}}
	source := entity.EmployeeRecord{"userId": float64(1), "tripDetails": trips(2)}

	merged := Merge(target, source)

	assert.Equal(t, trips(2), merged["tripDetails"])
	assert.Equal(t, trips(2), merged["trip_details"])
}

func TestMerge_NoFabrication(t *testing.T) {
	merged := Merge(entity.EmployeeRecord{"userId": float64(1)}, entity.EmployeeRecord{"userId": float64(1), "name": "B"})

	assert.Equal(t, entity.EmployeeRecord{"userId": float64(1)}, merged)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	target := entity.EmployeeRecord{"userId": float64(1)}
	source := entity.EmployeeRecord{"userId": float64(1), "tripDetails": trips(1)}

	merged := Merge(target, source)
	merged["tripDetails"].([]interface{})[0].(map[string]interface{})["day"] = float64(42)

	assert.Equal(t, trips(1), source["tripDetails"])
	assert.Equal(t, trips(1), merged["trip_details"])
	_, touched := target["tripDetails"]
	assert.False(t, touched)
}

func TestMerge_NilInputs(t *testing.T) {
	assert.Equal(t, entity.EmployeeRecord{}, Merge(nil, nil))
	assert.Equal(t, entity.EmployeeRecord{"tripDetails": trips(1), "trip_details": trips(1)},
		Merge(nil, entity.EmployeeRecord{"tripDetails": trips(1)}))
}
