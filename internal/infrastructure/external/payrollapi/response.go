package payrollapi

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/garyjia/payroll-preview/internal/application/port"
	"github.com/garyjia/payroll-preview/internal/domain/entity"
)

// NormalizeListResponse accepts every preview response shape the backend
// produces and returns the rows with their total:
//
//	{"ok": true, "data": {"users": [...], "total": n}}
//	{"ok": true, "data": [...]}
//	[...]
//
// When no integer total is given, the row count is used.
func NormalizeListResponse(raw []byte) (*port.PreviewPage, error) {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &entity.TransportError{Op: "load preview", Message: "invalid JSON response", Err: err}
	}

	var list []interface{}
	var total interface{}

	switch v := decoded.(type) {
	case []interface{}:
		list = v
	case map[string]interface{}:
		if err := checkOK(v, "load preview"); err != nil {
			return nil, err
		}
		total = v["total"]
		switch data := v["data"].(type) {
		case []interface{}:
			list = data
		case map[string]interface{}:
			users, ok := data["users"].([]interface{})
			if !ok {
				return nil, unexpectedShape("load preview", "data has no users list")
			}
			list = users
			if t, ok := data["total"]; ok {
				total = t
			}
		case nil:
			users, ok := v["users"].([]interface{})
			if !ok {
				return nil, unexpectedShape("load preview", "no data or users key")
			}
			list = users
		default:
			return nil, unexpectedShape("load preview", fmt.Sprintf("data is %T", data))
		}
	default:
		return nil, unexpectedShape("load preview", fmt.Sprintf("top level is %T", decoded))
	}

	// rows that are not objects or have no identity cannot be merged or addressed
	items := make([]entity.EmployeeRecord, 0, len(list))
	for _, el := range list {
		m, ok := el.(map[string]interface{})
		if !ok {
			continue
		}
		if record := entity.EmployeeRecord(m); record.ID() != "" {
			items = append(items, record)
		}
	}

	n, ok := explicitInt(total)
	if !ok {
		n = len(items)
	}

	return &port.PreviewPage{Items: items, Total: n}, nil
}

// NormalizeDetailResponse unwraps a full-detail response that may arrive as
// {"ok": true, "data": {...}} or as the bare record
func NormalizeDetailResponse(raw []byte) (entity.EmployeeRecord, error) {
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &entity.TransportError{Op: "load full detail", Message: "invalid JSON response", Err: err}
	}
	if decoded == nil {
		return nil, unexpectedShape("load full detail", "null body")
	}

	if err := checkOK(decoded, "load full detail"); err != nil {
		return nil, err
	}

	if data, ok := decoded["data"].(map[string]interface{}); ok && isEnvelope(decoded) {
		return entity.EmployeeRecord(data), nil
	}
	return entity.EmployeeRecord(decoded), nil
}

// isEnvelope tells a {ok, data} wrapper apart from a record that happens to
// have a data field
func isEnvelope(m map[string]interface{}) bool {
	if _, ok := m["ok"]; ok {
		return true
	}
	return entity.EmployeeRecord(m).ID() == ""
}

func checkOK(m map[string]interface{}, op string) error {
	ok, present := m["ok"].(bool)
	if !present || ok {
		return nil
	}
	msg, _ := m["message"].(string)
	if msg == "" {
		msg = "request was not successful"
	}
	return &entity.TransportError{Op: op, Message: msg}
}

func unexpectedShape(op, detail string) error {
	return &entity.TransportError{Op: op, Message: "unexpected response shape: " + detail}
}

// explicitInt accepts only non-negative JSON numbers with no fractional part
// that fit in an int
func explicitInt(v interface{}) (int, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < 0 {
		return 0, false
	}
	if f >= float64(math.MaxInt) {
		return 0, false
	}
	return int(f), true
}
