package entity

import "time"

// CacheEntry is the cached preview snapshot of one payroll month.
// The entry for a month is created once and then updated in place for the
// rest of the session.
type CacheEntry struct {
	Employees      []EmployeeRecord
	CapturedAt     time.Time
	FullyLoadedIDs map[string]struct{}
	Total          int
}

// IsFullyLoaded reports whether full detail has been fetched for the employee
func (e *CacheEntry) IsFullyLoaded(employeeID string) bool {
	if e == nil {
		return false
	}
	_, ok := e.FullyLoadedIDs[employeeID]
	return ok
}

// FindEmployee returns the index of the employee in Employees, or -1
func (e *CacheEntry) FindEmployee(employeeID string) int {
	if e == nil {
		return -1
	}
	return IndexOfEmployee(e.Employees, employeeID)
}

// IndexOfEmployee returns the index of the record whose identity is employeeID, or -1
func IndexOfEmployee(records []EmployeeRecord, employeeID string) int {
	for i, r := range records {
		if r.ID() == employeeID {
			return i
		}
	}
	return -1
}

// PreviewResult is what a preview load hands back to its caller
type PreviewResult struct {
	Employees []EmployeeRecord `json:"data"`
	Total     int              `json:"total"`
	FromCache bool             `json:"fromCache"`
}
