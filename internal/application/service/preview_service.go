package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/garyjia/payroll-preview/internal/application/port"
	"github.com/garyjia/payroll-preview/internal/domain/entity"
	"github.com/garyjia/payroll-preview/internal/domain/payroll"
	"github.com/garyjia/payroll-preview/internal/infrastructure/cache"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// PreviewService serves the payroll preview list of a session: month
// summaries cached with a freshness window, plus lazily fetched full detail
// per employee that survives later summary refreshes.
type PreviewService interface {
	// LoadPreview returns the month's rows, from cache when fresh unless forceRefresh
	LoadPreview(ctx context.Context, month string, forceRefresh bool) (*entity.PreviewResult, error)

	// LoadEmployeeDetail fetches and applies full detail for an employee of month
	LoadEmployeeDetail(ctx context.Context, month, employeeID string) (entity.EmployeeRecord, error)

	// ApplyFullDetail merges fetched full detail into the displayed list and the month cache
	ApplyFullDetail(employeeID string, fullData entity.EmployeeRecord) bool

	HasFullDetail(employeeID string) bool
	IsLoadingDetails(employeeID string) bool
	DetailStatus(month, employeeID string) (DetailStatus, bool)

	Employees() []entity.EmployeeRecord
	Employee(employeeID string) (entity.EmployeeRecord, bool)
	Total() int
	SelectedMonth() string
	Loading() bool
	LastError() string
	Forbidden() bool
	ClearError()
}

// DetailFetchTimeout bounds a shared full-detail fetch
const DetailFetchTimeout = 60 * time.Second

// DetailStatus is the detail state of one employee row
type DetailStatus struct {
	HasFullDetail bool
	Loading       bool
}

type previewServiceImpl struct {
	api    port.PayrollAPI
	cache  *cache.MonthCache
	logger Logger

	// mu guards everything below and the cache; it is never held across I/O
	mu             sync.Mutex
	employees      []entity.EmployeeRecord
	total          int
	selectedMonth  string
	inFlight       int
	lastError      string
	forbidden      bool
	loadingDetails map[string]struct{} // keyed like detailGroup: month/id

	detailGroup singleflight.Group
}

// NewPreviewService creates a new PreviewService over a session-scoped cache
func NewPreviewService(api port.PayrollAPI, monthCache *cache.MonthCache, logger Logger) PreviewService {
	return &previewServiceImpl{
		api:            api,
		cache:          monthCache,
		logger:         logger,
		loadingDetails: make(map[string]struct{}),
	}
}

// LoadPreview implements the cache-or-fetch flow for one month
func (s *previewServiceImpl) LoadPreview(ctx context.Context, month string, forceRefresh bool) (*entity.PreviewResult, error) {
	if err := payroll.ValidateMonth(month); err != nil {
		return nil, err
	}

	s.mu.Lock()
	entry := s.cache.Get(month)
	if !forceRefresh && s.cache.IsFresh(entry) {
		s.employees = entity.CloneRecords(entry.Employees)
		s.total = entry.Total
		s.selectedMonth = month
		result := &entity.PreviewResult{
			Employees: entity.CloneRecords(entry.Employees),
			Total:     entry.Total,
			FromCache: true,
		}
		s.mu.Unlock()

		s.logger.Info("Preview served from cache",
			"month", month,
			"employees", len(result.Employees))
		return result, nil
	}

	seq := s.cache.NextSeq(month)
	s.inFlight++
	s.mu.Unlock()

	s.logger.Info("Fetching preview",
		"month", month,
		"force_refresh", forceRefresh,
		"seq", seq)

	page, err := s.api.LoadPreview(ctx, month, forceRefresh)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--

	if !s.cache.IsLatest(month, seq) {
		s.logger.Info("Discarding superseded preview response",
			"month", month,
			"seq", seq)
		return nil, entity.ErrSuperseded
	}

	if err != nil {
		s.recordError(err)
		s.logger.Error("Failed to load preview",
			"month", month,
			"error", err)
		return nil, fmt.Errorf("load preview %s: %w", month, err)
	}

	// The entry is re-read here: it is updated in place, so markers added by
	// ApplyFullDetail while the fetch was in flight are visible.
	entry = s.cache.Get(month)
	items := s.mergeFullyLoaded(page.Items, entry)

	stored := s.cache.Put(month, items, page.Total, entry)
	s.employees = entity.CloneRecords(stored.Employees)
	s.total = stored.Total
	s.selectedMonth = month
	s.lastError = ""
	s.forbidden = false

	s.logger.Info("Preview loaded",
		"month", month,
		"employees", len(items),
		"total", page.Total,
		"fully_loaded", len(stored.FullyLoadedIDs))

	return &entity.PreviewResult{
		Employees: entity.CloneRecords(stored.Employees),
		Total:     stored.Total,
		FromCache: false,
	}, nil
}

// mergeFullyLoaded carries cached full detail into freshly fetched rows for
// every employee whose detail was already loaded in this month
func (s *previewServiceImpl) mergeFullyLoaded(items []entity.EmployeeRecord, old *entity.CacheEntry) []entity.EmployeeRecord {
	out := make([]entity.EmployeeRecord, len(items))
	for i, item := range items {
		out[i] = payroll.Reconcile(item.Clone(), entity.DetailFieldPairs)
	}

	if old == nil || len(old.FullyLoadedIDs) == 0 {
		return out
	}

	for i, item := range out {
		id := item.ID()
		if !old.IsFullyLoaded(id) {
			continue
		}
		idx := old.FindEmployee(id)
		if idx < 0 {
			continue
		}
		cached := old.Employees[idx]
		if !cached.HasAnyDetail() {
			continue
		}
		out[i] = payroll.Merge(item, cached)
	}
	return out
}

// recordError updates the view error state for a failed fetch
func (s *previewServiceImpl) recordError(err error) {
	switch {
	case errors.Is(err, entity.ErrAuthRequired):
		// left for the login redirect; the displayed message is not changed
	case errors.Is(err, entity.ErrForbidden):
		s.forbidden = true
		s.lastError = entity.ForbiddenMessage
	default:
		s.lastError = err.Error()
	}
}

// LoadEmployeeDetail returns the employee's full record for month, fetching it
// when the row only carries the summary. The month does not have to be the
// selected one; the detail then goes into that month's cache entry only.
func (s *previewServiceImpl) LoadEmployeeDetail(ctx context.Context, month, employeeID string) (entity.EmployeeRecord, error) {
	if err := payroll.ValidateMonth(month); err != nil {
		return nil, err
	}

	s.mu.Lock()
	record, ok := s.recordInMonthLocked(month, employeeID)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", entity.ErrEmployeeNotFound, employeeID)
	}
	if hasFullDetail(record) {
		record = record.Clone()
		s.mu.Unlock()
		return record, nil
	}
	s.mu.Unlock()

	key := detailKey(month, employeeID)
	v, err, shared := s.detailGroup.Do(key, func() (interface{}, error) {
		s.setLoadingDetail(key, true)
		defer s.setLoadingDetail(key, false)

		s.logger.Info("Fetching full detail",
			"month", month,
			"employee_id", employeeID)

		// shared by every waiter, so one caller going away must not cancel it
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DetailFetchTimeout)
		defer cancel()

		detail, err := s.api.LoadFullDetail(fetchCtx, month, employeeID)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		merged, ok := s.applyFullDetailLocked(month, employeeID, detail)
		if !ok {
			return nil, fmt.Errorf("%w: %s", entity.ErrEmployeeNotFound, employeeID)
		}
		return merged, nil
	})
	if err != nil {
		if !errors.Is(err, entity.ErrEmployeeNotFound) {
			s.mu.Lock()
			s.recordError(err)
			s.mu.Unlock()
		}
		s.logger.Error("Failed to load full detail",
			"month", month,
			"employee_id", employeeID,
			"error", err)
		return nil, fmt.Errorf("load full detail %s: %w", employeeID, err)
	}

	if shared {
		s.logger.Info("Full detail fetch shared", "employee_id", employeeID)
	}
	return v.(entity.EmployeeRecord).Clone(), nil
}

func detailKey(month, employeeID string) string {
	return month + "/" + employeeID
}

func (s *previewServiceImpl) setLoadingDetail(key string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loading {
		s.loadingDetails[key] = struct{}{}
	} else {
		delete(s.loadingDetails, key)
	}
}

// recordInMonthLocked finds the employee in the live list when month is the
// selected one, otherwise in month's cache entry
func (s *previewServiceImpl) recordInMonthLocked(month, employeeID string) (entity.EmployeeRecord, bool) {
	if month == s.selectedMonth {
		if idx := entity.IndexOfEmployee(s.employees, employeeID); idx >= 0 {
			return s.employees[idx], true
		}
		return nil, false
	}
	entry := s.cache.Get(month)
	if idx := entry.FindEmployee(employeeID); idx >= 0 {
		return entry.Employees[idx], true
	}
	return nil, false
}

// ApplyFullDetail merges fullData into the displayed row and the selected
// month's cache entry. It reports false, and changes nothing, when the
// employee is not displayed.
func (s *previewServiceImpl) ApplyFullDetail(employeeID string, fullData entity.EmployeeRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.applyFullDetailLocked(s.selectedMonth, employeeID, fullData)
	return ok
}

func (s *previewServiceImpl) applyFullDetailLocked(month, employeeID string, fullData entity.EmployeeRecord) (entity.EmployeeRecord, bool) {
	base, ok := s.recordInMonthLocked(month, employeeID)
	if !ok {
		s.logger.Info("Full detail for employee not in preview",
			"month", month,
			"employee_id", employeeID)
		return nil, false
	}

	// fullData is the target so its detail fields take precedence; keys only
	// the existing row carries are kept underneath
	merged := base.ShallowCopy()
	for k, v := range payroll.Merge(fullData, base) {
		merged[k] = v
	}
	for _, key := range []string{entity.FieldUserID, entity.FieldUserIDAlias, entity.FieldName, entity.FieldMonth} {
		if v, ok := fullData[key]; ok && v != nil {
			merged[key] = v
		}
	}
	merged[entity.FlagFullDataLoaded] = true
	merged[entity.FlagFromCache] = false
	merged[entity.FlagNeedsCalculation] = false
	merged = payroll.Reconcile(merged, entity.DetailFieldPairs).Clone()

	if month == s.selectedMonth {
		s.employees[entity.IndexOfEmployee(s.employees, employeeID)] = merged
	}

	if month != "" {
		if entry := s.cache.Get(month); entry != nil {
			if i := entry.FindEmployee(employeeID); i >= 0 {
				entry.Employees[i] = merged.Clone()
			}
			s.cache.MarkFullyLoaded(month, employeeID)
		}
	}

	s.logger.Info("Full detail applied",
		"month", month,
		"employee_id", employeeID)
	return merged, true
}

// HasFullDetail reports whether the displayed row carries full detail
func (s *previewServiceImpl) HasFullDetail(employeeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := entity.IndexOfEmployee(s.employees, employeeID)
	if idx < 0 {
		return false
	}
	return hasFullDetail(s.employees[idx])
}

// hasFullDetail falls back to probing detail fields for rows without the flag
func hasFullDetail(record entity.EmployeeRecord) bool {
	return record.Bool(entity.FlagFullDataLoaded) || record.HasAnyDetail()
}

// IsLoadingDetails reports whether a detail fetch for the displayed row is running
func (s *previewServiceImpl) IsLoadingDetails(employeeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loadingDetails[detailKey(s.selectedMonth, employeeID)]
	return ok
}

// DetailStatus reports the detail state of an employee in month, looking in
// the live list for the selected month and in the cache otherwise
func (s *previewServiceImpl) DetailStatus(month, employeeID string) (DetailStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.recordInMonthLocked(month, employeeID)
	if !ok {
		return DetailStatus{}, false
	}
	_, loading := s.loadingDetails[detailKey(month, employeeID)]
	return DetailStatus{
		HasFullDetail: hasFullDetail(record),
		Loading:       loading,
	}, true
}

func (s *previewServiceImpl) Employees() []entity.EmployeeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entity.CloneRecords(s.employees)
}

func (s *previewServiceImpl) Employee(employeeID string) (entity.EmployeeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := entity.IndexOfEmployee(s.employees, employeeID)
	if idx < 0 {
		return nil, false
	}
	return s.employees[idx].Clone(), true
}

func (s *previewServiceImpl) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *previewServiceImpl) SelectedMonth() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedMonth
}

// Loading reports whether a month fetch is in flight
func (s *previewServiceImpl) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

func (s *previewServiceImpl) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *previewServiceImpl) Forbidden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forbidden
}

func (s *previewServiceImpl) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
	s.forbidden = false
}
