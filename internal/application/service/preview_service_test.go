package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/payroll-preview/internal/application/port"
	"github.com/garyjia/payroll-preview/internal/domain/entity"
	"github.com/garyjia/payroll-preview/internal/domain/payroll"
	"github.com/garyjia/payroll-preview/internal/infrastructure/cache"
)

// MockPayrollAPI is a testify mock of port.PayrollAPI
type MockPayrollAPI struct {
	mock.Mock
}

func (m *MockPayrollAPI) LoadPreview(ctx context.Context, month string, forceRefresh bool) (*port.PreviewPage, error) {
	args := m.Called(ctx, month, forceRefresh)
	page, _ := args.Get(0).(*port.PreviewPage)
	return page, args.Error(1)
}

func (m *MockPayrollAPI) LoadFullDetail(ctx context.Context, month, employeeID string) (entity.EmployeeRecord, error) {
	args := m.Called(ctx, month, employeeID)
	record, _ := args.Get(0).(entity.EmployeeRecord)
	return record, args.Error(1)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(api port.PayrollAPI) (PreviewService, *cache.MonthCache, *testClock) {
	clock := &testClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	monthCache := cache.NewMonthCache(cache.Config{Clock: clock.Now})
	return NewPreviewService(api, monthCache, &mockLogger{}), monthCache, clock
}

func page(total int, items ...entity.EmployeeRecord) *port.PreviewPage {
	return &port.PreviewPage{Items: items, Total: total}
}

func dayList(days ...int) []interface{} {
	out := make([]interface{}, 0, len(days))
	for _, d := range days {
		out = append(out, map[string]interface{}{"day": float64(d)})
	}
	return out
}

func assertConsistent(t *testing.T, records []entity.EmployeeRecord) {
	t.Helper()
	for _, r := range records {
		assert.Empty(t, payroll.Inconsistencies(r, entity.DetailFieldPairs), "record %v", r.ID())
	}
}

func TestPreviewService_ConcreteScenario(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, monthCache, _ := newTestService(api)
	ctx := context.Background()

	api.On("LoadPreview", ctx, "2024-03", false).
		Return(page(1, entity.EmployeeRecord{"userId": float64(1), "name": "A"}), nil).Once()

	first, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, first.Total)
	assert.Equal(t, []entity.EmployeeRecord{{"userId": float64(1), "name": "A"}}, first.Employees)

	second, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Employees, second.Employees)
	assert.Equal(t, first.Total, second.Total)
	api.AssertNumberOfCalls(t, "LoadPreview", 1)

	applied := svc.ApplyFullDetail("1", entity.EmployeeRecord{"userId": float64(1), "tripDetails": dayList(1)})
	require.True(t, applied)
	assert.True(t, monthCache.Get("2024-03").IsFullyLoaded("1"))

	api.On("LoadPreview", ctx, "2024-03", true).
		Return(page(1, entity.EmployeeRecord{"userId": float64(1), "name": "A"}), nil).Once()

	refreshed, err := svc.LoadPreview(ctx, "2024-03", true)
	require.NoError(t, err)
	assert.False(t, refreshed.FromCache)
	require.Len(t, refreshed.Employees, 1)
	assert.Equal(t, dayList(1), refreshed.Employees[0]["tripDetails"])
	assert.Equal(t, dayList(1), refreshed.Employees[0]["trip_details"])
	assert.Equal(t, "A", refreshed.Employees[0]["name"])
	assertConsistent(t, refreshed.Employees)
	assertConsistent(t, svc.Employees())

	api.AssertExpectations(t)
}

func TestPreviewService_CacheExpiry(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, _, clock := newTestService(api)
	ctx := context.Background()

	api.On("LoadPreview", ctx, "2024-03", false).
		Return(page(1, entity.EmployeeRecord{"userId": float64(1)}), nil).Once()
	api.On("LoadPreview", ctx, "2024-03", false).
		Return(page(2, entity.EmployeeRecord{"userId": float64(1)}, entity.EmployeeRecord{"userId": float64(2)}), nil).Once()

	_, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)

	clock.Advance(4*time.Minute + 59*time.Second)
	hit, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)
	assert.True(t, hit.FromCache)

	clock.Advance(time.Second)
	miss, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)
	assert.False(t, miss.FromCache)
	assert.Equal(t, 2, miss.Total)
	assert.Equal(t, 2, svc.Total())

	api.AssertNumberOfCalls(t, "LoadPreview", 2)
}

func TestPreviewService_ForceRefreshBypassesFreshCache(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, _, _ := newTestService(api)
	ctx := context.Background()

	api.On("LoadPreview", ctx, "2024-03", false).Return(page(0), nil).Once()
	api.On("LoadPreview", ctx, "2024-03", true).Return(page(0), nil).Once()

	_, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)
	res, err := svc.LoadPreview(ctx, "2024-03", true)
	require.NoError(t, err)

	assert.False(t, res.FromCache)
	api.AssertExpectations(t)
}

func TestPreviewService_MonthsAreCachedSeparately(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, _, _ := newTestService(api)
	ctx := context.Background()

	api.On("LoadPreview", ctx, "2024-03", false).
		Return(page(1, entity.EmployeeRecord{"userId": float64(1)}), nil).Once()
	api.On("LoadPreview", ctx, "2024-04", false).
		Return(page(1, entity.EmployeeRecord{"userId": float64(2)}), nil).Once()

	_, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)
	_, err = svc.LoadPreview(ctx, "2024-04", false)
	require.NoError(t, err)
	assert.Equal(t, "2024-04", svc.SelectedMonth())

	back, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)
	assert.True(t, back.FromCache)
	assert.Equal(t, "2024-03", svc.SelectedMonth())
	assert.Equal(t, "1", svc.Employees()[0].ID())
}

func TestPreviewService_RefreshOnlyMergesFullyLoadedEmployees(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, _, _ := newTestService(api)
	ctx := context.Background()

	api.On("LoadPreview", ctx, "2024-03", false).Return(page(2,
		entity.EmployeeRecord{"userId": float64(1), "name": "A"},
		entity.EmployeeRecord{"userId": float64(2), "name": "B", "leaveDetails": dayList(3)},
	), nil).Once()

	_, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)
	require.True(t, svc.ApplyFullDetail("1", entity.EmployeeRecord{
		"userId":         float64(1),
		"deductionItems": []interface{}{map[string]interface{}{"amount": float64(500)}},
	}))

	api.On("LoadPreview", ctx, "2024-03", true).Return(page(2,
		entity.EmployeeRecord{"userId": float64(1), "name": "A", "baseSalary": float64(42000)},
		entity.EmployeeRecord{"userId": float64(2), "name": "B"},
	), nil).Once()

	res, err := svc.LoadPreview(ctx, "2024-03", true)
	require.NoError(t, err)

	one, two := res.Employees[0], res.Employees[1]
	assert.NotNil(t, one["deduction_items"])
	assert.Equal(t, float64(42000), one["baseSalary"])
	_, hasLeave := two["leaveDetails"]
	assert.False(t, hasLeave, "employee 2 was never fully loaded")
}

func TestPreviewService_FresherDetailWinsOnRefresh(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, _, _ := newTestService(api)
	ctx := context.Background()

	api.On("LoadPreview", ctx, "2024-03", false).
		Return(page(1, entity.EmployeeRecord{"userId": float64(1)}), nil).Once()
	_, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)
	svc.ApplyFullDetail("1", entity.EmployeeRecord{"userId": float64(1), "tripDetails": dayList(1)})

	api.On("LoadPreview", ctx, "2024-03", true).
		Return(page(1, entity.EmployeeRecord{"userId": float64(1), "trip_details": dayList(2, 3)}), nil).Once()
	res, err := svc.LoadPreview(ctx, "2024-03", true)
	require.NoError(t, err)

	assert.Equal(t, dayList(2, 3), res.Employees[0]["tripDetails"])
	assert.Equal(t, dayList(2, 3), res.Employees[0]["trip_details"])
}

func TestPreviewService_FullyLoadedSurvivesExpiry(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, monthCache, clock := newTestService(api)
	ctx := context.Background()

	api.On("LoadPreview", ctx, "2024-03", false).
		Return(page(1, entity.EmployeeRecord{"userId": "e-1"}), nil).Once()
	_, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)
	svc.ApplyFullDetail("e-1", entity.EmployeeRecord{"user_id": "e-1", "daily_overtime": dayList(5)})

	clock.Advance(time.Hour)
	assert.True(t, monthCache.Get("2024-03").IsFullyLoaded("e-1"))

	api.On("LoadPreview", ctx, "2024-03", false).
		Return(page(1, entity.EmployeeRecord{"userId": "e-1"}), nil).Once()
	res, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)
	assert.Equal(t, dayList(5), res.Employees[0]["dailyOvertime"])
	assert.True(t, svc.HasFullDetail("e-1"))
}

func TestPreviewService_LoadErrors(t *testing.T) {
	transportErr := &entity.TransportError{Op: "load preview", Message: "connection refused"}

	tests := []struct {
		name          string
		apiErr        error
		wantIs        error
		wantMessage   string
		wantForbidden bool
	}{
		{
			name:        "transport error stores message",
			apiErr:      transportErr,
			wantIs:      transportErr,
			wantMessage: transportErr.Error(),
		},
		{
			name:        "auth error keeps previous message",
			apiErr:      entity.ErrAuthRequired,
			wantIs:      entity.ErrAuthRequired,
			wantMessage: "previous",
		},
		{
			name:          "forbidden sets flag and fixed message",
			apiErr:        entity.ErrForbidden,
			wantIs:        entity.ErrForbidden,
			wantMessage:   entity.ForbiddenMessage,
			wantForbidden: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockPayrollAPI)
			svc, monthCache, clock := newTestService(api)
			ctx := context.Background()

			api.On("LoadPreview", ctx, "2024-03", false).
				Return(page(1, entity.EmployeeRecord{"userId": float64(1)}), nil).Once()
			_, err := svc.LoadPreview(ctx, "2024-03", false)
			require.NoError(t, err)
			before := monthCache.Get("2024-03")
			beforeEmployees := entity.CloneRecords(before.Employees)
			beforeCaptured := before.CapturedAt

			// put a message on screen so the auth case can show it is left alone
			api.On("LoadPreview", ctx, "2024-02", false).
				Return(nil, errors.New("previous")).Once()
			_, _ = svc.LoadPreview(ctx, "2024-02", false)

			clock.Advance(time.Minute)
			api.On("LoadPreview", ctx, "2024-03", true).Return(nil, tt.apiErr).Once()

			_, err = svc.LoadPreview(ctx, "2024-03", true)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Equal(t, tt.wantMessage, svc.LastError())
			assert.Equal(t, tt.wantForbidden, svc.Forbidden())

			after := monthCache.Get("2024-03")
			assert.Same(t, before, after)
			assert.Equal(t, beforeEmployees, after.Employees)
			assert.Equal(t, beforeCaptured, after.CapturedAt)
			assert.False(t, svc.Loading())
		})
	}
}

func TestPreviewService_SuccessClearsError(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, _, _ := newTestService(api)
	ctx := context.Background()

	api.On("LoadPreview", ctx, "2024-03", false).Return(nil, entity.ErrForbidden).Once()
	api.On("LoadPreview", ctx, "2024-03", false).Return(page(0), nil).Once()

	_, err := svc.LoadPreview(ctx, "2024-03", false)
	require.ErrorIs(t, err, entity.ErrForbidden)
	require.True(t, svc.Forbidden())

	_, err = svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)
	assert.False(t, svc.Forbidden())
	assert.Empty(t, svc.LastError())
}

func TestPreviewService_InvalidMonth(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, _, _ := newTestService(api)

	_, err := svc.LoadPreview(context.Background(), "March", false)

	assert.ErrorIs(t, err, entity.ErrInvalidMonth)
	api.AssertNotCalled(t, "LoadPreview", mock.Anything, mock.Anything, mock.Anything)
}

func TestPreviewService_ApplyFullDetail(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, monthCache, _ := newTestService(api)
	ctx := context.Background()

	api.On("LoadPreview", ctx, "2024-03", false).Return(page(2,
		entity.EmployeeRecord{"userId": float64(1), "name": "A", "department": "Ops", "_needsCalculation": true},
		entity.EmployeeRecord{"userId": float64(2), "name": "B"},
	), nil).Once()
	_, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)

	t.Run("unknown employee is a no-op", func(t *testing.T) {
		assert.False(t, svc.ApplyFullDetail("99", entity.EmployeeRecord{"userId": float64(99), "tripDetails": dayList(1)}))
		assert.False(t, monthCache.Get("2024-03").IsFullyLoaded("99"))
		assert.Len(t, svc.Employees(), 2)
	})

	t.Run("merges and marks the employee", func(t *testing.T) {
		assert.False(t, svc.HasFullDetail("1"))

		ok := svc.ApplyFullDetail("1", entity.EmployeeRecord{
			"userId":            float64(1),
			"name":              "A. Lin",
			"month":             "2024-03",
			"leave_details":     dayList(2),
			"mealAllowanceDays": map[string]interface{}{"2024-03-04": true},
		})
		require.True(t, ok)

		rec, found := svc.Employee("1")
		require.True(t, found)
		assert.Equal(t, "A. Lin", rec["name"])
		assert.Equal(t, "2024-03", rec["month"])
		assert.Equal(t, "Ops", rec["department"])
		assert.Equal(t, dayList(2), rec["leaveDetails"])
		assert.Equal(t, map[string]interface{}{"2024-03-04": true}, rec["meal_allowance_days"])
		assert.Equal(t, true, rec[entity.FlagFullDataLoaded])
		assert.Equal(t, false, rec[entity.FlagFromCache])
		assert.Equal(t, false, rec[entity.FlagNeedsCalculation])
		assertConsistent(t, svc.Employees())

		entry := monthCache.Get("2024-03")
		assert.True(t, entry.IsFullyLoaded("1"))
		assert.Equal(t, rec, entry.Employees[entry.FindEmployee("1")])
		assert.True(t, svc.HasFullDetail("1"))
	})

	t.Run("cached copy is independent of the live row", func(t *testing.T) {
		rec, _ := svc.Employee("1")
		rec["leaveDetails"].([]interface{})[0].(map[string]interface{})["day"] = float64(30)

		entry := monthCache.Get("2024-03")
		cached := entry.Employees[entry.FindEmployee("1")]
		assert.Equal(t, dayList(2), cached["leaveDetails"])
	})

	t.Run("new detail replaces the old", func(t *testing.T) {
		svc.ApplyFullDetail("1", entity.EmployeeRecord{"userId": float64(1), "leaveDetails": dayList(9)})

		rec, _ := svc.Employee("1")
		assert.Equal(t, dayList(9), rec["leave_details"])
		assert.Equal(t, map[string]interface{}{"2024-03-04": true}, rec["mealAllowanceDays"])
	})
}

func TestPreviewService_HasFullDetailFallback(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, _, _ := newTestService(api)
	ctx := context.Background()

	api.On("LoadPreview", ctx, "2024-03", false).Return(page(3,
		entity.EmployeeRecord{"userId": float64(1)},
		entity.EmployeeRecord{"userId": float64(2), "regularBonusItems": dayList(1)},
		entity.EmployeeRecord{"userId": float64(3), "_fullDataLoaded": true},
	), nil).Once()
	_, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)

	assert.False(t, svc.HasFullDetail("1"))
	assert.True(t, svc.HasFullDetail("2"))
	assert.True(t, svc.HasFullDetail("3"))
	assert.False(t, svc.HasFullDetail("404"))
}

func TestPreviewService_LoadEmployeeDetail(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, monthCache, _ := newTestService(api)
	ctx := context.Background()

	api.On("LoadPreview", ctx, "2024-03", false).Return(page(2,
		entity.EmployeeRecord{"userId": float64(1), "name": "A"},
		entity.EmployeeRecord{"userId": float64(2), "name": "B"},
	), nil).Once()
	_, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)

	var loadingDuringFetch bool
	api.On("LoadFullDetail", mock.Anything, "2024-03", "1").
		Run(func(args mock.Arguments) { loadingDuringFetch = svc.IsLoadingDetails("1") }).
		Return(entity.EmployeeRecord{"userId": float64(1), "tripDetails": dayList(4)}, nil).Once()

	rec, err := svc.LoadEmployeeDetail(ctx, "2024-03", "1")
	require.NoError(t, err)
	assert.True(t, loadingDuringFetch)
	assert.False(t, svc.IsLoadingDetails("1"))
	assert.Equal(t, dayList(4), rec["trip_details"])
	assert.Equal(t, "A", rec["name"])
	assert.True(t, monthCache.Get("2024-03").IsFullyLoaded("1"))

	again, err := svc.LoadEmployeeDetail(ctx, "2024-03", "1")
	require.NoError(t, err)
	assert.Equal(t, rec, again)
	api.AssertNumberOfCalls(t, "LoadFullDetail", 1)

	t.Run("failure does not mark the employee", func(t *testing.T) {
		api.On("LoadFullDetail", mock.Anything, "2024-03", "2").Return(nil, entity.ErrForbidden).Once()

		_, err := svc.LoadEmployeeDetail(ctx, "2024-03", "2")

		assert.ErrorIs(t, err, entity.ErrForbidden)
		assert.True(t, svc.Forbidden())
		assert.False(t, monthCache.Get("2024-03").IsFullyLoaded("2"))
		assert.False(t, svc.HasFullDetail("2"))
		assert.False(t, svc.IsLoadingDetails("2"))
	})

	t.Run("employee not displayed", func(t *testing.T) {
		_, err := svc.LoadEmployeeDetail(ctx, "2024-03", "77")
		assert.ErrorIs(t, err, entity.ErrEmployeeNotFound)
	})
}

// fakePayrollAPI lets a test control when a preview response arrives
type fakePayrollAPI struct {
	loadPreviewFunc    func(ctx context.Context, month string, forceRefresh bool) (*port.PreviewPage, error)
	loadFullDetailFunc func(ctx context.Context, month, employeeID string) (entity.EmployeeRecord, error)
}

func (f *fakePayrollAPI) LoadPreview(ctx context.Context, month string, forceRefresh bool) (*port.PreviewPage, error) {
	return f.loadPreviewFunc(ctx, month, forceRefresh)
}

func (f *fakePayrollAPI) LoadFullDetail(ctx context.Context, month, employeeID string) (entity.EmployeeRecord, error) {
	if f.loadFullDetailFunc == nil {
		return nil, errors.New("not implemented")
	}
	return f.loadFullDetailFunc(ctx, month, employeeID)
}

func TestPreviewService_SupersededResponseIsDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0

	api := &fakePayrollAPI{
		loadPreviewFunc: func(ctx context.Context, month string, forceRefresh bool) (*port.PreviewPage, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()

			if n == 1 {
				close(entered)
				<-release
				return page(1, entity.EmployeeRecord{"userId": float64(1), "name": "old"}), nil
			}
			return page(1, entity.EmployeeRecord{"userId": float64(1), "name": "new"}), nil
		},
	}
	svc, monthCache, _ := newTestService(api)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.LoadPreview(ctx, "2024-03", true)
		errCh <- err
	}()

	<-entered
	assert.True(t, svc.Loading())

	res, err := svc.LoadPreview(ctx, "2024-03", true)
	require.NoError(t, err)
	assert.Equal(t, "new", res.Employees[0]["name"])

	close(release)
	assert.ErrorIs(t, <-errCh, entity.ErrSuperseded)

	assert.Equal(t, "new", monthCache.Get("2024-03").Employees[0]["name"])
	assert.Equal(t, "new", svc.Employees()[0]["name"])
	assert.False(t, svc.Loading())
}

func TestPreviewService_ClearError(t *testing.T) {
	api := new(MockPayrollAPI)
	svc, _, _ := newTestService(api)
	ctx := context.Background()

	api.On("LoadPreview", ctx, "2024-03", false).Return(nil, entity.ErrForbidden).Once()
	_, _ = svc.LoadPreview(ctx, "2024-03", false)

	svc.ClearError()

	assert.Empty(t, svc.LastError())
	assert.False(t, svc.Forbidden())
}

func TestPreviewService_DetailLandsDuringRefresh(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0

	api := &fakePayrollAPI{
		loadPreviewFunc: func(ctx context.Context, month string, forceRefresh bool) (*port.PreviewPage, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()

			if n == 2 {
				close(entered)
				<-release
			}
			return page(1, entity.EmployeeRecord{"userId": float64(1), "name": "A"}), nil
		},
		loadFullDetailFunc: func(ctx context.Context, month, employeeID string) (entity.EmployeeRecord, error) {
			return entity.EmployeeRecord{"userId": float64(1), "tripDetails": dayList(9)}, nil
		},
	}
	svc, monthCache, _ := newTestService(api)
	ctx := context.Background()

	_, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)

	refreshed := make(chan *entity.PreviewResult, 1)
	go func() {
		res, err := svc.LoadPreview(ctx, "2024-03", true)
		assert.NoError(t, err)
		refreshed <- res
	}()

	<-entered
	_, err = svc.LoadEmployeeDetail(ctx, "2024-03", "1")
	require.NoError(t, err)
	close(release)

	res := <-refreshed
	require.NotNil(t, res)
	require.Len(t, res.Employees, 1)
	assert.Equal(t, dayList(9), res.Employees[0]["tripDetails"])
	assert.Equal(t, dayList(9), res.Employees[0]["trip_details"])
	assert.True(t, monthCache.Get("2024-03").IsFullyLoaded("1"))
	assert.True(t, svc.HasFullDetail("1"))
	assertConsistent(t, svc.Employees())
}

func TestPreviewService_LoadEmployeeDetailForAnotherMonth(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	api := &fakePayrollAPI{
		loadPreviewFunc: func(ctx context.Context, month string, forceRefresh bool) (*port.PreviewPage, error) {
			if month == "2024-04" {
				return page(1, entity.EmployeeRecord{"userId": float64(5), "name": "E"}), nil
			}
			return page(1, entity.EmployeeRecord{"userId": float64(1), "name": "A"}), nil
		},
		loadFullDetailFunc: func(ctx context.Context, month, employeeID string) (entity.EmployeeRecord, error) {
			close(entered)
			<-release
			return entity.EmployeeRecord{"userId": float64(1), "leaveDetails": dayList(2)}, nil
		},
	}
	svc, monthCache, _ := newTestService(api)
	ctx := context.Background()

	_, err := svc.LoadPreview(ctx, "2024-03", false)
	require.NoError(t, err)

	type result struct {
		rec entity.EmployeeRecord
		err error
	}
	done := make(chan result, 1)
	go func() {
		rec, err := svc.LoadEmployeeDetail(ctx, "2024-03", "1")
		done <- result{rec, err}
	}()

	<-entered
	status, found := svc.DetailStatus("2024-03", "1")
	require.True(t, found)
	assert.True(t, status.Loading)

	// the view moves to April while March detail is in flight
	_, err = svc.LoadPreview(ctx, "2024-04", false)
	require.NoError(t, err)
	assert.False(t, svc.IsLoadingDetails("1"))
	close(release)

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, dayList(2), r.rec["leave_details"])
	assert.Equal(t, "A", r.rec["name"])

	entry := monthCache.Get("2024-03")
	assert.True(t, entry.IsFullyLoaded("1"))
	assert.Equal(t, dayList(2), entry.Employees[entry.FindEmployee("1")]["leaveDetails"])

	assert.Equal(t, "2024-04", svc.SelectedMonth())
	assert.Equal(t, "5", svc.Employees()[0].ID())

	status, found = svc.DetailStatus("2024-03", "1")
	require.True(t, found)
	assert.True(t, status.HasFullDetail)
	assert.False(t, status.Loading)

	_, found = svc.DetailStatus("2024-03", "5")
	assert.False(t, found)

	// served from the March entry without another fetch
	again, err := svc.LoadEmployeeDetail(ctx, "2024-03", "1")
	require.NoError(t, err)
	assert.Equal(t, r.rec, again)
}

func TestPreviewService_LoadEmployeeDetailOutlivesCallerContext(t *testing.T) {
	var fetchErr error
	var hasDeadline bool
	api := &fakePayrollAPI{
		loadPreviewFunc: func(ctx context.Context, month string, forceRefresh bool) (*port.PreviewPage, error) {
			return page(1, entity.EmployeeRecord{"userId": float64(1)}), nil
		},
		loadFullDetailFunc: func(ctx context.Context, month, employeeID string) (entity.EmployeeRecord, error) {
			fetchErr = ctx.Err()
			_, hasDeadline = ctx.Deadline()
			return entity.EmployeeRecord{"userId": float64(1), "yearEndBonusItems": dayList(1)}, nil
		},
	}
	svc, _, _ := newTestService(api)

	_, err := svc.LoadPreview(context.Background(), "2024-03", false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := svc.LoadEmployeeDetail(ctx, "2024-03", "1")
	require.NoError(t, err)
	assert.NoError(t, fetchErr)
	assert.True(t, hasDeadline)
	assert.Equal(t, dayList(1), rec["year_end_bonus_items"])
}

func TestPreviewService_LoadEmployeeDetailInvalidMonth(t *testing.T) {
	svc, _, _ := newTestService(new(MockPayrollAPI))

	_, err := svc.LoadEmployeeDetail(context.Background(), "2024/03", "1")

	assert.ErrorIs(t, err, entity.ErrInvalidMonth)
}
