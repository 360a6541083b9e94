package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockProfileRepository is a mock implementation of usage.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*usage.QuotaProfile, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.QuotaProfile), args.Error(1)
}

func (m *MockProfileRepository) FindByOwnerForUpdate(ctx context.Context, ownerID uuid.UUID) (*usage.QuotaProfile, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.QuotaProfile), args.Error(1)
}

func (m *MockProfileRepository) Save(ctx context.Context, profile *usage.QuotaProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProfileRepository) CountByPlan(ctx context.Context) (map[usage.Plan]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[usage.Plan]int64), args.Error(1)
}

// MockUsageEventRepository is a mock implementation of usage.UsageEventRepository
type MockUsageEventRepository struct {
	mock.Mock
}

func (m *MockUsageEventRepository) Append(ctx context.Context, event *usage.UsageEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockUsageEventRepository) AppendBatch(ctx context.Context, events []*usage.UsageEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockUsageEventRepository) FindInRange(ctx context.Context, filter usage.EventFilter) ([]usage.UsageEvent, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usage.UsageEvent), args.Error(1)
}

// MockCounterRepository is a mock implementation of usage.CounterRepository
type MockCounterRepository struct {
	mock.Mock
}

func (m *MockCounterRepository) GetOrCreate(ctx context.Context, ownerID uuid.UUID, periodStart time.Time) (*usage.MonthlyUsageCounter, error) {
	args := m.Called(ctx, ownerID, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.MonthlyUsageCounter), args.Error(1)
}

func (m *MockCounterRepository) FindByOwnerAndPeriod(ctx context.Context, ownerID uuid.UUID, periodStart time.Time) (*usage.MonthlyUsageCounter, error) {
	args := m.Called(ctx, ownerID, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.MonthlyUsageCounter), args.Error(1)
}

func (m *MockCounterRepository) Increment(ctx context.Context, counterID uuid.UUID, kind usage.ActionKind, quantity int64) error {
	args := m.Called(ctx, counterID, kind, quantity)
	return args.Error(0)
}

func (m *MockCounterRepository) FindInRange(ctx context.Context, start, end time.Time, ownerID *uuid.UUID) ([]usage.MonthlyUsageCounter, error) {
	args := m.Called(ctx, start, end, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usage.MonthlyUsageCounter), args.Error(1)
}

// MockLegacyRollupRepository is a mock implementation of usage.LegacyRollupRepository
type MockLegacyRollupRepository struct {
	mock.Mock
}

func (m *MockLegacyRollupRepository) FindOverlapping(ctx context.Context, start, end time.Time, ownerID *uuid.UUID) ([]usage.LegacyImportRollup, error) {
	args := m.Called(ctx, start, end, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usage.LegacyImportRollup), args.Error(1)
}

type summaryFixture struct {
	service     *SummaryService
	profileRepo *MockProfileRepository
	eventRepo   *MockUsageEventRepository
	counterRepo *MockCounterRepository
	legacyRepo  *MockLegacyRollupRepository
}

func newSummaryFixture() *summaryFixture {
	f := &summaryFixture{
		profileRepo: &MockProfileRepository{},
		eventRepo:   &MockUsageEventRepository{},
		counterRepo: &MockCounterRepository{},
		legacyRepo:  &MockLegacyRollupRepository{},
	}
	f.service = NewSummaryService(f.profileRepo, f.eventRepo, f.counterRepo, f.legacyRepo, zap.NewNop())
	return f
}

func (f *summaryFixture) stubProfileCounts(total int64, plans map[usage.Plan]int64) {
	f.profileRepo.On("CountAll", mock.Anything).Return(total, nil)
	f.profileRepo.On("CountByPlan", mock.Anything).Return(plans, nil)
}

func (f *summaryFixture) stubNoCounters() {
	f.counterRepo.On("FindInRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]usage.MonthlyUsageCounter{}, nil)
}

func (f *summaryFixture) stubNoRollups() {
	f.legacyRepo.On("FindOverlapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]usage.LegacyImportRollup{}, nil)
}

var summaryNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func rangedEvent(t *testing.T, ownerID uuid.UUID, eventType usage.EventType, createdAt time.Time) *usage.UsageEvent {
	t.Helper()
	event, err := usage.NewUsageEvent(ownerID, eventType)
	require.NoError(t, err)
	return event.WithCreatedAt(createdAt)
}

// TestSummaryService_BuildSummary_Defaults tests the trailing 30-day window and zero-filled series
func TestSummaryService_BuildSummary_Defaults(t *testing.T) {
	f := newSummaryFixture()
	f.stubProfileCounts(12, map[usage.Plan]int64{usage.PlanBase: 9, usage.PlanPremium: 3})
	f.eventRepo.On("FindInRange", mock.Anything, mock.Anything).Return([]usage.UsageEvent{}, nil)
	f.stubNoCounters()
	f.stubNoRollups()

	summary, err := f.service.BuildSummary(context.Background(), SummaryQuery{}, summaryNow)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), summary.Start)
	assert.Equal(t, time.Date(2024, 3, 15, 23, 59, 59, 999000000, time.UTC), summary.End)

	require.Len(t, summary.DailySeries, 30)
	assert.Equal(t, "2024-02-15", summary.DailySeries[0].Date)
	assert.Equal(t, "2024-03-15", summary.DailySeries[29].Date)
	for _, day := range summary.DailySeries {
		assert.Zero(t, day.Imports)
		assert.Zero(t, day.AICredits)
	}

	assert.Equal(t, int64(12), summary.TotalUsers)
	assert.Zero(t, summary.ActiveUsers)
	assert.Equal(t, map[string]int64{"base": 9, "premium": 3}, summary.PlanCounts)
	assert.Zero(t, summary.TotalEvents)
	assert.Empty(t, summary.BySource)
	assert.Empty(t, summary.MonthlyUsage)
	assert.False(t, summary.LegacyFallback)
}

// TestSummaryService_BuildSummary_AggregatesEvents tests totals, daily series and breakdowns
func TestSummaryService_BuildSummary_AggregatesEvents(t *testing.T) {
	f := newSummaryFixture()
	owner1 := uuid.New()
	owner2 := uuid.New()

	events := []usage.UsageEvent{
		*rangedEvent(t, owner1, usage.EventTypeImport, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)).
			WithSource("tiktok").
			WithCredits(1, 0),
		*rangedEvent(t, owner1, usage.EventTypeAIMessage, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)).
			WithModel("gpt-4o-mini").
			WithCredits(0, 1).
			WithCost(decimal.NewFromFloat(0.0375)).
			WithUsageContext("assistant"),
		*rangedEvent(t, owner2, usage.EventTypeAIMessage, time.Date(2024, 3, 3, 23, 59, 59, 0, time.UTC)).
			WithModel("gpt-4o-mini").
			WithCredits(0, 2).
			WithCost(decimal.NewFromFloat(0.01255)).
			WithUsageContext("assistant"),
		*rangedEvent(t, owner2, usage.EventTypeTranslation, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)).
			WithModel("gemini-1.5-flash").
			WithCredits(0, 1).
			WithCost(decimal.NewFromFloat(0.002)),
	}

	f.stubProfileCounts(50, map[usage.Plan]int64{usage.PlanBase: 50})
	f.eventRepo.On("FindInRange", mock.Anything, mock.Anything).Return(events, nil)
	f.stubNoCounters()
	// Rollups present but events win, so the fallback must not engage
	f.legacyRepo.On("FindOverlapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]usage.LegacyImportRollup{{OwnerID: uuid.New(), Source: "web", PeriodStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Count: 99}}, nil)

	query := SummaryQuery{Start: "2024-03-01", End: "05.03.2024"}
	summary, err := f.service.BuildSummary(context.Background(), query, summaryNow)

	require.NoError(t, err)
	assert.False(t, summary.LegacyFallback)
	assert.Equal(t, int64(4), summary.TotalEvents)
	assert.Equal(t, int64(1), summary.TotalImportCredits)
	assert.Equal(t, int64(4), summary.TotalAICredits)
	assert.InDelta(t, 0.0521, summary.TotalCostUSD, 1e-9)

	require.Len(t, summary.DailySeries, 5)
	assert.Equal(t, DailyUsage{Date: "2024-03-01", Imports: 1, AICredits: 1}, summary.DailySeries[0])
	assert.Equal(t, DailyUsage{Date: "2024-03-02"}, summary.DailySeries[1])
	assert.Equal(t, DailyUsage{Date: "2024-03-03", AICredits: 2}, summary.DailySeries[2])
	assert.Equal(t, DailyUsage{Date: "2024-03-05", AICredits: 1}, summary.DailySeries[4])

	assert.Equal(t, map[string]int64{"tiktok": 1, "unknown": 3}, summary.BySource)
	assert.Equal(t, map[string]int64{NoModelLabel: 1, "gpt-4o-mini": 2, "gemini-1.5-flash": 1}, summary.ByModel)
	assert.Equal(t, map[string]int64{"assistant": 2}, summary.ByUsageContext)

	gptStats := summary.ModelBreakdown["gpt-4o-mini"]
	assert.Equal(t, int64(2), gptStats.Events)
	assert.Equal(t, int64(3), gptStats.AICredits)
	assert.InDelta(t, 0.0501, gptStats.CostUSD, 1e-9)
	assert.Equal(t, ModelStats{Events: 1}, summary.ModelBreakdown[NoModelLabel])

	assert.Equal(t, map[string]map[string]int64{
		"import":      {NoModelLabel: 1},
		"aiMessage":   {"gpt-4o-mini": 2},
		"translation": {"gemini-1.5-flash": 1},
	}, summary.ActionModelBreakdown)

	assert.Equal(t, map[string]int64{"tiktok": 1, "unknown": 1}, summary.BySourceDaily[0].Counts)
	assert.Empty(t, summary.BySourceDaily[1].Counts)
	assert.Equal(t, map[string]int64{"assistant": 1}, summary.ByUsageContextDaily[0].Counts)
	assert.Equal(t, map[string]int64{"assistant": 1}, summary.ByUsageContextDaily[2].Counts)
	assert.Equal(t, map[string]map[string]int64{"translation": {"gemini-1.5-flash": 1}}, summary.ActionModelDaily[4].Counts)

	assert.Equal(t, int64(2), summary.ActiveUsers)
	assert.Equal(t, int64(50), summary.TotalUsers)
}

// TestSummaryService_BuildSummary_FilteredUserCounts tests that categorical filters
// narrow totalUsers to the owners actually seen in matching events
func TestSummaryService_BuildSummary_FilteredUserCounts(t *testing.T) {
	f := newSummaryFixture()
	owner := uuid.New()

	events := []usage.UsageEvent{
		*rangedEvent(t, owner, usage.EventTypeImport, time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)).
			WithSource("tiktok").
			WithCredits(1, 0),
	}

	f.stubProfileCounts(50, map[usage.Plan]int64{usage.PlanBase: 50})
	var captured usage.EventFilter
	f.eventRepo.On("FindInRange", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(usage.EventFilter)
		}).
		Return(events, nil)
	f.stubNoCounters()

	query := SummaryQuery{Source: "tiktok", Start: "2024-03-01", End: "2024-03-15"}
	summary, err := f.service.BuildSummary(context.Background(), query, summaryNow)

	require.NoError(t, err)
	assert.Equal(t, "tiktok", captured.Source)
	assert.True(t, captured.HasCategoricalFilter())
	assert.Equal(t, int64(1), summary.TotalUsers)
	assert.Equal(t, int64(1), summary.ActiveUsers)
	f.legacyRepo.AssertNotCalled(t, "FindOverlapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestSummaryService_BuildSummary_LegacyFallback tests the rollup-backed path
// for ranges that predate event-level logging
func TestSummaryService_BuildSummary_LegacyFallback(t *testing.T) {
	f := newSummaryFixture()
	owner1 := uuid.New()
	owner2 := uuid.New()

	rollups := []usage.LegacyImportRollup{
		{OwnerID: owner1, Source: "web", PeriodStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Count: 10},
		{OwnerID: owner2, Source: "", PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Count: 4},
	}

	f.stubProfileCounts(7, map[usage.Plan]int64{usage.PlanBase: 7})
	f.eventRepo.On("FindInRange", mock.Anything, mock.Anything).Return([]usage.UsageEvent{}, nil)
	f.stubNoCounters()
	f.legacyRepo.On("FindOverlapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(rollups, nil)

	query := SummaryQuery{Start: "2024-01-15", End: "2024-02-20"}
	summary, err := f.service.BuildSummary(context.Background(), query, summaryNow)

	require.NoError(t, err)
	assert.True(t, summary.LegacyFallback)
	assert.Equal(t, int64(14), summary.TotalEvents)
	assert.Equal(t, int64(14), summary.TotalImportCredits)
	assert.Equal(t, int64(2), summary.ActiveUsers)
	assert.Equal(t, int64(7), summary.TotalUsers)
	assert.Equal(t, map[string]int64{"web": 10, "unknown": 4}, summary.BySource)

	// January's rollup starts before the range, so it lands on the range start
	byDate := make(map[string]DailyUsage, len(summary.DailySeries))
	for _, day := range summary.DailySeries {
		byDate[day.Date] = day
	}
	assert.Equal(t, int64(4), byDate["2024-01-15"].Imports)
	assert.Equal(t, int64(10), byDate["2024-02-01"].Imports)
	assert.Zero(t, byDate["2024-01-16"].Imports)
}

// TestSummaryService_BuildSummary_FallbackSuppressedByFilter tests that a
// filtered query never consults the rollup table even with zero events
func TestSummaryService_BuildSummary_FallbackSuppressedByFilter(t *testing.T) {
	f := newSummaryFixture()
	f.stubProfileCounts(7, map[usage.Plan]int64{usage.PlanBase: 7})
	f.eventRepo.On("FindInRange", mock.Anything, mock.Anything).Return([]usage.UsageEvent{}, nil)
	f.stubNoCounters()

	query := SummaryQuery{Source: "instagram", Start: "2024-03-01", End: "2024-03-05"}
	summary, err := f.service.BuildSummary(context.Background(), query, summaryNow)

	require.NoError(t, err)
	assert.False(t, summary.LegacyFallback)
	assert.Zero(t, summary.TotalEvents)
	assert.Zero(t, summary.TotalUsers)
	f.legacyRepo.AssertNotCalled(t, "FindOverlapping", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestSummaryService_BuildSummary_MonthlyUsage tests the counter-backed
// monthly section, merged per month and sorted ascending
func TestSummaryService_BuildSummary_MonthlyUsage(t *testing.T) {
	f := newSummaryFixture()
	owner1 := uuid.New()
	owner2 := uuid.New()

	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	february := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	counter1, err := usage.NewMonthlyUsageCounter(owner1, march)
	require.NoError(t, err)
	counter1.Imports = 5
	counter1.AIMessages = 2

	counter2, err := usage.NewMonthlyUsageCounter(owner2, march)
	require.NoError(t, err)
	counter2.Translations = 3

	counter3, err := usage.NewMonthlyUsageCounter(owner1, february)
	require.NoError(t, err)
	counter3.Optimizations = 1

	f.stubProfileCounts(2, map[usage.Plan]int64{usage.PlanPremium: 2})
	f.eventRepo.On("FindInRange", mock.Anything, mock.Anything).Return([]usage.UsageEvent{}, nil)
	f.counterRepo.On("FindInRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]usage.MonthlyUsageCounter{*counter1, *counter2, *counter3}, nil)
	f.stubNoRollups()

	query := SummaryQuery{Start: "2024-02-01", End: "2024-03-31"}
	summary, err := f.service.BuildSummary(context.Background(), query, summaryNow)

	require.NoError(t, err)
	require.Len(t, summary.MonthlyUsage, 2)
	assert.Equal(t, MonthlyUsage{Month: "2024-02", Optimizations: 1}, summary.MonthlyUsage[0])
	assert.Equal(t, MonthlyUsage{Month: "2024-03", Imports: 5, Translations: 3, AIMessages: 2}, summary.MonthlyUsage[1])
}

// TestSummaryService_BuildSummary_DottedDates tests day-month-year parsing on
// both range ends
func TestSummaryService_BuildSummary_DottedDates(t *testing.T) {
	f := newSummaryFixture()
	f.stubProfileCounts(0, map[usage.Plan]int64{})
	f.eventRepo.On("FindInRange", mock.Anything, mock.Anything).Return([]usage.UsageEvent{}, nil)
	f.stubNoCounters()
	f.stubNoRollups()

	query := SummaryQuery{Start: "05.03.2024", End: "05.03.2024"}
	summary, err := f.service.BuildSummary(context.Background(), query, summaryNow)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), summary.Start)
	assert.Equal(t, time.Date(2024, 3, 5, 23, 59, 59, 999000000, time.UTC), summary.End)
	require.Len(t, summary.DailySeries, 1)
	assert.Equal(t, "2024-03-05", summary.DailySeries[0].Date)
}

// TestSummaryService_BuildSummary_Validation tests the typed rejections for
// unreadable filters
func TestSummaryService_BuildSummary_Validation(t *testing.T) {
	t.Run("unparseable date is rejected with the offending text", func(t *testing.T) {
		f := newSummaryFixture()

		summary, err := f.service.BuildSummary(context.Background(), SummaryQuery{Start: "not-a-date"}, summaryNow)

		require.Error(t, err)
		assert.Nil(t, summary)
		var invalidDate *InvalidDateError
		require.ErrorAs(t, err, &invalidDate)
		assert.Equal(t, "not-a-date", invalidDate.Original)
		f.profileRepo.AssertNotCalled(t, "CountAll", mock.Anything)
	})

	t.Run("inverted range is rejected", func(t *testing.T) {
		f := newSummaryFixture()

		query := SummaryQuery{Start: "2024-03-10", End: "2024-03-01"}
		summary, err := f.service.BuildSummary(context.Background(), query, summaryNow)

		require.Error(t, err)
		assert.Nil(t, summary)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_RANGE", domainErr.Code)
	})

	t.Run("malformed user filter is rejected", func(t *testing.T) {
		f := newSummaryFixture()

		summary, err := f.service.BuildSummary(context.Background(), SummaryQuery{OwnerID: "not-a-uuid"}, summaryNow)

		require.Error(t, err)
		assert.Nil(t, summary)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_OWNER", domainErr.Code)
	})
}

// TestSummaryService_BuildSummary_PropagatesFilters tests that the parsed
// filters reach the event and counter scans
func TestSummaryService_BuildSummary_PropagatesFilters(t *testing.T) {
	f := newSummaryFixture()
	owner := uuid.New()

	var eventFilter usage.EventFilter
	var counterOwner *uuid.UUID
	f.stubProfileCounts(1, map[usage.Plan]int64{usage.PlanPremium: 1})
	f.eventRepo.On("FindInRange", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			eventFilter = args.Get(1).(usage.EventFilter)
		}).
		Return([]usage.UsageEvent{}, nil)
	f.counterRepo.On("FindInRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			counterOwner = args.Get(3).(*uuid.UUID)
		}).
		Return([]usage.MonthlyUsageCounter{}, nil)

	query := SummaryQuery{
		OwnerID:      owner.String(),
		EventType:    "aiMessage",
		Source:       "tiktok",
		Model:        "gpt-4o-mini",
		UsageContext: "assistant",
		Start:        "2024-03-01",
		End:          "2024-03-05",
	}
	_, err := f.service.BuildSummary(context.Background(), query, summaryNow)

	require.NoError(t, err)
	require.NotNil(t, eventFilter.OwnerID)
	assert.Equal(t, owner, *eventFilter.OwnerID)
	require.NotNil(t, eventFilter.EventType)
	assert.Equal(t, usage.EventTypeAIMessage, *eventFilter.EventType)
	assert.Equal(t, "tiktok", eventFilter.Source)
	assert.Equal(t, "gpt-4o-mini", eventFilter.ModelName)
	assert.Equal(t, "assistant", eventFilter.UsageContext)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), eventFilter.Start)
	assert.Equal(t, time.Date(2024, 3, 5, 23, 59, 59, 999000000, time.UTC), eventFilter.End)
	require.NotNil(t, counterOwner)
	assert.Equal(t, owner, *counterOwner)
}

// TestSummaryService_BuildSummary_StoreError tests that a failed read aborts
// the whole build
func TestSummaryService_BuildSummary_StoreError(t *testing.T) {
	f := newSummaryFixture()
	f.stubProfileCounts(1, map[usage.Plan]int64{usage.PlanBase: 1})
	f.eventRepo.On("FindInRange", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset"))
	f.stubNoCounters()
	f.stubNoRollups()

	summary, err := f.service.BuildSummary(context.Background(), SummaryQuery{}, summaryNow)

	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, err.Error(), "connection reset")
}

// stubSummaryCache is a map-backed SummaryCache with injectable failures

type stubSummaryCache struct {
	entries  map[string]*UsageSummary
	getErr   error
	setErr   error
	getCalls int
	setCalls int
}

func newStubSummaryCache() *stubSummaryCache {
	return &stubSummaryCache{entries: make(map[string]*UsageSummary)}
}

func (c *stubSummaryCache) Get(ctx context.Context, key string) (*UsageSummary, error) {
	c.getCalls++
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[key], nil
}

func (c *stubSummaryCache) Set(ctx context.Context, key string, summary *UsageSummary, ttl time.Duration) error {
	c.setCalls++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = summary
	return nil
}

func (c *stubSummaryCache) InvalidateAll(ctx context.Context) error {
	c.entries = make(map[string]*UsageSummary)
	return nil
}

func (c *stubSummaryCache) Close() error { return nil }

var _ SummaryCache = (*stubSummaryCache)(nil)

// TestSummaryService_BuildSummary_CacheHitSkipsStores tests that a repeated
// query is served from cache without touching the stores again
func TestSummaryService_BuildSummary_CacheHitSkipsStores(t *testing.T) {
	f := newSummaryFixture()
	f.stubProfileCounts(5, map[usage.Plan]int64{usage.PlanBase: 5})
	f.eventRepo.On("FindInRange", mock.Anything, mock.Anything).Return([]usage.UsageEvent{}, nil)
	f.stubNoCounters()
	f.stubNoRollups()

	cache := newStubSummaryCache()
	f.service.SetSummaryCache(cache, 5*time.Minute)

	first, err := f.service.BuildSummary(context.Background(), SummaryQuery{}, summaryNow)
	require.NoError(t, err)

	second, err := f.service.BuildSummary(context.Background(), SummaryQuery{}, summaryNow)
	require.NoError(t, err)

	assert.Same(t, first, second, "second build should come from cache")
	assert.Equal(t, 1, cache.setCalls)
	f.profileRepo.AssertNumberOfCalls(t, "CountAll", 1)
	f.eventRepo.AssertNumberOfCalls(t, "FindInRange", 1)
}

// TestSummaryService_BuildSummary_CacheFailuresDegrade tests that cache
// errors fall back to a plain build instead of failing the request
func TestSummaryService_BuildSummary_CacheFailuresDegrade(t *testing.T) {
	f := newSummaryFixture()
	f.stubProfileCounts(5, map[usage.Plan]int64{usage.PlanBase: 5})
	f.eventRepo.On("FindInRange", mock.Anything, mock.Anything).Return([]usage.UsageEvent{}, nil)
	f.stubNoCounters()
	f.stubNoRollups()

	cache := newStubSummaryCache()
	cache.getErr = errors.New("redis timeout")
	cache.setErr = errors.New("redis timeout")
	f.service.SetSummaryCache(cache, 5*time.Minute)

	summary, err := f.service.BuildSummary(context.Background(), SummaryQuery{}, summaryNow)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, int64(5), summary.TotalUsers)
	assert.Equal(t, 1, cache.getCalls)
	assert.Equal(t, 1, cache.setCalls)
}

// TestSummaryCacheKey tests key stability within a day and sensitivity to filters
func TestSummaryCacheKey(t *testing.T) {
	query := SummaryQuery{EventType: "import"}

	morning := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 15, 22, 45, 0, 0, time.UTC)

	startA, endA, err := resolveRange(query, morning)
	require.NoError(t, err)
	startB, endB, err := resolveRange(query, evening)
	require.NoError(t, err)

	assert.Equal(t, summaryCacheKey(query, startA, endA), summaryCacheKey(query, startB, endB),
		"same-day queries should share a key")

	other := SummaryQuery{EventType: "translation"}
	assert.NotEqual(t, summaryCacheKey(query, startA, endA), summaryCacheKey(other, startA, endA),
		"different filters should not share a key")
}
