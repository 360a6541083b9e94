package analytics

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"github.com/recipefy/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NoModelLabel is reported for events whose model name is blank
const NoModelLabel = "No model"

// defaultRangeDays is the trailing window applied when no range is given
const defaultRangeDays = 30

const dayFormat = "2006-01-02"

// SummaryService builds the usage dashboard aggregation. It is read-only:
// the four underlying reads fan out concurrently and are joined in memory,
// and no state survives between invocations.
type SummaryService struct {
	profileRepo  usage.ProfileRepository
	eventRepo    usage.UsageEventRepository
	counterRepo  usage.CounterRepository
	legacyRepo   usage.LegacyRollupRepository
	usageMetrics *telemetry.UsageMetrics
	summaryCache SummaryCache
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewSummaryService creates a new SummaryService
func NewSummaryService(
	profileRepo usage.ProfileRepository,
	eventRepo usage.UsageEventRepository,
	counterRepo usage.CounterRepository,
	legacyRepo usage.LegacyRollupRepository,
	logger *zap.Logger,
) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{
		profileRepo: profileRepo,
		eventRepo:   eventRepo,
		counterRepo: counterRepo,
		legacyRepo:  legacyRepo,
		logger:      logger,
	}
}

// SetUsageMetrics sets the usage metrics collector
func (s *SummaryService) SetUsageMetrics(metrics *telemetry.UsageMetrics) {
	s.usageMetrics = metrics
}

// SetSummaryCache enables the read-through summary cache
func (s *SummaryService) SetSummaryCache(cache SummaryCache, ttl time.Duration) {
	s.summaryCache = cache
	s.cacheTTL = ttl
}

// BuildSummary aggregates usage over the queried range. Unreadable date
// filters fail with InvalidDateError instead of silently defaulting; store
// errors propagate with their cause intact.
func (s *SummaryService) BuildSummary(ctx context.Context, query SummaryQuery, now time.Time) (*UsageSummary, error) {
	started := time.Now()
	summary, err := s.buildWithCache(ctx, query, now)
	if s.usageMetrics != nil {
		s.usageMetrics.RecordSummaryBuild(ctx, time.Since(started), err != nil)
	}
	if err != nil {
		s.logger.Error("Summary build failed", zap.Error(err))
		return nil, err
	}
	return summary, nil
}

// buildWithCache consults the summary cache before computing. Cache failures
// degrade to a plain build; they never fail the request.
func (s *SummaryService) buildWithCache(ctx context.Context, query SummaryQuery, now time.Time) (*UsageSummary, error) {
	if s.summaryCache == nil {
		return s.build(ctx, query, now)
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}
	start, end, err := resolveRange(query, now)
	if err != nil {
		return nil, err
	}

	key := summaryCacheKey(query, start, end)
	if cached, err := s.summaryCache.Get(ctx, key); err != nil {
		s.logger.Warn("Summary cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	summary, err := s.build(ctx, query, now)
	if err != nil {
		return nil, err
	}
	if err := s.summaryCache.Set(ctx, key, summary, s.cacheTTL); err != nil {
		s.logger.Warn("Summary cache write failed", zap.Error(err))
	}
	return summary, nil
}

// summaryCacheKey canonicalizes the query into a stable cache key. Ranges
// resolve to day boundaries, so identical dashboard queries share an entry.
func summaryCacheKey(query SummaryQuery, start, end time.Time) string {
	return strings.Join([]string{
		query.OwnerID,
		query.EventType,
		query.Source,
		query.Model,
		query.UsageContext,
		strconv.FormatInt(start.Unix(), 10),
		strconv.FormatInt(end.Unix(), 10),
	}, "|")
}

func (s *SummaryService) build(ctx context.Context, query SummaryQuery, now time.Time) (*UsageSummary, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	start, end, err := resolveRange(query, now)
	if err != nil {
		return nil, err
	}

	var ownerID *uuid.UUID
	if query.OwnerID != "" {
		parsed, err := uuid.Parse(query.OwnerID)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_OWNER", "User filter must be a valid UUID")
		}
		ownerID = &parsed
	}

	filter := usage.EventFilter{
		OwnerID:      ownerID,
		Source:       query.Source,
		ModelName:    query.Model,
		UsageContext: query.UsageContext,
		Start:        start,
		End:          end,
	}
	if query.EventType != "" {
		eventType := usage.EventType(query.EventType)
		filter.EventType = &eventType
	}

	var (
		totalProfiles int64
		planCounts    map[usage.Plan]int64
		events        []usage.UsageEvent
		counters      []usage.MonthlyUsageCounter
		rollups       []usage.LegacyImportRollup
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if totalProfiles, err = s.profileRepo.CountAll(gctx); err != nil {
			return err
		}
		planCounts, err = s.profileRepo.CountByPlan(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = s.eventRepo.FindInRange(gctx, filter)
		return err
	})
	g.Go(func() error {
		// A range starting mid-month still reports that month's counter
		var err error
		counters, err = s.counterRepo.FindInRange(gctx, usage.PeriodStartFor(start), end, ownerID)
		return err
	})
	g.Go(func() error {
		// Rollups only ever serve the unfiltered fallback
		if query.HasCategoricalFilter() {
			return nil
		}
		var err error
		rollups, err = s.legacyRepo.FindOverlapping(gctx, start, end, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	acc := newAccumulator(start, end)
	if len(events) > 0 || query.HasCategoricalFilter() || len(rollups) == 0 {
		for i := range events {
			acc.addEvent(&events[i])
		}
	} else {
		acc.addLegacyRollups(rollups)
	}

	summary := acc.summary()
	summary.PlanCounts = make(map[string]int64, len(planCounts))
	for plan, count := range planCounts {
		summary.PlanCounts[plan.String()] = count
	}
	summary.ActiveUsers = int64(len(acc.owners))
	if query.HasCategoricalFilter() {
		summary.TotalUsers = int64(len(acc.owners))
	} else {
		summary.TotalUsers = totalProfiles
	}
	summary.MonthlyUsage = monthlyUsageFrom(counters)
	return summary, nil
}

// resolveRange parses the raw date filters and applies the trailing default
// window, yielding inclusive UTC day boundaries.
func resolveRange(query SummaryQuery, now time.Time) (time.Time, time.Time, error) {
	start, err := ParseRangeStart(query.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseRangeEnd(query.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if end.IsZero() {
		end = DayEnd(now)
	}
	if start.IsZero() {
		start = DayStart(end.AddDate(0, 0, -(defaultRangeDays - 1)))
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, shared.NewDomainError("INVALID_RANGE", "Range start is after range end")
	}
	return start, end, nil
}

// accumulator folds events (or legacy rollups) into the summary shape. Every
// calendar day in the range is pre-seeded so the output series never have
// gaps.
type accumulator struct {
	start, end time.Time
	dayIndex   map[string]int

	daily        []DailyUsage
	sourceDaily  []DailyCategoryCount
	modelDaily   []DailyCategoryCount
	contextDaily []DailyCategoryCount
	actionDaily  []DailyActionModel

	bySource    map[string]int64
	byModel     map[string]int64
	byContext   map[string]int64
	modelStats  map[string]*modelAcc
	actionModel map[string]map[string]int64

	totalEvents   int64
	importCredits int64
	aiCredits     int64
	cost          decimal.Decimal

	owners map[uuid.UUID]struct{}

	legacy bool
}

type modelAcc struct {
	events    int64
	aiCredits int64
	cost      decimal.Decimal
}

func newAccumulator(start, end time.Time) *accumulator {
	acc := &accumulator{
		start:       start,
		end:         end,
		dayIndex:    make(map[string]int),
		bySource:    make(map[string]int64),
		byModel:     make(map[string]int64),
		byContext:   make(map[string]int64),
		modelStats:  make(map[string]*modelAcc),
		actionModel: make(map[string]map[string]int64),
		cost:        decimal.Zero,
		owners:      make(map[uuid.UUID]struct{}),
	}

	for day := start; !day.After(end); day = day.Add(24 * time.Hour) {
		label := day.Format(dayFormat)
		acc.dayIndex[label] = len(acc.daily)
		acc.daily = append(acc.daily, DailyUsage{Date: label})
		acc.sourceDaily = append(acc.sourceDaily, DailyCategoryCount{Date: label, Counts: map[string]int64{}})
		acc.modelDaily = append(acc.modelDaily, DailyCategoryCount{Date: label, Counts: map[string]int64{}})
		acc.contextDaily = append(acc.contextDaily, DailyCategoryCount{Date: label, Counts: map[string]int64{}})
		acc.actionDaily = append(acc.actionDaily, DailyActionModel{Date: label, Counts: map[string]map[string]int64{}})
	}
	return acc
}

func (acc *accumulator) addEvent(event *usage.UsageEvent) {
	idx, ok := acc.dayIndex[event.CreatedAt.UTC().Format(dayFormat)]
	if !ok {
		return
	}

	acc.totalEvents++
	acc.importCredits += event.ImportCreditsUsed
	acc.aiCredits += event.AICreditsUsed
	acc.cost = acc.cost.Add(event.CostUSD)
	acc.owners[event.OwnerID] = struct{}{}

	acc.daily[idx].Imports += event.ImportCreditsUsed
	acc.daily[idx].AICredits += event.AICreditsUsed

	source := usage.NormalizeSource(event.Source)
	acc.bySource[source]++
	acc.sourceDaily[idx].Counts[source]++

	model := modelLabel(event.ModelName)
	acc.byModel[model]++
	acc.modelDaily[idx].Counts[model]++

	stats, ok := acc.modelStats[model]
	if !ok {
		stats = &modelAcc{cost: decimal.Zero}
		acc.modelStats[model] = stats
	}
	stats.events++
	stats.aiCredits += event.AICreditsUsed
	stats.cost = stats.cost.Add(event.CostUSD)

	action := event.EventType.String()
	if acc.actionModel[action] == nil {
		acc.actionModel[action] = make(map[string]int64)
	}
	acc.actionModel[action][model]++
	if acc.actionDaily[idx].Counts[action] == nil {
		acc.actionDaily[idx].Counts[action] = make(map[string]int64)
	}
	acc.actionDaily[idx].Counts[action][model]++

	// Untagged events stay out of the context breakdown
	if usageContext := event.UsageContext(); usageContext != "" {
		acc.byContext[usageContext]++
		acc.contextDaily[idx].Counts[usageContext]++
	}
}

// addLegacyRollups serves the pre-event-log history: monthly per-source
// import counts, attributed to each month's first day inside the range.
func (acc *accumulator) addLegacyRollups(rollups []usage.LegacyImportRollup) {
	acc.legacy = true
	for i := range rollups {
		rollup := &rollups[i]

		day := rollup.PeriodStart.UTC()
		if day.Before(acc.start) {
			day = acc.start
		}
		idx, ok := acc.dayIndex[day.Format(dayFormat)]
		if !ok {
			continue
		}

		acc.totalEvents += rollup.Count
		acc.importCredits += rollup.Count
		acc.owners[rollup.OwnerID] = struct{}{}
		acc.daily[idx].Imports += rollup.Count

		source := usage.NormalizeSource(rollup.Source)
		acc.bySource[source] += rollup.Count
		acc.sourceDaily[idx].Counts[source] += rollup.Count
	}
}

func (acc *accumulator) summary() *UsageSummary {
	modelBreakdown := make(map[string]ModelStats, len(acc.modelStats))
	for model, stats := range acc.modelStats {
		modelBreakdown[model] = ModelStats{
			Events:    stats.events,
			AICredits: stats.aiCredits,
			CostUSD:   stats.cost.Round(4).InexactFloat64(),
		}
	}

	return &UsageSummary{
		Start:                acc.start,
		End:                  acc.end,
		TotalEvents:          acc.totalEvents,
		TotalImportCredits:   acc.importCredits,
		TotalAICredits:       acc.aiCredits,
		TotalCostUSD:         acc.cost.Round(4).InexactFloat64(),
		DailySeries:          acc.daily,
		BySource:             acc.bySource,
		ByModel:              acc.byModel,
		ModelBreakdown:       modelBreakdown,
		ActionModelBreakdown: acc.actionModel,
		ByUsageContext:       acc.byContext,
		BySourceDaily:        acc.sourceDaily,
		ByModelDaily:         acc.modelDaily,
		ByUsageContextDaily:  acc.contextDaily,
		ActionModelDaily:     acc.actionDaily,
		LegacyFallback:       acc.legacy,
	}
}

func monthlyUsageFrom(counters []usage.MonthlyUsageCounter) []MonthlyUsage {
	monthly := make([]MonthlyUsage, 0, len(counters))
	byMonth := make(map[string]int)
	for i := range counters {
		counter := &counters[i]
		month := counter.PeriodStart.UTC().Format("2006-01")
		idx, ok := byMonth[month]
		if !ok {
			idx = len(monthly)
			byMonth[month] = idx
			monthly = append(monthly, MonthlyUsage{Month: month})
		}
		monthly[idx].Imports += counter.Imports
		monthly[idx].Translations += counter.Translations
		monthly[idx].Optimizations += counter.Optimizations
		monthly[idx].AIMessages += counter.AIMessages
	}
	sort.Slice(monthly, func(i, j int) bool { return monthly[i].Month < monthly[j].Month })
	return monthly
}

func modelLabel(modelName string) string {
	if strings.TrimSpace(modelName) == "" {
		return NoModelLabel
	}
	return modelName
}
