package analytics

import "time"

// SummaryQuery carries the optional dashboard filters. Start and End stay
// raw strings here; the service parses them and rejects unreadable values.
type SummaryQuery struct {
	OwnerID      string `form:"userId" binding:"omitempty,uuid"`
	EventType    string `form:"eventType"`
	Source       string `form:"source"`
	Model        string `form:"model"`
	UsageContext string `form:"usageContext"`
	Start        string `form:"start"`
	End          string `form:"end"`
}

// HasCategoricalFilter reports whether any filter narrows the event scan.
// The legacy rollup fallback is only permitted on an unfiltered query.
func (q SummaryQuery) HasCategoricalFilter() bool {
	return q.OwnerID != "" || q.EventType != "" || q.Source != "" ||
		q.Model != "" || q.UsageContext != ""
}

// DailyUsage is one zero-filled day of the main chart series
type DailyUsage struct {
	Date      string `json:"date"`
	Imports   int64  `json:"imports"`
	AICredits int64  `json:"aiCredits"`
}

// DailyCategoryCount is one day of a per-category series. Counts is keyed by
// the category label (source, model or usage context).
type DailyCategoryCount struct {
	Date   string           `json:"date"`
	Counts map[string]int64 `json:"counts"`
}

// DailyActionModel is one day of the action-model series, keyed first by
// action kind and then by model label.
type DailyActionModel struct {
	Date   string                      `json:"date"`
	Counts map[string]map[string]int64 `json:"counts"`
}

// ModelStats aggregates the events served by one model
type ModelStats struct {
	Events    int64   `json:"events"`
	AICredits int64   `json:"aiCredits"`
	CostUSD   float64 `json:"costUsd"`
}

// MonthlyUsage is the per-kind counter total of one billing month
type MonthlyUsage struct {
	Month         string `json:"month"`
	Imports       int64  `json:"imports"`
	Translations  int64  `json:"translations"`
	Optimizations int64  `json:"optimizations"`
	AIMessages    int64  `json:"aiMessages"`
}

// UsageSummary is the dashboard aggregation over one date range
type UsageSummary struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	TotalUsers  int64            `json:"totalUsers"`
	ActiveUsers int64            `json:"activeUsers"`
	PlanCounts  map[string]int64 `json:"planCounts"`

	TotalEvents        int64   `json:"totalEvents"`
	TotalImportCredits int64   `json:"totalImportCredits"`
	TotalAICredits     int64   `json:"totalAiCredits"`
	TotalCostUSD       float64 `json:"totalCostUsd"`

	DailySeries []DailyUsage `json:"dailySeries"`

	BySource             map[string]int64            `json:"bySource"`
	ByModel              map[string]int64            `json:"byModel"`
	ModelBreakdown       map[string]ModelStats       `json:"modelBreakdown"`
	ActionModelBreakdown map[string]map[string]int64 `json:"actionModelBreakdown"`
	ByUsageContext       map[string]int64            `json:"byUsageContext"`

	BySourceDaily       []DailyCategoryCount `json:"bySourceDaily"`
	ByModelDaily        []DailyCategoryCount `json:"byModelDaily"`
	ByUsageContextDaily []DailyCategoryCount `json:"byUsageContextDaily"`
	ActionModelDaily    []DailyActionModel   `json:"actionModelDaily"`

	MonthlyUsage []MonthlyUsage `json:"monthlyUsage"`

	// LegacyFallback marks a summary served from the pre-event-log monthly
	// import rollups instead of event-level data.
	LegacyFallback bool `json:"legacyFallback"`
}
