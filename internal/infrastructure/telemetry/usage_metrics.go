// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// UsageMetrics provides business metrics for the quota and usage system.
// It tracks gate decisions, event log throughput and profile population.
type UsageMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	gateDecisionTotal   *Counter
	eventsIngestedTotal *Counter
	eventsDroppedTotal  *Counter
	batchWriteTotal     *Counter

	// Duration distributions
	batchWriteDuration   *Histogram
	summaryBuildDuration *Histogram

	// Gauge metrics (point-in-time values)
	profileCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	profileProvider ProfileCountProvider
}

// ProfileCountProvider provides quota profile data for periodic metrics
// collection. The interface keeps the telemetry layer free of a direct
// dependency on the usage domain.
type ProfileCountProvider interface {
	// CountProfilesByPlan returns the number of quota profiles per plan tier
	CountProfilesByPlan(ctx context.Context) (map[string]int64, error)
}

// UsageMetricsConfig holds configuration for usage metrics.
type UsageMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	ProfileProvider ProfileCountProvider
}

// NewUsageMetrics creates a new UsageMetrics instance.
func NewUsageMetrics(cfg UsageMetricsConfig) (*UsageMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	um := &UsageMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		profileProvider: cfg.ProfileProvider,
	}

	var err error

	um.gateDecisionTotal, err = NewCounter(
		cfg.Meter,
		"recipefy_usage_gate_decisions_total",
		"Total number of consume gate decisions",
		"{decisions}",
	)
	if err != nil {
		return nil, err
	}

	um.eventsIngestedTotal, err = NewCounter(
		cfg.Meter,
		"recipefy_usage_events_ingested_total",
		"Total number of usage events appended to the log",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	um.eventsDroppedTotal, err = NewCounter(
		cfg.Meter,
		"recipefy_usage_events_dropped_total",
		"Total number of usage events dropped because the write buffer was full",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	um.batchWriteTotal, err = NewCounter(
		cfg.Meter,
		"recipefy_usage_batch_writes_total",
		"Total number of usage event batch writes",
		"{batches}",
	)
	if err != nil {
		return nil, err
	}

	um.batchWriteDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "recipefy_usage_batch_write_duration_seconds",
		Description: "Duration of usage event batch writes",
		Unit:        "s",
	})
	if err != nil {
		return nil, err
	}

	um.summaryBuildDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "recipefy_usage_summary_build_duration_seconds",
		Description: "Duration of analytics summary builds",
		Unit:        "s",
	})
	if err != nil {
		return nil, err
	}

	um.profileCount, err = NewGauge(
		cfg.Meter,
		"recipefy_usage_profile_count",
		"Number of quota profiles per plan tier",
		"{profiles}",
	)
	if err != nil {
		return nil, err
	}

	return um, nil
}

// =============================================================================
// Gate Metrics
// =============================================================================

// GateOutcome labels the result of one consume gate evaluation.
type GateOutcome string

const (
	GateOutcomeConsumed GateOutcome = "consumed"
	GateOutcomeAllowed  GateOutcome = "allowed"
	GateOutcomeDenied   GateOutcome = "denied"
)

// RecordGateDecision records one consume gate decision. The reason is only
// attached on denials.
func (um *UsageMetrics) RecordGateDecision(ctx context.Context, kind string, outcome GateOutcome, reason string) {
	attrs := []attribute.KeyValue{
		AttrActionKind.String(kind),
		AttrGateOutcome.String(string(outcome)),
	}
	if reason != "" {
		attrs = append(attrs, AttrDenyReason.String(reason))
	}
	um.gateDecisionTotal.Inc(ctx, attrs...)
}

// =============================================================================
// Event Log Metrics
// =============================================================================

// RecordEventsIngested records successfully appended usage events.
func (um *UsageMetrics) RecordEventsIngested(ctx context.Context, count int64) {
	um.eventsIngestedTotal.Add(ctx, count)
}

// RecordEventsDropped records usage events dropped under backpressure.
func (um *UsageMetrics) RecordEventsDropped(ctx context.Context, count int64) {
	um.eventsDroppedTotal.Add(ctx, count)
}

// RecordBatchWrite records one batch write of the async event recorder.
func (um *UsageMetrics) RecordBatchWrite(ctx context.Context, duration time.Duration, failed bool) {
	result := resultSuccess
	if failed {
		result = resultFailure
	}
	um.batchWriteTotal.Inc(ctx, AttrResult.String(result))
	um.batchWriteDuration.RecordDuration(ctx, duration, AttrResult.String(result))
}

// =============================================================================
// Analytics Metrics
// =============================================================================

// RecordSummaryBuild records one analytics summary build.
func (um *UsageMetrics) RecordSummaryBuild(ctx context.Context, duration time.Duration, failed bool) {
	result := resultSuccess
	if failed {
		result = resultFailure
	}
	um.summaryBuildDuration.RecordDuration(ctx, duration, AttrResult.String(result))
}

// =============================================================================
// Profile Metrics
// =============================================================================

// RecordProfileCount records the current number of profiles on a plan tier.
// This is a gauge metric that should be updated periodically.
func (um *UsageMetrics) RecordProfileCount(ctx context.Context, plan string, count int64) {
	um.profileCount.Record(ctx, count,
		AttrPlan.String(plan),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects profile counts every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (um *UsageMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	um.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go um.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (um *UsageMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	um.collectProfileMetrics(ctx)

	for {
		select {
		case <-um.stopChan:
			um.logger.Info("Stopping periodic usage metrics collection")
			return
		case <-ctx.Done():
			um.logger.Info("Context cancelled, stopping periodic usage metrics collection")
			return
		case <-ticker.C:
			um.collectProfileMetrics(ctx)
		}
	}
}

// collectProfileMetrics collects the profile count gauges.
func (um *UsageMetrics) collectProfileMetrics(ctx context.Context) {
	if um.profileProvider == nil {
		um.logger.Debug("No profile provider configured, skipping profile metrics collection")
		return
	}

	counts, err := um.profileProvider.CountProfilesByPlan(ctx)
	if err != nil {
		um.logger.Error("Failed to count profiles for metrics collection", zap.Error(err))
		return
	}

	for plan, count := range counts {
		um.RecordProfileCount(ctx, plan, count)
	}
}

// Stop stops the periodic collection.
func (um *UsageMetrics) Stop() {
	um.stopOnce.Do(func() {
		close(um.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewUsageMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Usage metrics attribute keys not already defined in metrics.go
var (
	AttrActionKind  = attribute.Key("action_kind")
	AttrGateOutcome = attribute.Key("outcome")
	AttrDenyReason  = attribute.Key("reason")
	AttrPlan        = attribute.Key("plan")
	AttrResult      = attribute.Key("result")
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)
