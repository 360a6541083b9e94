package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/recipefy/backend/internal/application/analytics"
	"go.uber.org/zap"
)

// SummaryBuilder is the slice of the analytics service the warm loop needs
type SummaryBuilder interface {
	BuildSummary(ctx context.Context, query analytics.SummaryQuery, now time.Time) (*analytics.UsageSummary, error)
}

// SummaryWarmScheduler periodically rebuilds the default dashboard summary.
// With the read-through cache wired in, each run leaves a fresh entry behind,
// so the first request after a deploy or a cache flush never pays for a cold
// scan.
type SummaryWarmScheduler struct {
	builder   SummaryBuilder
	logger    *zap.Logger
	config    SummaryWarmSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// SummaryWarmSchedulerConfig holds configuration for the warm scheduler
type SummaryWarmSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval is how often the default summary is rebuilt
	Interval time.Duration

	// WarmTimeout is the maximum time for one warm run
	WarmTimeout time.Duration
}

// DefaultSummaryWarmSchedulerConfig returns default configuration
func DefaultSummaryWarmSchedulerConfig() SummaryWarmSchedulerConfig {
	return SummaryWarmSchedulerConfig{
		Enabled:     true,
		Interval:    15 * time.Minute,
		WarmTimeout: 2 * time.Minute,
	}
}

// NewSummaryWarmScheduler creates a new summary warm scheduler
func NewSummaryWarmScheduler(
	builder SummaryBuilder,
	logger *zap.Logger,
	config SummaryWarmSchedulerConfig,
) *SummaryWarmScheduler {
	return &SummaryWarmScheduler{
		builder: builder,
		logger:  logger,
		config:  config,
	}
}

// Start starts the warm loop
func (s *SummaryWarmScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Summary warm scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runWarmLoop(ctx)

	s.logger.Info("Summary warm scheduler started",
		zap.Duration("interval", s.config.Interval),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *SummaryWarmScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	// Wait for goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Summary warm scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Summary warm scheduler stop timed out")
		return ctx.Err()
	}
}

// runWarmLoop rebuilds the summary on every tick. The first run happens at
// startup so a fresh deploy begins with a warm cache.
func (s *SummaryWarmScheduler) runWarmLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.executeWarm(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Summary warm loop stopping")
			return
		case <-ticker.C:
			s.executeWarm(ctx)
		}
	}
}

// executeWarm builds the default trailing-30-day summary
func (s *SummaryWarmScheduler) executeWarm(ctx context.Context) {
	warmCtx, cancel := context.WithTimeout(ctx, s.config.WarmTimeout)
	defer cancel()

	startTime := time.Now()
	summary, err := s.builder.BuildSummary(warmCtx, analytics.SummaryQuery{}, time.Now().UTC())
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Summary warm run failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Summary warm run completed",
		zap.Duration("duration", duration),
		zap.Int64("total_events", summary.TotalEvents),
	)
}

// TriggerImmediateWarm triggers a warm run outside the schedule
func (s *SummaryWarmScheduler) TriggerImmediateWarm(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate summary warm run")

	// Run in a goroutine to not block
	go func() {
		defer s.wg.Done()
		s.executeWarm(ctx)
	}()

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *SummaryWarmScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
