package cache

import (
	"context"
	"sync"
	"time"

	"github.com/recipefy/backend/internal/application/analytics"
	"github.com/recipefy/backend/internal/application/billing"
	"github.com/recipefy/backend/internal/domain/shared"
	"github.com/recipefy/backend/internal/domain/usage"
	"go.uber.org/zap"
)

// Constants for invalidator configuration
const (
	defaultInvalidateDebounce = 2 * time.Second
	invalidateTimeout         = 5 * time.Second
)

// SummaryCacheInvalidator drops cached summaries when usage or quota state
// changes. It subscribes to the in-process event bus; because the cache
// itself is shared (Redis), one instance invalidating covers all of them.
// Invalidations are debounced so event bursts trigger a single flush.
type SummaryCacheInvalidator struct {
	cache    analytics.SummaryCache
	debounce time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// SummaryCacheInvalidatorOption is a functional option for configuring the invalidator
type SummaryCacheInvalidatorOption func(*SummaryCacheInvalidator)

// WithInvalidateDebounce sets the flush debounce window
func WithInvalidateDebounce(d time.Duration) SummaryCacheInvalidatorOption {
	return func(i *SummaryCacheInvalidator) {
		if d > 0 {
			i.debounce = d
		}
	}
}

// WithInvalidatorLogger sets the logger for the invalidator
func WithInvalidatorLogger(logger *zap.Logger) SummaryCacheInvalidatorOption {
	return func(i *SummaryCacheInvalidator) {
		i.logger = logger
	}
}

// NewSummaryCacheInvalidator creates a new SummaryCacheInvalidator
func NewSummaryCacheInvalidator(cache analytics.SummaryCache, opts ...SummaryCacheInvalidatorOption) *SummaryCacheInvalidator {
	invalidator := &SummaryCacheInvalidator{
		cache:    cache,
		debounce: defaultInvalidateDebounce,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(invalidator)
	}

	return invalidator
}

// EventTypes returns the event types that stale the summary cache
func (i *SummaryCacheInvalidator) EventTypes() []string {
	return []string{
		usage.EventTypeUsageRecorded,
		billing.EventTypePlanSynced,
		billing.EventTypeAddonGranted,
	}
}

// Handle schedules a debounced cache flush. The event payload does not
// matter; any covered event means previously built summaries are stale.
func (i *SummaryCacheInvalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	if i.timer != nil {
		// A flush is already scheduled; this event rides along
		return nil
	}

	i.timer = time.AfterFunc(i.debounce, i.flush)
	return nil
}

// flush drops all cached summaries
func (i *SummaryCacheInvalidator) flush() {
	i.mu.Lock()
	i.timer = nil
	closed := i.closed
	i.mu.Unlock()

	if closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()

	if err := i.cache.InvalidateAll(ctx); err != nil {
		i.logger.Error("Failed to invalidate summary cache", zap.Error(err))
		return
	}
	i.logger.Debug("Summary cache invalidated")
}

// Close cancels any pending flush. Safe to call multiple times.
func (i *SummaryCacheInvalidator) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.closed = true
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	return nil
}

// Ensure SummaryCacheInvalidator implements EventHandler
var _ shared.EventHandler = (*SummaryCacheInvalidator)(nil)
