package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/recipefy/backend/internal/application/analytics"
	"go.uber.org/zap"
)

// Constants for in-memory cache configuration
const (
	defaultCleanupInterval = 30 * time.Second
)

// InMemorySummaryCache implements analytics.SummaryCache using in-memory
// storage. Suitable for single-instance deployments and testing; entries do
// not survive restarts and are not shared across instances.
type InMemorySummaryCache struct {
	entries    sync.Map // map[string]*summaryEntry
	defaultTTL time.Duration
	logger     *zap.Logger
	stopCh     chan struct{}
	stopped    int32 // Atomic flag to track if cache is stopped

	// Stats for monitoring
	hits   int64
	misses int64
}

// summaryEntry wraps a cached summary with expiration time
type summaryEntry struct {
	summary   *analytics.UsageSummary
	expiresAt time.Time
}

// isExpired checks if the cache entry has expired
func (e *summaryEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemorySummaryCacheOption is a functional option for configuring the cache
type InMemorySummaryCacheOption func(*InMemorySummaryCache)

// WithInMemorySummaryTTL sets the TTL applied when Set is called with a zero TTL
func WithInMemorySummaryTTL(ttl time.Duration) InMemorySummaryCacheOption {
	return func(c *InMemorySummaryCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithInMemorySummaryLogger sets the logger for the cache
func WithInMemorySummaryLogger(logger *zap.Logger) InMemorySummaryCacheOption {
	return func(c *InMemorySummaryCache) {
		c.logger = logger
	}
}

// NewInMemorySummaryCache creates a new in-memory summary cache
func NewInMemorySummaryCache(opts ...InMemorySummaryCacheOption) *InMemorySummaryCache {
	cache := &InMemorySummaryCache{
		defaultTTL: defaultSummaryTTL,
		logger:     zap.NewNop(),
		stopCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	// Start background cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// Get retrieves a summary from cache. A miss returns (nil, nil).
func (c *InMemorySummaryCache) Get(ctx context.Context, key string) (*analytics.UsageSummary, error) {
	value, ok := c.entries.Load(key)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, nil
	}

	e := value.(*summaryEntry)
	if e.isExpired() {
		c.entries.Delete(key)
		atomic.AddInt64(&c.misses, 1)
		return nil, nil
	}

	atomic.AddInt64(&c.hits, 1)
	return e.summary, nil
}

// Set stores a summary in cache
func (c *InMemorySummaryCache) Set(ctx context.Context, key string, summary *analytics.UsageSummary, ttl time.Duration) error {
	if summary == nil {
		return nil
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	c.entries.Store(key, &summaryEntry{
		summary:   summary,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// InvalidateAll removes all cached summaries
func (c *InMemorySummaryCache) InvalidateAll(ctx context.Context) error {
	count := 0
	c.entries.Range(func(key, _ interface{}) bool {
		c.entries.Delete(key)
		count++
		return true
	})

	c.logger.Debug("Invalidated in-memory summary cache",
		zap.Int("deleted_count", count))
	return nil
}

// Stats returns hit and miss counters (for testing/monitoring)
func (c *InMemorySummaryCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemorySummaryCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// cleanupExpired periodically removes expired entries
func (c *InMemorySummaryCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.entries.Range(func(key, value interface{}) bool {
				if value.(*summaryEntry).isExpired() {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}

// Ensure InMemorySummaryCache implements SummaryCache
var _ analytics.SummaryCache = (*InMemorySummaryCache)(nil)
