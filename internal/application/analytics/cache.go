package analytics

import (
	"context"
	"time"
)

// SummaryCache is a read-through cache for built summaries. A miss is
// (nil, nil); errors are reserved for backend failures. Implementations must
// be safe for concurrent use.
type SummaryCache interface {
	// Get retrieves a cached summary by key
	Get(ctx context.Context, key string) (*UsageSummary, error)

	// Set stores a summary under the key for the given TTL
	Set(ctx context.Context, key string, summary *UsageSummary, ttl time.Duration) error

	// InvalidateAll drops every cached summary
	InvalidateAll(ctx context.Context) error

	// Close releases any resources held by the cache
	Close() error
}
