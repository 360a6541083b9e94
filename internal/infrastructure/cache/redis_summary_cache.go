package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/recipefy/backend/internal/application/analytics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Constants for Redis cache configuration
const (
	defaultScanBatchSize = 100
	summaryKeyPrefix     = "usage:summary:"
	defaultSummaryTTL    = 5 * time.Minute
)

// RedisSummaryCache implements analytics.SummaryCache using Redis. Entries
// are JSON-encoded summaries keyed by the canonical query string.
type RedisSummaryCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	defaultTTL time.Duration
	logger     *zap.Logger
}

// RedisSummaryCacheOption is a functional option for configuring the cache
type RedisSummaryCacheOption func(*RedisSummaryCache)

// WithSummaryTTL sets the TTL applied when Set is called with a zero TTL
func WithSummaryTTL(ttl time.Duration) RedisSummaryCacheOption {
	return func(c *RedisSummaryCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithSummaryCacheLogger sets the logger for the cache
func WithSummaryCacheLogger(logger *zap.Logger) RedisSummaryCacheOption {
	return func(c *RedisSummaryCache) {
		c.logger = logger
	}
}

// NewRedisSummaryCache creates a new Redis-based summary cache
func NewRedisSummaryCache(cfg RedisConfig, opts ...RedisSummaryCacheOption) (*RedisSummaryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisSummaryCache{
		client:     client,
		ownsClient: true, // We created this client, so we own it
		defaultTTL: defaultSummaryTTL,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// NewRedisSummaryCacheWithClient creates a cache with an existing Redis client
// Note: The caller retains ownership of the client and is responsible for closing it
func NewRedisSummaryCacheWithClient(client *redis.Client, opts ...RedisSummaryCacheOption) *RedisSummaryCache {
	cache := &RedisSummaryCache{
		client:     client,
		ownsClient: false, // Client is shared, don't close it
		defaultTTL: defaultSummaryTTL,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// summaryCacheKey generates the Redis key for a summary entry
func (c *RedisSummaryCache) summaryCacheKey(key string) string {
	return summaryKeyPrefix + key
}

// Get retrieves a summary from cache. A miss returns (nil, nil).
func (c *RedisSummaryCache) Get(ctx context.Context, key string) (*analytics.UsageSummary, error) {
	cacheKey := c.summaryCacheKey(key)

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err == redis.Nil {
		// Cache miss
		c.logger.Debug("Cache miss for usage summary", zap.String("key", key))
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to get usage summary from cache",
			zap.String("key", key),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get summary from cache: %w", err)
	}

	var summary analytics.UsageSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		c.logger.Error("Failed to unmarshal usage summary",
			zap.String("key", key),
			zap.Error(err))
		// Delete corrupted cache entry
		_ = c.client.Del(ctx, cacheKey)
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}

	c.logger.Debug("Cache hit for usage summary", zap.String("key", key))
	return &summary, nil
}

// Set stores a summary in cache
func (c *RedisSummaryCache) Set(ctx context.Context, key string, summary *analytics.UsageSummary, ttl time.Duration) error {
	if summary == nil {
		return nil
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cacheKey := c.summaryCacheKey(key)

	data, err := json.Marshal(summary)
	if err != nil {
		c.logger.Error("Failed to marshal usage summary",
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		c.logger.Error("Failed to set usage summary in cache",
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to set summary in cache: %w", err)
	}

	c.logger.Debug("Cached usage summary",
		zap.String("key", key),
		zap.Duration("ttl", ttl))
	return nil
}

// InvalidateAll removes all cached summaries
func (c *RedisSummaryCache) InvalidateAll(ctx context.Context) error {
	// Use SCAN to find keys to avoid blocking Redis with KEYS command
	var cursor uint64
	var deletedCount int64

	for {
		var keys []string
		var err error
		keys, cursor, err = c.client.Scan(ctx, cursor, summaryKeyPrefix+"*", defaultScanBatchSize).Result()
		if err != nil {
			c.logger.Error("Failed to scan summary cache keys", zap.Error(err))
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			deleted, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				c.logger.Error("Failed to delete summary cache keys", zap.Error(err))
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deletedCount += deleted
		}

		if cursor == 0 {
			break
		}
	}

	c.logger.Debug("Invalidated summary cache",
		zap.Int64("deleted_count", deletedCount))
	return nil
}

// Close releases any resources held by the cache
func (c *RedisSummaryCache) Close() error {
	// Only close client if we own it
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisSummaryCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisSummaryCache implements SummaryCache
var _ analytics.SummaryCache = (*RedisSummaryCache)(nil)
