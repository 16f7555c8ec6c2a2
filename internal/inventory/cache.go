package inventory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// SummaryCache caches the aggregated inventory view. The summary is the one
// hot read path (dashboards poll it), so a short TTL is enough.
type SummaryCache interface {
	Get(ctx context.Context) (*Summary, bool)
	Set(ctx context.Context, summary *Summary)
	Invalidate(ctx context.Context)
}

const summaryCacheKey = "hemobank:inventory:summary"

// RedisSummaryCache stores the summary as JSON under a single key.
type RedisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{client: client, ttl: ttl}
}

func (c *RedisSummaryCache) Get(ctx context.Context) (*Summary, bool) {
	raw, err := c.client.Get(ctx, summaryCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var summary Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false
	}
	return &summary, true
}

func (c *RedisSummaryCache) Set(ctx context.Context, summary *Summary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	// Cache writes are best-effort; the store remains the source of truth.
	_ = c.client.Set(ctx, summaryCacheKey, raw, c.ttl).Err()
}

func (c *RedisSummaryCache) Invalidate(ctx context.Context) {
	_ = c.client.Del(ctx, summaryCacheKey).Err()
}

// NoopSummaryCache is used when Redis is not configured.
type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(context.Context) (*Summary, bool) { return nil, false }
func (NoopSummaryCache) Set(context.Context, *Summary)        {}
func (NoopSummaryCache) Invalidate(context.Context)           {}
