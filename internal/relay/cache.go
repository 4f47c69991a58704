package relay

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusCache bounds the cost of status queries against the remote system.
// Entries expire after a fixed window and are invalidated eagerly after any
// successful confirmation. A cache backend failure is never fatal: Get
// degrades to a miss, Put and Invalidate are best effort. Invalidation may
// race with a concurrent rebuild; either losing outcome (one stale read or
// one extra rebuild) is acceptable.
type StatusCache interface {
	Get(ctx context.Context) (*AggregatedReport, bool)
	Put(ctx context.Context, report *AggregatedReport)
	Invalidate(ctx context.Context)
}

type memoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	report  *AggregatedReport
	builtAt time.Time
}

// NewMemoryCache is the single-process default backend.
func NewMemoryCache(ttl time.Duration) StatusCache {
	return &memoryCache{ttl: ttl, now: time.Now}
}

func (c *memoryCache) Get(ctx context.Context) (*AggregatedReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.report == nil || c.now().Sub(c.builtAt) >= c.ttl {
		return nil, false
	}
	return c.report, true
}

func (c *memoryCache) Put(ctx context.Context, report *AggregatedReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report = report
	c.builtAt = c.now()
}

func (c *memoryCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report = nil
}

const redisCacheKey = "cache:status"

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache shares the cached report across replicas. Expiry rides on the
// Redis key TTL, invalidation is a plain DEL.
func NewRedisCache(client *redis.Client, ttl time.Duration) StatusCache {
	return &redisCache{client: client, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context) (*AggregatedReport, bool) {
	raw, err := c.client.Get(ctx, redisCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("status cache read failed: %v", err)
		}
		return nil, false
	}

	var report AggregatedReport
	if err := json.Unmarshal(raw, &report); err != nil {
		log.Printf("status cache entry corrupt, treating as miss: %v", err)
		return nil, false
	}
	return &report, true
}

func (c *redisCache) Put(ctx context.Context, report *AggregatedReport) {
	raw, err := json.Marshal(report)
	if err != nil {
		log.Printf("status cache encode failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, redisCacheKey, raw, c.ttl).Err(); err != nil {
		log.Printf("status cache write failed: %v", err)
	}
}

func (c *redisCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, redisCacheKey).Err(); err != nil {
		log.Printf("status cache invalidation failed: %v", err)
	}
}
