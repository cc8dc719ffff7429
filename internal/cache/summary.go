// Package cache publishes the latest run summary to Redis so observers
// (dashboards, operator tooling) can poll run state without touching the
// structured result store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aditywn/csv-pickup/internal/config"
	"github.com/aditywn/csv-pickup/internal/pipeline"
)

const (
	summaryKeyPrefix = "pickup:summary"
	defaultTTL       = time.Hour
)

// SummaryCache records the most recent RunSummary per job name.
type SummaryCache interface {
	SetSummary(ctx context.Context, summary *pipeline.RunSummary) error
	GetSummary(ctx context.Context) (*pipeline.RunSummary, bool, error)
	Close() error
}

type redisSummaryCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

type noopSummaryCache struct{}

// NewSummaryCache returns a Redis-backed cache when enabled, otherwise a
// no-op implementation so callers never branch on configuration.
func NewSummaryCache(cfg config.CacheConfig) (SummaryCache, error) {
	if !cfg.Enabled {
		return &noopSummaryCache{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &redisSummaryCache{
		client: client,
		key:    fmt.Sprintf("%s:%s", summaryKeyPrefix, cfg.JobName),
		ttl:    ttl,
	}, nil
}

func (c *redisSummaryCache) SetSummary(ctx context.Context, summary *pipeline.RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	if err := c.client.Set(ctx, c.key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache run summary: %w", err)
	}
	return nil
}

func (c *redisSummaryCache) GetSummary(ctx context.Context) (*pipeline.RunSummary, bool, error) {
	payload, err := c.client.Get(ctx, c.key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached summary: %w", err)
	}
	var summary pipeline.RunSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return &summary, true, nil
}

func (c *redisSummaryCache) Close() error {
	return c.client.Close()
}

func (n *noopSummaryCache) SetSummary(ctx context.Context, summary *pipeline.RunSummary) error {
	return nil
}

func (n *noopSummaryCache) GetSummary(ctx context.Context) (*pipeline.RunSummary, bool, error) {
	return nil, false, nil
}

func (n *noopSummaryCache) Close() error { return nil }
