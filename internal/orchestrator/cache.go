package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fantasygrid/gameday/internal/scoring"
	"github.com/fantasygrid/gameday/pkg/logger"
)

// ResultCache memoizes full gameday results in redis. All methods are
// nil-receiver safe so the cache stays strictly optional.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ResultCache{client: client, ttl: ttl}
}

func resultKey(rs scoring.Ruleset, season, week int, includeInjuries bool) string {
	return fmt.Sprintf("gameday:result:%s:%d:%d:inj=%t", rs.Slug(), season, week, includeInjuries)
}

func (c *ResultCache) Get(ctx context.Context, rs scoring.Ruleset, season, week int, includeInjuries bool) *Result {
	if c == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, resultKey(rs, season, week, includeInjuries)).Bytes()
	if err != nil {
		return nil
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		logger.WithComponent("result_cache").WithError(err).Warn("Corrupt cached result dropped")
		return nil
	}
	return &result
}

func (c *ResultCache) Put(ctx context.Context, rs scoring.Ruleset, season, week int, includeInjuries bool, result *Result) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, resultKey(rs, season, week, includeInjuries), raw, c.ttl).Err(); err != nil {
		logger.WithComponent("result_cache").WithError(err).Warn("Result cache write failed")
	}
}
