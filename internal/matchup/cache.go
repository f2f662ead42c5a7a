package matchup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fantasygrid/gameday/pkg/logger"
)

// Cache memoizes strength and profile values per (team, season, week) in
// redis. All methods are nil-receiver safe; a nil cache disables
// memoization. Cache failures only log — the analyzer recomputes.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

func offenseKey(teamID string, season, week int) string {
	return fmt.Sprintf("matchup:offense:%s:%d:%d", teamID, season, week)
}

func defenseKey(teamID string, season, week int) string {
	return fmt.Sprintf("matchup:defense:%s:%d:%d", teamID, season, week)
}

func profileKey(teamID string, season, week int) string {
	return fmt.Sprintf("matchup:profile:%s:%d:%d", teamID, season, week)
}

func (c *Cache) getOffense(ctx context.Context, teamID string, season, week int) (OffensiveStrength, bool) {
	var out OffensiveStrength
	return out, c.get(ctx, offenseKey(teamID, season, week), &out)
}

func (c *Cache) putOffense(ctx context.Context, v OffensiveStrength) {
	c.put(ctx, offenseKey(v.TeamID, v.Season, v.Week), v)
}

func (c *Cache) getDefense(ctx context.Context, teamID string, season, week int) (DefensiveStrength, bool) {
	var out DefensiveStrength
	return out, c.get(ctx, defenseKey(teamID, season, week), &out)
}

func (c *Cache) putDefense(ctx context.Context, v DefensiveStrength) {
	c.put(ctx, defenseKey(v.TeamID, v.Season, v.Week), v)
}

func (c *Cache) getProfile(ctx context.Context, teamID string, season, week int) (PositionDefensiveProfile, bool) {
	var out PositionDefensiveProfile
	return out, c.get(ctx, profileKey(teamID, season, week), &out)
}

func (c *Cache) putProfile(ctx context.Context, v PositionDefensiveProfile) {
	c.put(ctx, profileKey(v.TeamID, v.Season, v.Week), v)
}

func (c *Cache) get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		logger.WithComponent("matchup").WithField("key", key).
			WithError(err).Warn("Discarding undecodable cache entry")
		return false
	}
	return true
}

func (c *Cache) put(ctx context.Context, key string, v interface{}) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.WithComponent("matchup").WithField("key", key).
			WithError(err).Debug("Cache write failed")
	}
}
