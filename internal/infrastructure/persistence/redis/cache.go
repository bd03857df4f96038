package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"biocup-api/internal/domain/entity"
	"biocup-api/pkg/logger"
)

const resultKeyPrefix = "biocup:result:"

// ResultCache caches result documents by id. Cache failures are logged
// and swallowed: the database stays the source of truth.
type ResultCache struct {
	rdb *redis.Client
	ttl time.Duration
	sf  singleflight.Group
}

func NewResultCache(client *Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultCache{rdb: client.Redis(), ttl: ttl}
}

func (c *ResultCache) Get(ctx context.Context, id string) (*entity.ResultDocument, bool) {
	// Collapse concurrent reads of the same result into one round trip.
	v, err, _ := c.sf.Do(id, func() (any, error) {
		return c.rdb.Get(ctx, resultKeyPrefix+id).Bytes()
	})
	if err != nil {
		if err != redis.Nil {
			logger.Warn(ctx, "result cache read failed", "result_id", id, "error", err.Error())
		}
		return nil, false
	}

	var result entity.ResultDocument
	if err := json.Unmarshal(v.([]byte), &result); err != nil {
		logger.Warn(ctx, "result cache entry corrupt", "result_id", id, "error", err.Error())
		return nil, false
	}
	return &result, true
}

func (c *ResultCache) Set(ctx context.Context, result *entity.ResultDocument) {
	data, err := json.Marshal(result)
	if err != nil {
		logger.Warn(ctx, "result cache marshal failed", "result_id", result.ID, "error", err.Error())
		return
	}
	if err := c.rdb.Set(ctx, resultKeyPrefix+result.ID, data, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "result cache write failed", "result_id", result.ID, "error", err.Error())
	}
}
