package tiny

import (
	"context"
	"strconv"
	"time"

	"github.com/faelmarcondeli/backorder-confirmation/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// IDCache maps local order ids to remote Tiny ids with an expiry. Concurrent
// misses may both hit the search endpoint; last writer wins, which is fine.
type IDCache interface {
	Get(ctx context.Context, orderID int64) (int64, bool)
	Set(ctx context.Context, orderID int64, tinyID int64, ttl time.Duration)
}

type RedisIDCache struct{ RDB *redis.Client }

func (c *RedisIDCache) Get(ctx context.Context, orderID int64) (int64, bool) {
	raw, err := c.RDB.Get(ctx, redisx.Key(redisx.KeyTinyOrderID, orderID)).Result()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (c *RedisIDCache) Set(ctx context.Context, orderID int64, tinyID int64, ttl time.Duration) {
	_ = c.RDB.Set(ctx, redisx.Key(redisx.KeyTinyOrderID, orderID), strconv.FormatInt(tinyID, 10), ttl).Err()
}
