package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	return r.WithTimeout(2 * time.Second)
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Dedup tracks (scope, id) pairs that finished processing. Seen and Mark are
// split so callers mark only after their work succeeded; the window between
// two concurrent firings is tolerated by the downstream idempotency guards.
type Dedup struct{ RDB *redis.Client }

func (d *Dedup) Seen(ctx context.Context, scope, id string) (bool, error) {
	return Exists(ctx, d.RDB, Key(KeyDedup, scope, id))
}

func (d *Dedup) Mark(ctx context.Context, scope, id string) error {
	return d.RDB.Set(ctx, Key(KeyDedup, scope, id), "1", TTLDedup).Err()
}
