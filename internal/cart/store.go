package cart

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/faelmarcondeli/backorder-confirmation/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// Store keeps carts in Redis under cart:{id} with a sliding TTL.
type Store struct{ RDB *redis.Client }

func (s *Store) Get(ctx context.Context, cartID string) (*Cart, error) {
	raw, err := s.RDB.Get(ctx, redisx.Key(redisx.KeyCart, cartID)).Result()
	if errors.Is(err, redis.Nil) {
		return &Cart{}, nil
	}
	if err != nil {
		return nil, err
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) Save(ctx context.Context, cartID string, c *Cart) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.RDB.Set(ctx, redisx.Key(redisx.KeyCart, cartID), b, redisx.TTLCart).Err()
}

func (s *Store) Clear(ctx context.Context, cartID string) error {
	return s.RDB.Del(ctx, redisx.Key(redisx.KeyCart, cartID)).Err()
}
