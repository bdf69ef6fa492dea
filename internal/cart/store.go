package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/mars-shop.git/internal/redisx"
)

// RedisStore keeps one JSON document per user that expires with the cart.
type RedisStore struct {
	RDB redis.UniversalClient
}

func key(userID int64) string { return fmt.Sprintf(redisx.KeyCart, userID) }

// Load returns nil when the user has no cart.
func (s *RedisStore) Load(ctx context.Context, userID int64) (*Cart, error) {
	b, err := s.RDB.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c Cart
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode cart of user %d: %w", userID, err)
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, userID int64, c Cart) error {
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, userID)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.RDB.Set(ctx, key(userID), b, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	return s.RDB.Del(ctx, key(userID)).Err()
}
