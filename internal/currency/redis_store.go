package currency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the last good quote under a single key.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	return &RedisStore{rdb: rdb, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (Quote, bool, error) {
	bs, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Quote{}, false, nil
	}
	if err != nil {
		return Quote{}, false, err
	}
	var q Quote
	if err := json.Unmarshal(bs, &q); err != nil {
		return Quote{}, false, err
	}
	return q, true, nil
}

func (s *RedisStore) Save(ctx context.Context, q Quote, ttl time.Duration) error {
	bs, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, bs, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
