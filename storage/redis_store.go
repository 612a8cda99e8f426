package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore implements Store on a Redis server. Keys are written without a Redis
// expiry; callers that need a TTL encode it in the value.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// KeyPrefix namespaces every key written by RedisStore.
const KeyPrefix = "ytinsight:"

// NewRedisStore connects to redisURL and verifies the connection with a PING.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	if redisURL == "" {
		return nil, &StorageError{Op: "open", Backend: "redis", Err: ErrInvalidInput}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, &StorageError{Op: "open", Backend: "redis", Err: err}
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, &StorageError{Op: "open", Backend: "redis", Err: err}
	}

	log.Info().Str("component", "storage").Str("addr", opts.Addr).Msg("redis store connected")
	return NewRedisStoreFromClient(rdb), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: KeyPrefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &StorageError{Op: "get", Backend: "redis", Key: key, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Backend: "redis", Key: key, Err: err}
	}
	return data, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if !validKey(key) {
		return &StorageError{Op: "set", Backend: "redis", Err: ErrInvalidInput}
	}
	if err := s.rdb.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return &StorageError{Op: "set", Backend: "redis", Key: key, Err: err}
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return &StorageError{Op: "delete", Backend: "redis", Key: key, Err: err}
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
