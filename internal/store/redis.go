package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisMaxRetries bounds the optimistic retry loop on contended keys.
const redisMaxRetries = 16

// RedisStore persists records in Redis. AtomicUpdate uses WATCH/MULTI
// optimistic concurrency: a concurrent write to the same key fails the
// transaction and the update is retried against the fresh value.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) fullKey(key string) string {
	return s.prefix + key
}

// ReadRecord returns the value for key, or nil when absent.
func (s *RedisStore) ReadRecord(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read record %q: %w", key, err)
	}
	return val, nil
}

// AtomicUpdate applies fn inside a WATCH transaction, retrying on
// write conflicts. Errors returned by fn abort without retrying.
func (s *RedisStore) AtomicUpdate(ctx context.Context, key string, fn UpdateFunc) error {
	full := s.fullKey(key)
	txn := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, full).Bytes()
		if errors.Is(err, redis.Nil) {
			cur = nil
		} else if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, full)
			} else {
				pipe.Set(ctx, full, next, 0)
			}
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxRetries; i++ {
		err := s.client.Watch(ctx, txn, full)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update record %q: too many conflicts", key)
}

// Scan returns all records under prefix.
func (s *RedisStore) Scan(ctx context.Context, prefix string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	iter := s.client.Scan(ctx, 0, s.fullKey(prefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		val, err := s.client.Get(ctx, full).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan prefix %q: %w", prefix, err)
		}
		out[full[len(s.prefix):]] = val
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan prefix %q: %w", prefix, err)
	}
	return out, nil
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
