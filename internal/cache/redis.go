package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares the content cache between server instances. Each entry is
// a plain key with an expiry; each tag is a set of the keys carrying it.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return NewRedisStoreFromClient(client, opts.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) entryKey(key string) string {
	return r.prefix + "entry:" + key
}

func (r *RedisStore) tagKey(tag string) string {
	return r.prefix + "tag:" + tag
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set writes the entry and adds its key to every tag set in one pipeline.
// Tag sets expire with the entry so abandoned tags do not accumulate.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	ek := r.entryKey(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, ek, value, ttl)
		for _, tag := range tags {
			tk := r.tagKey(tag)
			pipe.SAdd(ctx, tk, ek)
			if ttl > 0 {
				pipe.Expire(ctx, tk, ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// InvalidateTags purges every tag it is given. A failing tag does not stop
// the rest; all failures are returned joined.
func (r *RedisStore) InvalidateTags(ctx context.Context, tags ...string) (int, error) {
	removed := 0
	var errs []error
	for _, tag := range tags {
		n, err := r.invalidateTag(ctx, tag)
		removed += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

func (r *RedisStore) invalidateTag(ctx context.Context, tag string) (int, error) {
	tk := r.tagKey(tag)
	members, err := r.client.SMembers(ctx, tk).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers %s: %w", tag, err)
	}

	var delCmd *redis.IntCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(members) > 0 {
			delCmd = pipe.Del(ctx, members...)
		}
		pipe.Del(ctx, tk)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis invalidate %s: %w", tag, err)
	}
	if delCmd == nil {
		return 0, nil
	}
	return int(delCmd.Val()), nil
}

// Flush removes every key under the store prefix.
func (r *RedisStore) Flush(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis flush: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis flush scan: %w", err)
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis flush: %w", err)
		}
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
