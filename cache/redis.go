package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"urst/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "urst:link:"

// RedisStore is a LinkCache shared between instances through Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// NewRedisStore wraps an existing client. Entries live for at most ttl, and
// never past the link's own expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Client exposes the underlying connection for rate limiting and pub/sub.
func (r *RedisStore) Client() *redis.Client {
	return r.client
}

func (r *RedisStore) Get(ctx context.Context, code string) (*models.ShortLink, bool) {
	data, err := r.client.Get(ctx, keyPrefix+code).Bytes()
	if err != nil {
		return nil, false
	}
	var link models.ShortLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, false
	}
	if link.Expired(r.now()) {
		r.client.Del(ctx, keyPrefix+code)
		return nil, false
	}
	return &link, true
}

func (r *RedisStore) Set(ctx context.Context, link *models.ShortLink) error {
	ttl := r.ttl
	if link.ExpiresAt != nil {
		left := link.ExpiresAt.Sub(r.now())
		if left <= 0 {
			return nil
		}
		if left < ttl {
			ttl = left
		}
	}
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+link.Code, data, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, code string) error {
	return r.client.Del(ctx, keyPrefix+code).Err()
}

// Flush removes every cached link, leaving other keys in the database alone.
func (r *RedisStore) Flush(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 500 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

// Close is a no-op: the client is shared and closed by whoever created it.
func (r *RedisStore) Close() error {
	return nil
}
