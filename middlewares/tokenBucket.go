package middlewares

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills at refillRate tokens per millisecond up to
// capacity and takes one token per request. Returns -1 when empty.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refillRate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local bucket = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(bucket[1])
local last_refill = tonumber(bucket[2])
if tokens == nil then
  tokens = capacity
  last_refill = now
end

local delta = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + delta * refillRate)
if tokens < requested then
  redis.call("HMSET", key, "tokens", tokens, "last_refill", now)
  return -1
end
tokens = tokens - requested
redis.call("HMSET", key, "tokens", tokens, "last_refill", now)
redis.call("EXPIRE", key, 3600)
return math.floor(tokens)
`)

// TokenBucket allows bursts up to capacity and sustains refillPerMs.
type TokenBucket struct {
	client      *redis.Client
	capacity    int
	refillPerMs float64
}

func (t *TokenBucket) Name() string { return "token" }

func (t *TokenBucket) Allow(ctx context.Context, key string) (Decision, error) {
	left, err := tokenBucketScript.Run(ctx, t.client, []string{"rate:token:" + key},
		t.capacity, t.refillPerMs, time.Now().UnixMilli(), 1).Int64()
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Limit: t.capacity, Reset: time.Second}
	if left < 0 {
		return d, nil
	}
	d.Allowed = true
	d.Remaining = int(left)
	return d, nil
}
