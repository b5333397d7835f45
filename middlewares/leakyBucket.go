package middlewares

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// leakyBucketScript drains the bucket at leakRate units per millisecond and
// adds the request's cost. Returns -1 when it would overflow.
var leakyBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local leakRate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requestCost = tonumber(ARGV[4])

local bucket = redis.call("HMGET", key, "level", "last_update")
local level = tonumber(bucket[1])
local lastUpdate = tonumber(bucket[2])
if level == nil then
  level = 0
  lastUpdate = now
end

local delta = math.max(0, now - lastUpdate)
level = math.max(0, level - delta * leakRate)

if level + requestCost > capacity then
  return -1
end
level = level + requestCost
redis.call("HMSET", key, "level", level, "last_update", now)
redis.call("EXPIRE", key, 3600)
return math.ceil(level)
`)

// LeakyBucket smooths traffic to leakPerMs with room for capacity queued.
type LeakyBucket struct {
	client    *redis.Client
	capacity  int
	leakPerMs float64
}

func (l *LeakyBucket) Name() string { return "leaky" }

func (l *LeakyBucket) Allow(ctx context.Context, key string) (Decision, error) {
	level, err := leakyBucketScript.Run(ctx, l.client, []string{"rate:leaky:" + key},
		l.capacity, l.leakPerMs, time.Now().UnixMilli(), 1).Int64()
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Limit: l.capacity, Reset: time.Second}
	if level < 0 {
		return d, nil
	}
	d.Allowed = true
	// In leaky bucket, the remaining capacity is (capacity - level).
	d.Remaining = max(0, l.capacity-int(level))
	return d, nil
}
