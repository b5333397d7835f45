package middlewares

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindow keeps a sorted set of request timestamps per key and counts
// those inside the trailing window.
type SlidingWindow struct {
	client *redis.Client
	max    int
	window time.Duration
}

func (s *SlidingWindow) Name() string { return "sliding" }

func (s *SlidingWindow) Allow(ctx context.Context, key string) (Decision, error) {
	key = "rate:sliding:" + key
	now := time.Now().UnixMilli()
	windowStart := now - s.window.Milliseconds()

	var card *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// Remove old entries, then add this request.
		pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(now),
			Member: strconv.FormatInt(now, 10) + ":" + uuid.NewString(),
		})
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, s.window*2)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	count := int(card.Val())
	return Decision{
		Allowed:   count <= s.max,
		Limit:     s.max,
		Remaining: max(0, s.max-count),
		Reset:     s.window,
	}, nil
}
