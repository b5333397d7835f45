package pubsub

import (
	"context"
	"log/slog"

	"urst/cache"
)

// SubscribeCacheInvalidation keeps c in step with deletes and purges made by
// other instances.
func SubscribeCacheInvalidation(ps *PubSub, c cache.LinkCache, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	ps.Subscribe(EventLinkDeleted, func(ctx context.Context, evt Event) {
		if evt.Code == "" {
			return
		}
		if err := c.Delete(ctx, evt.Code); err != nil {
			logger.Warn("cache invalidate failed", "code", evt.Code, "error", err)
		}
	})
	ps.Subscribe(EventLinksPurged, func(ctx context.Context, evt Event) {
		if err := c.Flush(ctx); err != nil {
			logger.Warn("cache flush failed", "error", err)
		}
	})
}
