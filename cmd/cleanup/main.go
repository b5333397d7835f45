// Command cleanup purges expired anonymous links. Run it from cron; it exits
// non-zero when the purge fails.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"urst/cache"
	"urst/config"
	middleware "urst/middlewares"
	"urst/pubsub"
	"urst/shortener"
	"urst/store"

	"github.com/getsentry/sentry-go"
)

func main() {
	if err := run(); err != nil {
		log.Printf("cleanup: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, closer, err := middleware.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer closer.Close()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			logger.Warn("sentry initialization failed", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := purge(ctx, cfg, logger)
	if err != nil {
		sentry.CaptureException(err)
		logger.Error("cleanup failed", "error", err)
		return err
	}
	logger.Info("cleanup finished", "purged", n)
	return nil
}

// purge opens the database (and Redis when configured), removes expired
// links and closes everything it opened.
func purge(ctx context.Context, cfg *config.Config, logger *slog.Logger) (int64, error) {
	db, err := config.OpenDB(cfg)
	if err != nil {
		return 0, fmt.Errorf("database: %w", err)
	}
	defer config.CloseDB(db)

	opts := []shortener.Option{shortener.WithLogger(logger)}
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			// Not fatal: cached links are expiry-checked on read.
			logger.Warn("redis unavailable, skipping invalidation", "error", err)
		} else {
			defer rdb.Close()
			opts = append(opts,
				shortener.WithCache(cache.NewRedisStore(rdb, time.Hour)),
				shortener.WithPublisher(pubsub.NewPubSub(rdb, logger)),
			)
		}
	}

	return shortener.New(store.New(db), opts...).Cleanup(ctx)
}
