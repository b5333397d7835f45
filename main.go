package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"urst/batcher"
	"urst/blocklist"
	"urst/cache"
	"urst/config"
	"urst/handlers"
	middleware "urst/middlewares"
	"urst/pubsub"
	"urst/queue"
	"urst/shortener"
	"urst/store"
	"urst/web"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("urst: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, logCloser, err := middleware.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
		}); err != nil {
			logger.Warn("sentry initialization failed", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	db, err := config.OpenDB(cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer config.CloseDB(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
	}

	a, err := newApp(ctx, cfg, db, rdb, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	return a.close(shutdownCtx)
}

// app is the wired service graph.
type app struct {
	router *mux.Router
	svc    *shortener.Service
	store  *store.Store
	close  func(ctx context.Context) error
}

// clickSink is what both click recorders offer.
type clickSink interface {
	store.ClickRecorder
	Stop(ctx context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, logger *slog.Logger) (*app, error) {
	st := store.New(db)

	local, err := cache.NewBigCacheStore(10 * time.Minute)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	var linkCache cache.LinkCache = local

	opts := []shortener.Option{shortener.WithLogger(logger)}
	var limiter middleware.Limiter
	if rdb != nil {
		linkCache = cache.NewTiered(local, cache.NewRedisStore(rdb, time.Hour))

		ps := pubsub.NewPubSub(rdb, logger)
		pubsub.SubscribeCacheInvalidation(ps, local, logger)
		if err := ps.Run(ctx); err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		opts = append(opts, shortener.WithPublisher(ps))

		limiter, err = middleware.NewLimiter(cfg.RateLimitStrategy, rdb, cfg.RateLimitMax)
		if err != nil {
			return nil, err
		}
	}
	opts = append(opts, shortener.WithCache(linkCache))

	if cfg.BlocklistFile != "" {
		bl, err := blocklist.Load(cfg.BlocklistFile)
		if err != nil {
			return nil, fmt.Errorf("blocklist: %w", err)
		}
		logger.Info("blocklist loaded", "hosts", bl.Len())
		opts = append(opts, shortener.WithBlocklist(bl))
	}

	var clicks clickSink
	switch cfg.ClickMode {
	case "batch":
		b := batcher.NewClickBatcher(st, cfg.ClickFlushInterval, cfg.ClickFlushThreshold, logger)
		b.Start()
		clicks = b
	default:
		w := queue.NewWorker(st, cfg.ClickQueueSize, logger)
		w.Start(cfg.ClickWorkers)
		clicks = w
	}
	st.SetClickRecorder(clicks)
	opts = append(opts, shortener.WithClickRecorder(clicks))

	svc := shortener.New(st, opts...)
	h := handlers.New(svc, st, cfg.BaseURL, logger)
	auth := middleware.NewAuthenticator(cfg.SessionSecret)

	return &app{
		router: newRouter(h, auth, limiter, cfg.CleanupSecret, logger),
		svc:    svc,
		store:  st,
		close: func(ctx context.Context) error {
			err := clicks.Stop(ctx)
			return errors.Join(err, linkCache.Close())
		},
	}, nil
}

func newRouter(h *handlers.Handler, auth *middleware.Authenticator, limiter middleware.Limiter, cleanupSecret string, logger *slog.Logger) *mux.Router {
	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: false})
	rateLimit := middleware.RateLimitMiddleware(limiter, logger)

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(sentryHandler.Handle)
	r.Use(middleware.SentryAlertMiddleware)
	r.Use(middleware.ResponseTimeMiddleware)
	r.Use(middleware.MetricsMiddleware)

	// Cron endpoint: authenticated by the shared secret, not a session.
	r.Handle("/api/cleanup", middleware.RequireBearer(cleanupSecret)(http.HandlerFunc(h.Cleanup))).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Authenticate)
	api.Handle("/shorten", rateLimit(http.HandlerFunc(h.Shorten))).Methods(http.MethodPost)
	api.HandleFunc("/urls/recent", h.Recent).Methods(http.MethodGet)
	api.HandleFunc("/urls/{code}", h.Stats).Methods(http.MethodGet)
	api.Handle("/urls/{code}", rateLimit(http.HandlerFunc(h.Delete))).Methods(http.MethodDelete)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/", web.IndexHandler).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(web.StaticHandler()).Methods(http.MethodGet)
	r.HandleFunc("/{code}", h.Redirect).Methods(http.MethodGet)
	return r
}
