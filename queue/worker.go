// Package queue runs click increments off the request path.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"urst/metrics"
	"urst/store"

	"github.com/getsentry/sentry-go"
)

// Counter persists click increments.
type Counter interface {
	IncrementClicks(ctx context.Context, code string, n int64) error
}

// Worker is a bounded in-memory queue of click events drained by a fixed
// number of goroutines. It satisfies store.ClickRecorder.
type Worker struct {
	counter Counter
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.RWMutex
	stopped bool
	tasks   chan string
	wg      sync.WaitGroup
}

// NewWorker returns a worker with room for size pending events.
func NewWorker(counter Counter, size int, logger *slog.Logger) *Worker {
	if size <= 0 {
		size = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		counter: counter,
		logger:  logger,
		timeout: 5 * time.Second,
		tasks:   make(chan string, size),
	}
}

// Start launches n goroutines that process queued events.
func (w *Worker) Start(n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for code := range w.tasks {
				w.process(code)
			}
		}()
	}
}

// Record enqueues one click for code. It never blocks: when the queue is full
// or stopped the event is dropped.
func (w *Worker) Record(code string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		metrics.ClickEvents.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case w.tasks <- code:
	default:
		metrics.ClickEvents.WithLabelValues("dropped").Inc()
		w.logger.Warn("click queue full, dropping event", "code", code)
	}
}

// Stop stops accepting events and waits for queued ones to finish, or for
// ctx to end.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.tasks)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) process(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	err := w.counter.IncrementClicks(ctx, code, 1)
	switch {
	case err == nil:
		metrics.ClickEvents.WithLabelValues("recorded").Inc()
	case errors.Is(err, store.ErrNotFound):
		// Purged or deleted between the redirect and now.
		metrics.ClickEvents.WithLabelValues("dropped").Inc()
	default:
		metrics.ClickEvents.WithLabelValues("failed").Inc()
		w.logger.Error("click increment failed", "code", code, "error", err)
		sentry.CaptureException(err)
	}
}
