// Package batcher aggregates click events per code and writes them in bulk.
package batcher

import (
	"context"
	"errors"
	"time"

	"urst/metrics"
	"urst/store"

	"github.com/getsentry/sentry-go"
)

// Sink persists aggregated clicks.
type Sink interface {
	IncrementClicks(ctx context.Context, code string, n int64) error
}

// AggregatedCount maps short codes to pending click counts.
type AggregatedCount map[string]int64

// write pushes every count to the sink, one UPDATE per code.
func (b *ClickBatcher) write(agg AggregatedCount) {
	if len(agg) == 0 {
		return
	}
	start := time.Now()
	var total int64
	for code, n := range agg {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		err := b.sink.IncrementClicks(ctx, code, n)
		cancel()

		switch {
		case err == nil:
			total += n
			metrics.ClickEvents.WithLabelValues("recorded").Add(float64(n))
		case errors.Is(err, store.ErrNotFound):
			metrics.ClickEvents.WithLabelValues("dropped").Add(float64(n))
		default:
			metrics.ClickEvents.WithLabelValues("failed").Add(float64(n))
			b.logger.Error("click batch write failed", "code", code, "clicks", n, "error", err)
			sentry.CaptureException(err)
		}
	}
	b.logger.Debug("click batch flushed",
		"codes", len(agg), "clicks", total, "duration", time.Since(start))
}
