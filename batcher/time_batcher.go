package batcher

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ClickBatcher collects clicks and flushes them every flushInterval or once
// threshold events are pending, whichever comes first. It satisfies
// store.ClickRecorder.
type ClickBatcher struct {
	sink          Sink
	logger        *slog.Logger
	flushInterval time.Duration
	threshold     int
	timeout       time.Duration

	mu      sync.Mutex
	pending AggregatedCount
	events  int
	stopped bool

	kick   chan struct{}
	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewClickBatcher returns a batcher. Pass flushInterval=0 to disable
// time-based flushing and threshold=0 to disable count-based flushing.
func NewClickBatcher(sink Sink, flushInterval time.Duration, threshold int, logger *slog.Logger) *ClickBatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClickBatcher{
		sink:          sink,
		logger:        logger,
		flushInterval: flushInterval,
		threshold:     threshold,
		timeout:       5 * time.Second,
		pending:       make(AggregatedCount),
		kick:          make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start begins the background flush loop. Call Stop() to end it.
func (b *ClickBatcher) Start() {
	go func() {
		defer close(b.done)

		var tick <-chan time.Time
		if b.flushInterval > 0 {
			ticker := time.NewTicker(b.flushInterval)
			defer ticker.Stop()
			tick = ticker.C
		}
		for {
			select {
			case <-tick:
				b.write(b.take())
			case <-b.kick:
				b.write(b.take())
			case <-b.stopCh:
				b.write(b.take())
				return
			}
		}
	}()
}

// Flush writes pending clicks synchronously.
func (b *ClickBatcher) Flush() {
	b.write(b.take())
}

// Stop rejects further clicks, flushes what is pending and waits for the
// loop to exit or ctx to end. Start must have been called.
func (b *ClickBatcher) Stop(ctx context.Context) error {
	b.once.Do(func() {
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()
		close(b.stopCh)
	})
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
