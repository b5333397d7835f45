package batcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"urst/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu     sync.Mutex
	counts map[string]int64
	writes int
}

func newFakeSink() *fakeSink {
	return &fakeSink{counts: map[string]int64{}}
}

func (f *fakeSink) IncrementClicks(_ context.Context, code string, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if code == "gone00000" {
		return store.ErrNotFound
	}
	f.counts[code] += n
	f.writes++
	return nil
}

func (f *fakeSink) snapshot() (map[string]int64, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64, len(f.counts))
	for k, v := range f.counts {
		out[k] = v
	}
	return out, f.writes
}

var _ store.ClickRecorder = (*ClickBatcher)(nil)

func TestFlushAggregatesPerCode(t *testing.T) {
	sink := newFakeSink()
	b := NewClickBatcher(sink, 0, 0, nil)

	for i := 0; i < 7; i++ {
		b.Record("AAAAAAAAA")
	}
	b.Record("BBBBBBBBB")
	b.Record("gone00000")
	b.Flush()

	counts, writes := sink.snapshot()
	assert.EqualValues(t, 7, counts["AAAAAAAAA"])
	assert.EqualValues(t, 1, counts["BBBBBBBBB"])
	assert.Equal(t, 2, writes, "one write per live code")

	b.Flush()
	_, writes = sink.snapshot()
	assert.Equal(t, 2, writes, "empty flush writes nothing")
}

func TestCountThresholdTriggersFlush(t *testing.T) {
	sink := newFakeSink()
	b := NewClickBatcher(sink, 0, 3, nil)
	b.Start()
	defer b.Stop(context.Background())

	b.Record("AAAAAAAAA")
	b.Record("AAAAAAAAA")
	b.Record("AAAAAAAAA")

	assert.Eventually(t, func() bool {
		counts, _ := sink.snapshot()
		return counts["AAAAAAAAA"] == 3
	}, time.Second, 5*time.Millisecond)
}

func TestIntervalTriggersFlush(t *testing.T) {
	sink := newFakeSink()
	b := NewClickBatcher(sink, 10*time.Millisecond, 0, nil)
	b.Start()
	defer b.Stop(context.Background())

	b.Record("AAAAAAAAA")

	assert.Eventually(t, func() bool {
		counts, _ := sink.snapshot()
		return counts["AAAAAAAAA"] == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStopFlushesPending(t *testing.T) {
	sink := newFakeSink()
	b := NewClickBatcher(sink, time.Hour, 1000, nil)
	b.Start()

	b.Record("AAAAAAAAA")
	b.Record("BBBBBBBBB")
	require.NoError(t, b.Stop(context.Background()))

	counts, _ := sink.snapshot()
	assert.EqualValues(t, 1, counts["AAAAAAAAA"])
	assert.EqualValues(t, 1, counts["BBBBBBBBB"])

	b.Record("AAAAAAAAA")
	b.Flush()
	counts, _ = sink.snapshot()
	assert.EqualValues(t, 1, counts["AAAAAAAAA"], "clicks after Stop are ignored")
	assert.NoError(t, b.Stop(context.Background()))
}
