package batcher

// Record adds one click for code. Reaching the threshold wakes the flush
// loop; the database write never happens on the caller's goroutine.
func (b *ClickBatcher) Record(code string) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.pending[code]++
	b.events++
	full := b.threshold > 0 && b.events >= b.threshold
	b.mu.Unlock()

	if full {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

// take swaps out the pending counts.
func (b *ClickBatcher) take() AggregatedCount {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.events == 0 {
		return nil
	}
	agg := b.pending
	b.pending = make(AggregatedCount)
	b.events = 0
	return agg
}
