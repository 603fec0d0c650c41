package download

import (
	"sync"
	"sync/atomic"
)

// Tracker aggregates bytes delivered across all workers. Workers only ever
// contribute deltas via Add; the aggregate lives in a single atomic counter,
// so the percentage can never be observed mid-update.
type Tracker struct {
	total int64
	done  atomic.Int64

	mu   sync.Mutex
	subs []chan int64
}

func NewTracker(total int64) *Tracker {
	return &Tracker{total: total}
}

// Add records n more bytes done and publishes the new aggregate to all
// subscribers. Safe for concurrent use; negative deltas are ignored.
func (t *Tracker) Add(n int64) {
	if n <= 0 {
		return
	}
	cur := t.done.Add(n)
	t.publish(cur)
}

// Bytes returns the aggregate byte count, monotonically non-decreasing.
func (t *Tracker) Bytes() int64 {
	return t.done.Load()
}

// Total returns the expected final byte count.
func (t *Tracker) Total() int64 {
	return t.total
}

// Percent returns the completion percentage, clamped to [0, 100]. It is
// computed from the counter on every read, never stored.
func (t *Tracker) Percent() int {
	if t.total <= 0 {
		return 0
	}
	pct := t.done.Load() * 100 / t.total
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return int(pct)
}

// Finished reports whether every expected byte has been accounted for.
func (t *Tracker) Finished() bool {
	return t.done.Load() >= t.total
}

// Subscribe returns a latest-value channel carrying aggregate byte counts.
// A slow receiver only ever misses intermediate values, never the newest
// one. Any number of observers may subscribe to the same tracker.
func (t *Tracker) Subscribe() <-chan int64 {
	ch := make(chan int64, 1)
	t.mu.Lock()
	t.subs = append(t.subs, ch)
	t.mu.Unlock()
	return ch
}

func (t *Tracker) publish(cur int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ch := range t.subs {
		// drop the stale value, then deliver the fresh one
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- cur:
		default:
		}
	}
}
