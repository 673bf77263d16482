package selector

import (
	"sync"
	"time"

	"optsel/pkg/cache"
	"optsel/pkg/monitor"
	"optsel/pkg/strategy"
)

// Feedback is the single-use handle for reporting how an explored
// combination performed. The caller brackets query execution with
// Start and Complete; the elapsed wall time becomes the recorded
// latency. Completing twice, completing after Discard, or completing
// without Start all drop the measurement instead of recording garbage.
type Feedback struct {
	cache *cache.Cache
	stats *monitor.DecisionStats
	fp    uint32
	sh    uint32
	cb    strategy.Combination

	mu      sync.Mutex
	started time.Time
	active  bool
	done    bool
}

// Start marks the beginning of query execution. All methods are nil-safe
// so callers can use the handle unconditionally.
func (f *Feedback) Start() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return
	}
	f.started = time.Now()
	f.active = true
}

// Complete records the elapsed time since Start as the latency for the
// explored combination.
func (f *Feedback) Complete() {
	if f == nil {
		return
	}
	f.mu.Lock()
	if f.done || !f.active {
		dropped := !f.done
		f.done = true
		f.mu.Unlock()
		if dropped && f.stats != nil {
			f.stats.RecordDropped()
		}
		return
	}
	elapsed := float64(time.Since(f.started)) / float64(time.Millisecond)
	f.done = true
	f.mu.Unlock()
	f.record(elapsed)
}

// CompleteLatency records an externally measured latency in
// milliseconds, for callers that time execution themselves.
func (f *Feedback) CompleteLatency(ms float64) {
	if f == nil {
		return
	}
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	f.mu.Unlock()
	f.record(ms)
}

// Discard drops the pending measurement, e.g. when the query errored
// and its latency says nothing about the combination.
func (f *Feedback) Discard() {
	if f == nil {
		return
	}
	f.mu.Lock()
	dropped := !f.done
	f.done = true
	f.mu.Unlock()
	if dropped && f.stats != nil {
		f.stats.RecordDropped()
	}
}

func (f *Feedback) record(ms float64) {
	f.cache.Record(f.fp, f.sh, f.cb, ms)
	if f.stats != nil {
		f.stats.RecordFeedback()
	}
}
