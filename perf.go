package shadertui

import (
	"sync"
	"time"
)

const (
	// rateWindow is how many recent samples feed the rate estimate.
	rateWindow = 60
	// rateRefresh caps how often the estimate is recomputed.
	rateRefresh = 250 * time.Millisecond
)

// Tracker estimates the rate of a recurring event, such as frames rendered
// per second, from a sliding window of timestamps. Record is cheap enough
// to call once per frame: the rate is recomputed at most every rateRefresh.
//
// Each pipeline stage owns one Tracker and records into it from a single
// goroutine; Rate may be read from anywhere.
type Tracker struct {
	mu      sync.Mutex
	samples []time.Time
	updated time.Time
	rate    float32
}

// NewTracker returns an empty tracker reporting a rate of zero.
func NewTracker() *Tracker {
	return &Tracker{samples: make([]time.Time, 0, rateWindow)}
}

// Record notes that the tracked event just happened.
func (t *Tracker) Record() {
	t.recordAt(time.Now())
}

func (t *Tracker) recordAt(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.samples) == rateWindow {
		copy(t.samples, t.samples[1:])
		t.samples = t.samples[:rateWindow-1]
	}
	t.samples = append(t.samples, now)

	if now.Sub(t.updated) >= rateRefresh {
		t.recompute()
		t.updated = now
	}
}

// recompute derives events-per-second as (count-1)/span: n timestamps
// bound n-1 intervals. Caller holds the mutex.
func (t *Tracker) recompute() {
	if len(t.samples) < 2 {
		t.rate = 0
		return
	}
	span := t.samples[len(t.samples)-1].Sub(t.samples[0]).Seconds()
	if span <= 0 {
		t.rate = 0
		return
	}
	t.rate = float32(len(t.samples)-1) / float32(span)
}

// Rate returns the latest estimate in events per second. It is zero until
// at least two samples have been recorded.
func (t *Tracker) Rate() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate
}
