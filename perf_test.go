package shadertui

import (
	"testing"
	"time"
)

func TestTrackerZeroBeforeTwoSamples(t *testing.T) {
	tr := NewTracker()
	if got := tr.Rate(); got != 0 {
		t.Errorf("Rate() = %v with no samples, want 0", got)
	}
	tr.recordAt(time.Unix(100, 0))
	if got := tr.Rate(); got != 0 {
		t.Errorf("Rate() = %v with one sample, want 0", got)
	}
}

func TestTrackerSteadyRate(t *testing.T) {
	tr := NewTracker()
	start := time.Unix(100, 0)

	// Events every 100ms should converge to 10 per second.
	for i := range 20 {
		tr.recordAt(start.Add(time.Duration(i) * 100 * time.Millisecond))
	}

	got := tr.Rate()
	if got < 9.9 || got > 10.1 {
		t.Errorf("Rate() = %v for events every 100ms, want ~10", got)
	}
}

func TestTrackerWindowBounded(t *testing.T) {
	tr := NewTracker()
	start := time.Unix(100, 0)

	// A slow first phase followed by a long fast phase: once the fast
	// samples fill the window, the slow ones no longer weigh in.
	now := start
	for range 10 {
		now = now.Add(time.Second)
		tr.recordAt(now)
	}
	for range rateWindow * 2 {
		now = now.Add(10 * time.Millisecond)
		tr.recordAt(now)
	}

	got := tr.Rate()
	if got < 95 || got > 105 {
		t.Errorf("Rate() = %v after window filled with 100/s samples, want ~100", got)
	}
	if len(tr.samples) != rateWindow {
		t.Errorf("retained %d samples, want at most %d", len(tr.samples), rateWindow)
	}
}

func TestTrackerRecomputeThrottled(t *testing.T) {
	tr := NewTracker()
	start := time.Unix(100, 0)
	tr.recordAt(start)

	// Samples inside the refresh interval must not change the published
	// rate, however fast they arrive.
	for i := range 10 {
		tr.recordAt(start.Add(time.Duration(i+1) * time.Millisecond))
	}
	if got := tr.Rate(); got != 0 {
		t.Errorf("Rate() = %v before the refresh interval elapsed, want stale 0", got)
	}

	// The first sample past the interval publishes a fresh estimate.
	tr.recordAt(start.Add(rateRefresh))
	if got := tr.Rate(); got == 0 {
		t.Error("Rate() still 0 after the refresh interval elapsed")
	}
}
