package ratelimit

import (
	"sync"
	"time"

	"github.com/Calle9610/smart-offertgenerator-sub001/internal/clock"
)

// sweepEvery bounds how long hits for abandoned keys linger before the
// whole map is pruned.
const sweepEvery = 5 * time.Minute

// SlidingWindow counts hits per key over a moving window in process
// memory. It covers a single instance; multi-instance deployments
// configure the redis bucket instead.
type SlidingWindow struct {
	clk    clock.Clock
	window time.Duration

	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
}

func NewSlidingWindow(clk clock.Clock, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		clk:       clk,
		window:    window,
		hits:      make(map[string][]time.Time),
		lastSweep: clk.Now(),
	}
}

// Allow records a hit for key and reports whether key stays within
// limit hits per window.
func (w *SlidingWindow) Allow(key string, limit int) bool {
	if limit <= 0 || w.window <= 0 {
		return false
	}

	now := w.clk.Now()
	cutoff := now.Add(-w.window)

	w.mu.Lock()
	defer w.mu.Unlock()

	if now.Sub(w.lastSweep) >= sweepEvery {
		w.sweep(cutoff)
		w.lastSweep = now
	}

	kept := prune(w.hits[key], cutoff)
	if len(kept) >= limit {
		w.hits[key] = kept
		return false
	}
	w.hits[key] = append(kept, now)
	return true
}

func (w *SlidingWindow) sweep(cutoff time.Time) {
	for key, stamps := range w.hits {
		kept := prune(stamps, cutoff)
		if len(kept) == 0 {
			delete(w.hits, key)
			continue
		}
		w.hits[key] = kept
	}
}

// prune drops stamps at or before cutoff. Stamps are appended in
// order, so the survivors are a suffix.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	return stamps[idx:]
}
