// Package dedupe rejects re-processing of webhook deliveries already seen
// within a bounded window. Membership is in-memory only: a process restart
// resets the filter.
package dedupe

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is how long a delivery id is guaranteed to be recognized.
const DefaultWindow = 15 * time.Minute

// Filter keeps two generations of delivery ids and swaps them on a timer.
// An id marked now stays visible for at least one full window and is purged
// in bulk when its generation ages out, never individually.
type Filter struct {
	mu        sync.Mutex
	window    time.Duration
	now       func() time.Time
	rotatedAt time.Time
	current   map[string]struct{}
	previous  map[string]struct{}
}

// New creates a filter with the given retention window. A zero window means
// DefaultWindow.
func New(window time.Duration) *Filter {
	if window <= 0 {
		window = DefaultWindow
	}
	f := &Filter{
		window:   window,
		now:      time.Now,
		current:  make(map[string]struct{}),
		previous: make(map[string]struct{}),
	}
	f.rotatedAt = f.now()
	return f
}

// NewWithClock is New with an injected clock for tests.
func NewWithClock(window time.Duration, now func() time.Time) *Filter {
	f := New(window)
	f.now = now
	f.rotatedAt = now()
	return f
}

// Seen reports whether the delivery id was marked within the window.
func (f *Filter) Seen(deliveryID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maybeRotate()

	if _, ok := f.current[deliveryID]; ok {
		return true
	}
	_, ok := f.previous[deliveryID]
	return ok
}

// MarkSeen records the delivery id.
func (f *Filter) MarkSeen(deliveryID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maybeRotate()
	f.current[deliveryID] = struct{}{}
}

// CheckAndMark is Seen + MarkSeen in one step, so concurrent duplicates
// cannot both pass the check.
func (f *Filter) CheckAndMark(deliveryID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maybeRotate()

	if _, ok := f.current[deliveryID]; ok {
		return true
	}
	if _, ok := f.previous[deliveryID]; ok {
		return true
	}
	f.current[deliveryID] = struct{}{}
	return false
}

// maybeRotate drops the old generation once the window has elapsed.
// Callers hold f.mu.
func (f *Filter) maybeRotate() {
	if f.now().Sub(f.rotatedAt) < f.window {
		return
	}
	f.previous = f.current
	f.current = make(map[string]struct{})
	f.rotatedAt = f.now()
}

// Run purges on a timer until ctx is done. The lazy rotation in the
// accessors already bounds retention; the loop just keeps memory from
// growing while the webhook is idle.
func (f *Filter) Run(ctx context.Context) {
	ticker := time.NewTicker(f.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.Lock()
			f.maybeRotate()
			f.mu.Unlock()
		}
	}
}
