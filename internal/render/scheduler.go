package render

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameInterval approximates a 60 Hz display refresh.
const DefaultFrameInterval = time.Second / 60

// Scheduler invokes a callback before the next frame. Callers must request
// again from inside the callback to keep animating.
type Scheduler interface {
	RequestAnimationFrame(cb func())
}

// FrameScheduler is a ticker-driven Scheduler. All callbacks run on the
// goroutine that called Run, one frame batch per tick, so code scheduled
// through it never runs concurrently with itself.
type FrameScheduler struct {
	interval time.Duration

	mu      sync.Mutex
	pending []func()
}

// NewFrameScheduler returns a scheduler that fires every interval.
// A non-positive interval uses DefaultFrameInterval.
func NewFrameScheduler(interval time.Duration) *FrameScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameScheduler{interval: interval}
}

// RequestAnimationFrame queues cb for the next tick.
func (s *FrameScheduler) RequestAnimationFrame(cb func()) {
	s.mu.Lock()
	s.pending = append(s.pending, cb)
	s.mu.Unlock()
}

// Pending returns the number of callbacks waiting for the next tick.
func (s *FrameScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run dispatches frames until ctx is done. Callbacks requested during a
// frame are deferred to the following tick.
func (s *FrameScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs the callbacks queued so far. Run calls it on every tick; tests
// call it directly to step frames by hand.
func (s *FrameScheduler) Tick() {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, cb := range batch {
		cb()
	}
}
