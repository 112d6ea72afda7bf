// Package schedule runs one-shot delayed tasks that can be cancelled.
package schedule

import (
	"sync"
	"time"
)

// Task is a function scheduled to run once after a delay.
type Task struct {
	mu        sync.Mutex
	timer     *time.Timer
	fired     bool
	cancelled bool
	done      chan struct{}
}

// After schedules fn to run on its own goroutine once d has elapsed.
func After(d time.Duration, fn func()) *Task {
	t := &Task{done: make(chan struct{})}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.cancelled {
			t.mu.Unlock()
			return
		}
		t.fired = true
		t.mu.Unlock()

		defer close(t.done)
		fn()
	})
	return t
}

// Cancel prevents fn from running. It reports false when fn already started.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired {
		return false
	}
	if !t.cancelled {
		t.cancelled = true
		t.timer.Stop()
		close(t.done)
	}
	return true
}

// Fired reports whether fn has started.
func (t *Task) Fired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Done is closed after fn returns or once the task is cancelled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
