// Package render drives the per-frame draw callback.
package render

import (
	"sync/atomic"
)

// State is the render loop controller state.
type State int

const (
	// Stopped means the loop will not reschedule itself.
	Stopped State = iota
	// Running means every invocation requests the next frame.
	Running
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	default:
		return "stopped"
	}
}

// Loop is a self-rescheduling render loop. The capturing flag belongs to the
// Loop instance; it decides only whether another frame is requested. The draw
// callback runs on every invocation, including the one that observes the
// flag cleared.
type Loop struct {
	sched     Scheduler
	draw      func()
	capturing atomic.Bool
	frames    atomic.Uint64
}

// NewLoop returns a stopped loop that calls draw once per frame.
func NewLoop(sched Scheduler, draw func()) *Loop {
	return &Loop{sched: sched, draw: draw}
}

// Start sets the capturing flag and renders the first frame immediately on
// the calling goroutine; later frames arrive through the scheduler.
func (l *Loop) Start() {
	l.capturing.Store(true)
	l.frame()
}

// Stop clears the capturing flag. A frame already requested still runs and
// draws, but will not request another.
func (l *Loop) Stop() {
	l.capturing.Store(false)
}

// State reports Running while the capturing flag is set.
func (l *Loop) State() State {
	if l.capturing.Load() {
		return Running
	}
	return Stopped
}

// Frames returns the number of draw invocations so far.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

func (l *Loop) frame() {
	if l.capturing.Load() {
		l.sched.RequestAnimationFrame(l.frame)
	}
	l.frames.Add(1)
	l.draw()
}
