package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAfter_runs_once(t *testing.T) {
	var calls atomic.Int32
	task := After(5*time.Millisecond, func() { calls.Add(1) })

	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if !task.Fired() {
		t.Error("Fired should be true")
	}
	if task.Cancel() {
		t.Error("Cancel after firing should report false")
	}
}

func TestCancel_prevents_run(t *testing.T) {
	var calls atomic.Int32
	task := After(time.Hour, func() { calls.Add(1) })

	if !task.Cancel() {
		t.Fatal("Cancel before firing should report true")
	}
	if !task.Cancel() {
		t.Error("repeated Cancel should still report true")
	}
	select {
	case <-task.Done():
	default:
		t.Error("Done should be closed after Cancel")
	}
	if task.Fired() || calls.Load() != 0 {
		t.Error("cancelled task ran")
	}
}
