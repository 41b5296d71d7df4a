package common

import (
	"testing"
	"time"
)

func TestWatchdogFiresWithoutProgress(t *testing.T) {
	w := NewWatchdog(30 * time.Millisecond)
	done := w.Start()
	defer w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not fire")
	}
	if !w.Fired() {
		t.Error("Fired() = false after timeout")
	}
}

func TestWatchdogKickPostponesTimeout(t *testing.T) {
	w := NewWatchdog(100 * time.Millisecond)
	done := w.Start()
	defer w.Stop()

	// Kick well inside the window a few times; total elapsed exceeds one timeout.
	for i := 0; i < 3; i++ {
		time.Sleep(40 * time.Millisecond)
		w.Kick()
	}
	if w.Fired() {
		t.Fatal("watchdog fired while being kicked")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not fire after kicks stopped")
	}
}

func TestWatchdogStopAndDisabled(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		stop    bool
	}{
		{"Stopped", 30 * time.Millisecond, true},
		{"Disabled", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWatchdog(tt.timeout)
			done := w.Start()
			if tt.stop {
				w.Stop()
			}
			select {
			case <-done:
				t.Fatal("watchdog fired")
			case <-time.After(80 * time.Millisecond):
			}
			if w.Fired() {
				t.Error("Fired() = true")
			}
		})
	}
}
