package asyncexec

import (
	"sync"
	"sync/atomic"
	"testing"
)

// TestNotifier_Protocol walks the latch through its states: only the first
// PrepareNotify per cycle wins, and Reset starts a new cycle.
func TestNotifier_Protocol(t *testing.T) {
	var n Notifier

	if !n.PrepareNotify() {
		t.Fatal("first PrepareNotify() = false, want true")
	}
	if n.PrepareNotify() {
		t.Fatal("second PrepareNotify() = true, want false")
	}
	if n.PrepareNotify() {
		t.Fatal("third PrepareNotify() = true, want false")
	}

	n.Reset()

	if !n.PrepareNotify() {
		t.Fatal("PrepareNotify() after Reset() = false, want true")
	}
	if n.PrepareNotify() {
		t.Fatal("repeat PrepareNotify() after Reset() = true, want false")
	}
}

// TestNotifier_ResetIdempotent verifies Reset on an idle latch is harmless.
func TestNotifier_ResetIdempotent(t *testing.T) {
	var n Notifier
	n.Reset()
	n.Reset()
	if !n.PrepareNotify() {
		t.Fatal("PrepareNotify() after redundant Resets = false, want true")
	}
}

// TestNotifier_ConcurrentClaim hammers one latch from many goroutines and
// verifies exactly one claim succeeds per cycle.
func TestNotifier_ConcurrentClaim(t *testing.T) {
	t.Parallel()

	const (
		goroutines = 64
		cycles     = 200
	)

	var n Notifier
	for cycle := 0; cycle < cycles; cycle++ {
		var wins atomic.Int64
		start := make(chan struct{})
		var wg sync.WaitGroup

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if n.PrepareNotify() {
					wins.Add(1)
				}
			}()
		}

		close(start)
		wg.Wait()

		if got := wins.Load(); got != 1 {
			t.Fatalf("cycle %d: %d successful claims, want exactly 1", cycle, got)
		}
		n.Reset()
	}
}
