package asyncexec

import (
	"testing"
	"time"
)

// timerTestContext builds a poll context against a fake-time executor,
// polling as the main task.
func timerTestContext(t *testing.T) (*TestExecutor, *Context) {
	t.Helper()
	te, err := NewTestExecutorWithFakeTime()
	if err != nil {
		t.Fatalf("NewTestExecutorWithFakeTime() failed: %v", err)
	}
	t.Cleanup(te.Close)
	return te, &Context{waker: NewWaker(&te.local.main), core: te.local.core}
}

// TestTimer_PastDeadline verifies a timer armed in the past completes on
// the first poll without touching the heap.
func TestTimer_PastDeadline(t *testing.T) {
	te, cx := timerTestContext(t)
	te.SetFakeTime(500)

	tm := NewTimer(100)
	p := tm.Poll(cx)
	if !p.IsReady {
		t.Fatal("Poll() on expired deadline = Pending, want Ready")
	}
	if p.Value != 100 {
		t.Errorf("Poll() value = %v, want 100", p.Value)
	}
	if te.local.core.timers.Len() != 0 {
		t.Errorf("heap length = %d, want 0 (nothing armed)", te.local.core.timers.Len())
	}
}

// TestTimer_FiresAtDeadline verifies the pending/armed/ready progression
// under fake time.
func TestTimer_FiresAtDeadline(t *testing.T) {
	te, cx := timerTestContext(t)

	tm := NewTimer(1000)
	if p := tm.Poll(cx); p.IsReady {
		t.Fatal("Poll() before deadline = Ready, want Pending")
	}

	d, ok := te.local.core.timers.nextDeadline()
	if !ok || d != 1000 {
		t.Fatalf("armed deadline = %v, %v, want 1000, true", d, ok)
	}

	// Exactly at the deadline counts as expired.
	te.SetFakeTime(1000)
	p := tm.Poll(cx)
	if !p.IsReady || p.Value != 1000 {
		t.Fatalf("Poll() at deadline = %+v, want Ready(1000)", p)
	}
}

// TestTimer_ArmsOnce verifies repeated pending polls do not queue
// duplicate heap entries.
func TestTimer_ArmsOnce(t *testing.T) {
	te, cx := timerTestContext(t)

	tm := NewTimer(1000)
	for i := 0; i < 5; i++ {
		if p := tm.Poll(cx); p.IsReady {
			t.Fatalf("poll %d = Ready, want Pending", i)
		}
	}
	if got := te.local.core.timers.Len(); got != 1 {
		t.Fatalf("heap length after repeated polls = %d, want 1", got)
	}
	if got := te.Metrics().TimersArmed; got != 1 {
		t.Fatalf("TimersArmed = %d, want 1", got)
	}
}

// TestTimer_After verifies a relative timer fixes its deadline at the
// first poll, not at construction.
func TestTimer_After(t *testing.T) {
	te, cx := timerTestContext(t)

	tm := After(250 * time.Nanosecond)
	if got := tm.Deadline(); got != TimeInfinite {
		t.Fatalf("Deadline() before first poll = %v, want TimeInfinite", got)
	}

	// Time advances before the first poll; the delay counts from here.
	te.SetFakeTime(100)
	if p := tm.Poll(cx); p.IsReady {
		t.Fatal("Poll() = Ready, want Pending")
	}
	if got := tm.Deadline(); got != 350 {
		t.Fatalf("Deadline() after first poll = %v, want 350", got)
	}

	te.SetFakeTime(349)
	if p := tm.Poll(cx); p.IsReady {
		t.Fatal("Poll() one tick early = Ready, want Pending")
	}
	te.SetFakeTime(350)
	if p := tm.Poll(cx); !p.IsReady || p.Value != 350 {
		t.Fatalf("Poll() at deadline = %+v, want Ready(350)", p)
	}
}

// TestTimer_Reset verifies re-targeting, including the stale heap entry
// left by the original deadline.
func TestTimer_Reset(t *testing.T) {
	te, cx := timerTestContext(t)

	tm := NewTimer(100)
	if p := tm.Poll(cx); p.IsReady {
		t.Fatal("Poll() = Ready, want Pending")
	}

	tm.Reset(500)
	if got := tm.Deadline(); got != 500 {
		t.Fatalf("Deadline() after Reset = %v, want 500", got)
	}
	if p := tm.Poll(cx); p.IsReady {
		t.Fatal("Poll() after Reset = Ready, want Pending")
	}

	// The original entry is still armed; Reset does not reach into the
	// heap.
	if got := te.local.core.timers.Len(); got != 2 {
		t.Fatalf("heap length after Reset+poll = %d, want 2", got)
	}

	te.SetFakeTime(500)
	if p := tm.Poll(cx); !p.IsReady || p.Value != 500 {
		t.Fatalf("Poll() at new deadline = %+v, want Ready(500)", p)
	}
}

// TestTimer_ResetAfterFire verifies a completed timer can be reused.
func TestTimer_ResetAfterFire(t *testing.T) {
	te, cx := timerTestContext(t)
	te.SetFakeTime(50)

	tm := NewTimer(10)
	if p := tm.Poll(cx); !p.IsReady {
		t.Fatal("Poll() on expired timer = Pending, want Ready")
	}

	tm.Reset(200)
	if p := tm.Poll(cx); p.IsReady {
		t.Fatal("Poll() after Reset to the future = Ready, want Pending")
	}
	te.SetFakeTime(200)
	if p := tm.Poll(cx); !p.IsReady || p.Value != 200 {
		t.Fatalf("Poll() = %+v, want Ready(200)", p)
	}
}
