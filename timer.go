package asyncexec

import "time"

// Timer is a future that completes once the executor's clock reaches its
// deadline. It resolves to the deadline it fired at.
//
// Timeouts are expressed by racing a Timer against another future; the
// executor has no separate timeout primitive.
//
// A Timer belongs to the executor that first polls it and, like any
// future, must only be polled on that executor's goroutine.
type Timer struct {
	deadline Time
	delay    time.Duration
	relative bool
	armed    bool
}

// NewTimer returns a timer that fires at the absolute instant deadline.
// A deadline already in the past fires on the first poll.
func NewTimer(deadline Time) *Timer {
	return &Timer{deadline: deadline}
}

// After returns a timer that fires d after the instant it is first
// polled. The deadline computation saturates rather than overflowing near
// the extremes of the timeline.
func After(d time.Duration) *Timer {
	return &Timer{delay: d, relative: true}
}

// Deadline returns the timer's absolute deadline. For a timer created
// with After that has not yet been polled, the deadline is not yet fixed
// and Deadline returns TimeInfinite.
func (t *Timer) Deadline() Time {
	if t.relative {
		return TimeInfinite
	}
	return t.deadline
}

// Reset re-targets the timer at a new absolute deadline and re-arms it on
// the next poll. A previously armed heap entry is left in place and fires
// harmlessly; completed timers may be reused.
func (t *Timer) Reset(deadline Time) {
	t.deadline = deadline
	t.relative = false
	t.armed = false
}

// Poll implements Future.
func (t *Timer) Poll(cx *Context) Poll[Time] {
	if t.relative {
		t.deadline = cx.Now().Add(t.delay)
		t.relative = false
	}

	if cx.Now() >= t.deadline {
		return Ready(t.deadline)
	}

	// Arm once per deadline. The waker captured here survives until the
	// heap entry is popped, so re-arming on every poll would queue
	// duplicate entries for no benefit.
	if !t.armed {
		cx.armTimer(t.deadline, cx.Waker())
		t.armed = true
	}
	return Pending[Time]()
}
