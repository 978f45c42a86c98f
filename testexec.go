package asyncexec

import (
	"errors"
	"fmt"
)

// stepKind classifies what the dispatcher would do next.
type stepKind uint8

const (
	stepWaitUntil stepKind = iota // nothing runnable before the deadline
	stepPacket                    // a packet is buffered and ready to consume
	stepTimer                     // the earliest timer deadline has been reached
)

// WaitState reports whether a stepped executor has runnable work, and if
// not, the deadline it is waiting for.
type WaitState struct {
	// Deadline is the earliest pending timer deadline, TimeInfinite when
	// no timer is armed. Meaningful only while Waiting.
	Deadline Time
	// Waiting is false when a packet or an expired timer can be
	// dispatched immediately.
	Waiting bool
}

func (w WaitState) String() string {
	if !w.Waiting {
		return "ready"
	}
	return fmt.Sprintf("waiting until %v", w.Deadline)
}

// TestExecutor is a stepped, non-blocking front end over a LocalExecutor,
// for tests that need deterministic control over dispatch and time. All
// methods must be called from one goroutine, the same one that runs the
// step functions.
type TestExecutor struct {
	_     [0]func() // prevents comparability, discourages copying
	local *LocalExecutor

	// buffered holds a packet dequeued by nextStep or IsWaiting until a
	// step consumes it. Packets are never dropped between steps.
	buffered *Packet
}

// NewTestExecutor constructs a stepped executor that reads the real
// clock. Use NewTestExecutorWithFakeTime for manual time control.
func NewTestExecutor(opts ...Option) (*TestExecutor, error) {
	ex, err := newLocalExecutor(opts, false)
	if err != nil {
		return nil, err
	}
	return &TestExecutor{local: ex}, nil
}

// NewTestExecutorWithFakeTime constructs a stepped executor whose clock
// starts at 0 and moves only via SetFakeTime, WakeNextTimer, or other
// explicit advancement.
func NewTestExecutorWithFakeTime(opts ...Option) (*TestExecutor, error) {
	ex, err := newLocalExecutor(opts, true)
	if err != nil {
		return nil, err
	}
	return &TestExecutor{local: ex}, nil
}

// Local exposes the underlying executor.
func (te *TestExecutor) Local() *LocalExecutor { return te.local }

// Handle returns the executor's spawn/registration handle.
func (te *TestExecutor) Handle() *Handle { return te.local.Handle() }

// Metrics returns a point-in-time snapshot of the executor's counters.
func (te *TestExecutor) Metrics() Stats { return te.local.Metrics() }

// Close tears down the underlying executor. See LocalExecutor.Close.
func (te *TestExecutor) Close() { te.local.Close() }

// WakeMainFuture queues a wakeup for the root future directly, without an
// external event. Step functions only poll the root future in response to
// a packet, so the very first poll needs this nudge.
func (te *TestExecutor) WakeMainFuture() { te.local.main.Wake() }

// Now reads the fake clock. Panics on a real-time executor.
func (te *TestExecutor) Now() Time {
	c := te.local.core
	if !c.clock.fake {
		panic("asyncexec: cannot read fake time on a real-time executor")
	}
	return c.now()
}

// SetFakeTime repositions the fake clock. Expired timers do not fire by
// themselves; they fire on the next step, or via WakeExpiredTimers.
// Panics on a real-time executor.
func (te *TestExecutor) SetFakeTime(t Time) {
	te.local.core.clock.setFake(t)
}

// WakeExpiredTimers pops and wakes every timer whose deadline has passed,
// reporting whether any fired.
func (te *TestExecutor) WakeExpiredTimers() bool {
	c := te.local.core
	n := c.timers.wakeExpired(c.now())
	c.collector.timersFiredAdd(n)
	return n > 0
}

// WakeNextTimer pops and wakes the earliest timer regardless of expiry,
// first advancing fake time to its deadline if that lies in the future.
// Reports the fired deadline, or false if no timer was pending.
func (te *TestExecutor) WakeNextTimer() (Time, bool) {
	c := te.local.core
	entry, ok := c.timers.pop()
	if !ok {
		return 0, false
	}
	if c.now().Before(entry.deadline) {
		c.clock.setFake(entry.deadline)
	}
	entry.waker.Wake()
	c.collector.timersFiredAdd(1)
	return entry.deadline, true
}

// IsWaiting reports whether the executor could dispatch right now. It is
// informational but not side-effect free: a packet dequeued while
// answering is retained for the next step.
func (te *TestExecutor) IsWaiting() WaitState {
	kind, deadline := te.nextStep(true)
	if kind == stepWaitUntil {
		return WaitState{Deadline: deadline, Waiting: true}
	}
	return WaitState{}
}

// nextStep decides the next dispatcher action without blocking. A packet
// dequeued here is buffered for the consuming step. fireTimers selects
// whether expired timers count as dispatchable work.
func (te *TestExecutor) nextStep(fireTimers bool) (stepKind, Time) {
	c := te.local.core
	if te.buffered != nil {
		return stepPacket, 0
	}
	deadline, haveTimer := c.timers.nextDeadline()
	if !haveTimer {
		deadline = TimeInfinite
	}
	if fireTimers && haveTimer && !c.now().Before(deadline) {
		return stepTimer, deadline
	}
	pkt, err := c.port.Wait(0)
	if err == nil {
		te.buffered = &pkt
		return stepPacket, 0
	}
	if !errors.Is(err, ErrTimedOut) {
		panic(&PortError{Op: "wait", Cause: err})
	}
	return stepWaitUntil, deadline
}

// consumeBuffered dispatches the packet buffered by nextStep. Calling it
// without one is a dispatcher bug.
func consumeBuffered[T any](te *TestExecutor, cx *Context, main Future[T]) Poll[T] {
	pkt := te.buffered
	if pkt == nil {
		panic("asyncexec: no buffered packet to consume")
	}
	te.buffered = nil
	return dispatchPacket(te.local, cx, main, *pkt, Pending[T]())
}

// RunOneStep dispatches at most one packet or one expired timer. It
// reports false when there is nothing to dispatch without advancing time;
// otherwise the step's poll outcome, which reflects main only when the
// step consumed a main-task packet. Time never advances.
func RunOneStep[T any](te *TestExecutor, main Future[T]) (Poll[T], bool) {
	if te == nil || te.local == nil {
		panic("asyncexec: run on nil executor")
	}
	if main == nil {
		panic("asyncexec: run of nil future")
	}
	c := te.local.core
	beginRun(c)
	defer endRun(c)

	kind, _ := te.nextStep(true)
	switch kind {
	case stepWaitUntil:
		return Poll[T]{}, false
	case stepTimer:
		fireEarliestTimer(c)
		return Pending[T](), true
	default:
		cx := &Context{waker: NewWaker(&te.local.main), core: c}
		return consumeBuffered(te, cx, main), true
	}
}

// RunUntilStalled wakes and drives main until no further progress is
// possible from already-queued work. Expired timers do not fire and time
// never advances; a Pending result means the executor has stalled, not
// that main can never complete.
func RunUntilStalled[T any](te *TestExecutor, main Future[T]) Poll[T] {
	if te == nil || te.local == nil {
		panic("asyncexec: run on nil executor")
	}
	if main == nil {
		panic("asyncexec: run of nil future")
	}
	c := te.local.core
	beginRun(c)
	defer endRun(c)

	te.local.main.Wake()
	cx := &Context{waker: NewWaker(&te.local.main), core: c}
	for {
		if kind, _ := te.nextStep(false); kind != stepPacket {
			return Pending[T]()
		}
		if p := consumeBuffered(te, cx, main); p.IsReady {
			return p
		}
	}
}
