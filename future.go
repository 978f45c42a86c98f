package asyncexec

// Poll is the result of polling a future once: either a final value or an
// indication that the future suspended and will signal readiness through
// the waker it captured from the poll context.
type Poll[T any] struct {
	Value   T
	IsReady bool
}

// Ready returns a completed poll result carrying v.
func Ready[T any](v T) Poll[T] {
	return Poll[T]{Value: v, IsReady: true}
}

// Pending returns a suspended poll result.
func Pending[T any]() Poll[T] {
	return Poll[T]{}
}

// Future is a unit of asynchronous work driven by an executor.
//
// Poll is only ever invoked on the executor's goroutine. A future that
// returns Pending must first capture cx.Waker() and arrange for Wake to be
// called when it can make progress; a future that returns Pending without
// a pending wake source will suspend forever. Futures must tolerate
// spurious polls (polls with no progress possible) by returning Pending
// again.
type Future[T any] interface {
	Poll(cx *Context) Poll[T]
}

// FutureFunc adapts a plain function to the Future interface.
type FutureFunc[T any] func(cx *Context) Poll[T]

// Poll implements Future.
func (f FutureFunc[T]) Poll(cx *Context) Poll[T] { return f(cx) }

// Releaser is implemented by futures that hold resources requiring cleanup
// when the future is discarded before completion. Cancelling a spawned task
// and executor teardown both invoke Release synchronously; completed
// futures are never released.
type Releaser interface {
	Release()
}

// Wakeable is the capability of being scheduled for another poll. It is
// implemented by the executor's root task and by spawned task handles.
//
// Wake must be safe to call from any goroutine, at any time, any number of
// times. Waking an already-completed or already-queued task is a no-op.
type Wakeable interface {
	Wake()
}

// Waker is a small copyable handle that requests a re-poll of the task it
// was captured from. The zero Waker is valid and wakes nothing.
type Waker struct {
	target Wakeable
}

// NewWaker returns a Waker that delegates to target.
func NewWaker(target Wakeable) Waker {
	return Waker{target: target}
}

// Wake requests that the owning task be polled again. Safe from any
// goroutine.
func (w Waker) Wake() {
	if w.target != nil {
		w.target.Wake()
	}
}

// Context carries the services available to a future during a poll: the
// waker identifying the task being polled, the executor clock, and the
// timer subsystem. A Context is only valid for the duration of the poll
// call it is passed to, except for the Waker, which may be retained.
type Context struct {
	waker Waker
	core  *core
}

// Waker returns the waker for the task currently being polled. Futures
// retain it across polls to signal readiness later.
func (cx *Context) Waker() Waker { return cx.waker }

// Now returns the current instant on the executor's clock.
func (cx *Context) Now() Time { return cx.core.now() }

// Handle returns the executor handle, for spawning tasks or registering
// packet receivers from inside a poll.
func (cx *Context) Handle() *Handle { return cx.core.handle }

// armTimer schedules a wake of w at deadline. Executor goroutine only; the
// timer heap is deliberately unsynchronized.
func (cx *Context) armTimer(deadline Time, w Waker) {
	cx.core.timers.arm(deadline, w)
	cx.core.collector.timerArmed()
}
