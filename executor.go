package asyncexec

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dlsniper/debugger"
	"github.com/joeycumines/logiface"
)

// Handle grants spawn and receiver-registration access to an executor
// without exposing its run or teardown surface. Handles are obtained from
// an executor, or from the Context passed to Poll. A Handle remains valid
// for the life of its executor; operations on it after Close are rejected
// or ignored, never undefined.
type Handle struct {
	core *core
}

// mainTask wakes the root future of a run call. It owns the main-task
// notifier, bounding main wakeups to one queued packet at a time.
type mainTask struct {
	core     *core
	notifier Notifier
}

// Wake requests a re-poll of the root future. Safe from any goroutine.
func (m *mainTask) Wake() {
	c := m.core
	if c.done.Load() {
		return
	}
	if m.notifier.PrepareNotify() {
		c.collector.wakeQueued()
		c.queuePacket(Packet{Key: keyMainTask, Signals: SignalWakeup})
	} else {
		c.collector.wakeDeduped()
	}
}

// LocalExecutor is a single-threaded, completion-based executor. Futures
// are polled only on the goroutine that calls RunSinglethreaded; wakers
// hand progress notifications back through the port from any goroutine.
//
// The zero value is not usable; construct with New.
type LocalExecutor struct {
	_    [0]func() // prevents comparability, discourages copying
	core *core
	main mainTask
}

// New constructs an idle real-time executor. The only failure mode is an
// invalid option.
func New(opts ...Option) (*LocalExecutor, error) {
	return newLocalExecutor(opts, false)
}

func newLocalExecutor(opts []Option, fakeTime bool) (*LocalExecutor, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	ex := &LocalExecutor{core: newCore(cfg, fakeTime)}
	ex.main.core = ex.core
	ex.core.log(logiface.LevelDebug).
		Bool("fake_time", fakeTime).
		Log("executor created")
	return ex, nil
}

// Handle returns the executor's spawn/registration handle.
func (ex *LocalExecutor) Handle() *Handle { return ex.core.handle }

// State reports the executor lifecycle state.
func (ex *LocalExecutor) State() ExecutorState { return ex.core.state.Load() }

// Metrics returns a point-in-time snapshot of the executor's counters.
func (ex *LocalExecutor) Metrics() Stats { return ex.core.collector.Stats() }

// Close tears down the executor. Every live task is disposed of, running
// release hooks synchronously; tasks spawned from inside a release hook
// are disposed of as well. After disposal, any packet receiver still
// registered is a leak and Close panics. Panics if a run call is in
// progress. Idempotent otherwise.
func (ex *LocalExecutor) Close() {
	c := ex.core
	if !c.state.TryTransition(StateIdle, StateClosed) {
		if c.state.Load() == StateRunning {
			panic("asyncexec: close of a running executor")
		}
		return // already closed
	}

	// Producers observe done before disposal begins, so late wakes
	// cannot queue packets during or after teardown.
	c.done.Store(true)

	for {
		batch := c.takeTasks()
		if len(batch) == 0 {
			break
		}
		for _, t := range batch {
			t.disposeTask()
		}
	}

	if n := c.registry.size(); n != 0 {
		panic(fmt.Sprintf("asyncexec: executor closed with %d registered receiver(s)", n))
	}
	c.log(logiface.LevelDebug).Log("executor closed")
}

// RunSinglethreaded drives main on the calling goroutine until it
// completes, sleeping on the port whenever nothing is ready and no timer
// has expired. Spawned tasks and receivers make progress between polls of
// main. Only valid on a real-time executor that is neither closed nor
// already running; violations panic.
func RunSinglethreaded[T any](ex *LocalExecutor, main Future[T]) T {
	if ex == nil || ex.core == nil {
		panic("asyncexec: run on nil executor")
	}
	if main == nil {
		panic("asyncexec: run of nil future")
	}
	c := ex.core
	if c.clock.fake {
		panic("asyncexec: blocking run on a fake-time executor")
	}
	beginRun(c)
	defer endRun(c)

	debugger.SetLabels(func() []string {
		return []string{
			"pkg", "asyncexec",
			"executor", strconv.FormatUint(c.id, 10),
			"mode", "run",
		}
	})

	cx := &Context{waker: NewWaker(&ex.main), core: c}

	// One unconditional poll, so futures that complete without ever
	// needing a wakeup still do.
	p := pollMain(&ex.main, cx, main)
	for {
		if p.IsReady {
			return p.Value
		}
		pkt, err := c.port.Wait(c.waitTimeout())
		switch {
		case err == nil:
			p = dispatchPacket(ex, cx, main, pkt, p)
			// Handling the packet took time; fire what expired.
			c.collector.timersFiredAdd(c.timers.wakeExpired(c.now()))
		case errors.Is(err, ErrTimedOut):
			fireEarliestTimer(c)
		default:
			panic(&PortError{Op: "wait", Cause: err})
		}
	}
}

// beginRun moves the executor into the running state, panicking on
// reentrant runs and runs after Close.
func beginRun(c *core) {
	if !c.state.TryTransition(StateIdle, StateRunning) {
		if c.state.Load() == StateClosed {
			panic("asyncexec: run on a closed executor")
		}
		panic("asyncexec: executor is already running")
	}
}

func endRun(c *core) {
	c.state.Store(StateIdle)
}

// pollMain polls the root future, resetting the main notifier first so
// wakes landing mid-poll queue a fresh packet.
func pollMain[T any](m *mainTask, cx *Context, main Future[T]) Poll[T] {
	m.notifier.Reset()
	start := time.Now()
	p := main.Poll(cx)
	m.core.collector.pollRecorded(time.Since(start))
	return p
}

// dispatchPacket routes one packet: a main-task packet re-polls main and
// yields the new result, a task-ready packet drains the ready queue, and
// anything else goes to the receiver registry. last is returned whenever
// main was not re-polled.
func dispatchPacket[T any](ex *LocalExecutor, cx *Context, main Future[T], pkt Packet, last Poll[T]) Poll[T] {
	c := ex.core
	switch pkt.Key {
	case keyMainTask:
		c.collector.packetMain()
		return pollMain(&ex.main, cx, main)
	case keyTaskReady:
		c.collector.packetReady()
		c.pollReadyTasks()
		return last
	default:
		c.deliverPacket(pkt)
		return last
	}
}

// fireEarliestTimer pops and wakes the single earliest timer entry. The
// port only times out when a timer deadline bounded the wait, so an empty
// heap here is impossible by construction.
func fireEarliestTimer(c *core) {
	entry, ok := c.timers.pop()
	if !ok {
		panic("asyncexec: wait timed out with no pending timer")
	}
	entry.waker.Wake()
	c.collector.timersFiredAdd(1)
}
