// Package asyncexec provides a single-threaded, completion-based
// asynchronous task executor for Go, featuring poll-driven futures,
// deduplicated wakeups, a timer heap, and a steppable fake-time variant
// for deterministic tests.
//
// # Architecture
//
// The executor is built around a [Port], a wait primitive carrying every
// resumption in the system as an opaque [Packet]. Futures ([Future]) are
// polled only on the goroutine driving a run function; when a poll returns
// Pending the future captures a [Waker] and the task suspends until a
// wakeup packet for it is dequeued. There is no polling-based or
// shared-memory resumption path.
//
// Wakeups are deduplicated twice. A per-task [Notifier] latch collapses
// any number of Wake calls between polls into a single scheduling event,
// and a second latch batches all simultaneously woken tasks behind one
// ready-queue packet, whose consumption drains the entire queue in one
// step.
//
// Packet keys above the receiver key space are reserved for the scheduler
// itself; every other key belongs to a [PacketReceiver] registered with
// [RegisterReceiver], which is how external completion sources ([Event],
// or bridges installed with [WithPort]) reach futures.
//
// # Execution Model
//
// [RunSinglethreaded] drives a root future to completion on the calling
// goroutine, sleeping on the port with the earliest timer deadline as the
// wait bound. Dispatch per iteration:
//  1. A timed-out wait fires the single earliest timer.
//  2. A main-task packet re-polls the root future.
//  3. A ready-queue packet drains and polls every woken task.
//  4. Any other packet is forwarded to its registered receiver.
//  5. Timers that expired while handling a packet are fired before the
//     next wait.
//
// [TestExecutor] exposes the same dispatcher one step at a time:
// [RunUntilStalled] consumes already-queued work without advancing time,
// [RunOneStep] dispatches exactly one packet or expired timer, and
// [TestExecutor.IsWaiting] reports what a stalled executor is waiting
// for. With [NewTestExecutorWithFakeTime] the clock moves only under test
// control ([TestExecutor.SetFakeTime], [TestExecutor.WakeNextTimer]).
//
// # Thread Safety
//
// The split is strict:
//   - [Waker.Wake], [Oneshot.Resolve], [Event.Signal], and
//     [ReceiverRegistration.Queue] are safe from any goroutine.
//   - Poll methods, task handles ([Task]), the [TestExecutor] surface,
//     and Close are confined to the executor's goroutine.
//   - The timer heap is touched only from the executor's goroutine,
//     reached through the poll [Context]; it needs no synchronization.
//
// # Cancellation and Teardown
//
// Dropping a task is the only cancellation mechanism: [Task.Cancel] and
// executor teardown both release the future synchronously (see
// [Releaser]). Close disposes every live task, then panics if a receiver
// registration was leaked; waitables must be closed before their
// executor.
//
// # Usage
//
//	ex, err := asyncexec.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ex.Close()
//
//	timer := asyncexec.After(10 * time.Millisecond)
//	result := asyncexec.RunSinglethreaded[string](ex,
//	    asyncexec.FutureFunc[string](func(cx *asyncexec.Context) asyncexec.Poll[string] {
//	        if p := timer.Poll(cx); !p.IsReady {
//	            return asyncexec.Pending[string]()
//	        }
//	        return asyncexec.Ready("done")
//	    }))
//
// # Errors
//
// Construction is the only error-returning path; contract violations
// (running a fake-time executor in blocking mode, reentrant runs, reading
// fake time from a real clock) panic. Recoverable conditions surface as
// sentinels: [ErrTimedOut], [ErrExecutorDone], [ErrAlreadyResolved],
// [ErrReceiverClosed]. Wait-primitive failures panic carrying a
// [PortError] value, which supports [errors.Unwrap].
package asyncexec
