package asyncexec

import "time"

// SpawnLocal schedules fut to run concurrently on h's executor, immediately
// waking it so it is polled at least once. The returned Task is fut's join
// handle: it is itself a Future yielding fut's result, and stays valid after
// completion (repeated polls return the same value).
//
// Spawning is legal from any code running on the executor goroutine,
// including from inside another future's Poll and from inside a Release
// hook during teardown. A task spawned once teardown has begun is released
// immediately and never polled. Panics if fut is nil.
func SpawnLocal[T any](h *Handle, fut Future[T]) *Task[T] {
	if h == nil || h.core == nil {
		panic("asyncexec: spawn on nil handle")
	}
	if fut == nil {
		panic("asyncexec: spawn of nil future")
	}
	c := h.core
	t := &Task[T]{core: c, id: c.taskIDs.Add(1)}
	c.collector.taskSpawned()
	if c.done.Load() {
		c.collector.taskCancelled()
		releaseFuture(fut)
		return t
	}
	t.fut = fut
	c.registerTask(t.id, t)
	t.notifier.PrepareNotify()
	c.pushReady(t)
	return t
}

// releaseFuture runs fut's release hook, if it has one.
func releaseFuture[T any](fut Future[T]) {
	if r, ok := fut.(Releaser); ok {
		r.Release()
	}
}

// Task is the join handle of a spawned future. Apart from the Wake method
// on its waker, which is safe from any goroutine, a Task must only be used
// on the executor goroutine.
type Task[T any] struct {
	core *core
	id   uint64

	// notifier bounds this task to one ready-queue entry at a time, no
	// matter how many wakers fire between polls.
	notifier Notifier

	fut       Future[T]
	result    T
	completed bool
	consumed  bool
	joinWaker Waker
}

// Wake schedules the task to be polled. Safe from any goroutine; extra
// calls before the next poll coalesce into one.
func (t *Task[T]) Wake() {
	if t.notifier.PrepareNotify() {
		t.core.pushReady(t)
	} else {
		t.core.collector.wakeDeduped()
	}
}

// Poll implements Future. It yields the spawned future's result once that
// future completes. Panics if the task was detached or cancelled.
func (t *Task[T]) Poll(cx *Context) Poll[T] {
	if t.consumed {
		panic("asyncexec: poll of a detached or cancelled task handle")
	}
	if t.completed {
		return Ready(t.result)
	}
	t.joinWaker = cx.Waker()
	return Pending[T]()
}

// Detach relinquishes the join handle, leaving the task running. The
// handle must not be polled afterwards.
func (t *Task[T]) Detach() {
	t.consumed = true
	t.joinWaker = Waker{}
}

// Cancel stops the task. If the future has not completed, its release
// hook runs synchronously before Cancel returns, and the task will never
// be polled again. No-op on an already completed, cancelled, or detached
// task.
func (t *Task[T]) Cancel() {
	if t.consumed {
		return
	}
	t.consumed = true
	t.joinWaker = Waker{}
	fut := t.fut
	if fut == nil {
		return
	}
	t.fut = nil
	t.core.deregisterTask(t.id)
	t.core.collector.taskCancelled()
	releaseFuture(fut)
}

// pollTask runs one poll of the spawned future. Executor goroutine only.
func (t *Task[T]) pollTask() {
	fut := t.fut
	if fut == nil {
		return // completed or cancelled; stale wakeup
	}

	// Reset before polling, so wakes that land mid-poll re-enqueue.
	t.notifier.Reset()

	start := time.Now()
	p := fut.Poll(&Context{waker: NewWaker(t), core: t.core})
	t.core.collector.pollRecorded(time.Since(start))
	if !p.IsReady {
		return
	}

	t.fut = nil
	t.result = p.Value
	t.completed = true
	t.core.deregisterTask(t.id)
	t.core.collector.taskCompleted()
	t.joinWaker.Wake()
	t.joinWaker = Waker{}
}

// disposeTask releases the future at teardown.
func (t *Task[T]) disposeTask() {
	fut := t.fut
	if fut == nil {
		return
	}
	t.fut = nil
	t.core.collector.taskCancelled()
	releaseFuture(fut)
}
