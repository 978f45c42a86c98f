package asyncexec

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// executorIDCounter assigns a process-unique id to each executor, used to
// tag log events when several executors share a logger.
var executorIDCounter atomic.Uint64

// runnable is the executor's view of a spawned task: poll it when woken,
// dispose of it at teardown.
type runnable interface {
	pollTask()
	disposeTask()
}

// core holds the state shared between an executor, its Handle, its tasks,
// and its registered receivers. Every field is immutable after
// construction, independently synchronized, or confined to the executor
// goroutine (timers, readyBuf).
type core struct {
	port      Port
	clock     *clock
	state     *execState
	collector *Collector
	logger    *logiface.Logger[logiface.Event]
	registry  *receiverRegistry
	handle    *Handle
	id        uint64

	// done gates all wakeup producers once teardown begins. It is set
	// before tasks are disposed, so late Wake calls become no-ops
	// instead of packets nobody will drain.
	done atomic.Bool

	// ready collects tasks woken since the last drain. readyLatch
	// ensures at most one task-ready packet is in flight per drain
	// cycle regardless of how many tasks were woken.
	readyMu    sync.Mutex
	ready      *chunkQueue[runnable]
	readyLatch Notifier

	// readyBuf is reused across drains. Executor goroutine only.
	readyBuf []runnable

	// timers is the pending timer heap. Executor goroutine only.
	timers timerHeap

	// tasks tracks every live spawned task so teardown can dispose of
	// them. taskIDs feeds map keys, not packet keys.
	tasksMu sync.Mutex
	tasks   map[uint64]runnable
	taskIDs atomic.Uint64
}

func newCore(cfg *executorOptions, fakeTime bool) *core {
	c := &core{
		port:      cfg.port,
		clock:     newClock(fakeTime),
		state:     newExecState(),
		collector: cfg.collector,
		logger:    cfg.logger,
		registry:  newReceiverRegistry(),
		id:        executorIDCounter.Add(1),
		ready:     newChunkQueue[runnable](),
		tasks:     make(map[uint64]runnable),
	}
	c.handle = &Handle{core: c}
	return c
}

func (c *core) now() Time { return c.clock.now() }

// queuePacket submits a wakeup packet to the port. A port that rejects
// packets leaves the executor unable to make progress, so failure is
// fatal.
func (c *core) queuePacket(pkt Packet) {
	if err := c.port.Queue(pkt); err != nil {
		panic(&PortError{Op: "queue", Cause: err})
	}
}

// pushReady enqueues a woken task, ringing the port at most once per
// drain cycle. Safe to call from any goroutine; a no-op once teardown
// has begun.
func (c *core) pushReady(t runnable) {
	if c.done.Load() {
		return
	}
	c.readyMu.Lock()
	c.ready.push(t)
	notify := c.readyLatch.PrepareNotify()
	c.readyMu.Unlock()
	c.collector.wakeQueued()
	if notify {
		c.queuePacket(Packet{Key: keyTaskReady, Signals: SignalWakeup})
	}
}

// pollReadyTasks drains the ready queue and polls each task it held. The
// latch resets before the drain, while the lock is still held, so a wake
// arriving mid-drain queues a fresh packet rather than being lost.
func (c *core) pollReadyTasks() {
	c.readyMu.Lock()
	c.readyLatch.Reset()
	buf := c.readyBuf[:0]
	for {
		t, ok := c.ready.pop()
		if !ok {
			break
		}
		buf = append(buf, t)
	}
	c.readyMu.Unlock()

	// Polling happens outside the lock: tasks may wake other tasks, or
	// respawn, and both paths take readyMu.
	for i, t := range buf {
		t.pollTask()
		buf[i] = nil
	}
	c.readyBuf = buf[:0]
}

// deliverPacket routes a receiver packet by key. Packets for keys with no
// registered receiver are dropped; deregistration and delivery race by
// nature, so a drop is unremarkable.
func (c *core) deliverPacket(pkt Packet) {
	if r, ok := c.registry.lookup(pkt.Key); ok {
		c.collector.packetReceiver()
		r.ReceivePacket(pkt)
		return
	}
	c.collector.packetDropped()
	c.log(logiface.LevelDebug).
		Uint64("key", pkt.Key).
		Log("dropped packet for unregistered key")
}

// waitTimeout converts the earliest timer deadline into a Wait timeout.
// Negative means no timers are pending and the port should block
// indefinitely.
func (c *core) waitTimeout() time.Duration {
	deadline, ok := c.timers.nextDeadline()
	if !ok {
		return -1
	}
	d := deadline.Sub(c.now())
	if d < 0 {
		return 0
	}
	return d
}

func (c *core) registerTask(id uint64, t runnable) {
	c.tasksMu.Lock()
	c.tasks[id] = t
	c.tasksMu.Unlock()
}

func (c *core) deregisterTask(id uint64) {
	c.tasksMu.Lock()
	delete(c.tasks, id)
	c.tasksMu.Unlock()
}

// takeTasks removes and returns every live task. Teardown calls it in a
// loop because disposing a task can spawn more.
func (c *core) takeTasks() []runnable {
	c.tasksMu.Lock()
	defer c.tasksMu.Unlock()
	if len(c.tasks) == 0 {
		return nil
	}
	batch := make([]runnable, 0, len(c.tasks))
	for id, t := range c.tasks {
		batch = append(batch, t)
		delete(c.tasks, id)
	}
	return batch
}
