package asyncexec

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates executor runtime statistics: wakeup and packet
// accounting, task lifecycle counts, timer activity, and a streaming
// poll-latency distribution.
//
// Every executor owns a Collector; share one across executors with
// WithCollector when aggregate numbers are wanted.
//
// Thread Safety:
//   - Counters use atomics and may be bumped from any goroutine.
//   - The latency estimator is mutex-guarded (single writer in practice,
//     snapshot readers from anywhere).
//   - Stats() returns a copy, safe for concurrent use.
//
// Example:
//
//	ex, _ := asyncexec.New()
//	_ = asyncexec.RunSinglethreaded(ex, work)
//	stats := ex.Metrics()
//	fmt.Printf("wakeups=%d deduped=%d p99=%v\n",
//		stats.Wakeups, stats.WakeupsDeduped, stats.PollLatency.P99)
type Collector struct {
	wakeups         atomic.Uint64
	wakeupsDeduped  atomic.Uint64
	packetsMain     atomic.Uint64
	packetsReady    atomic.Uint64
	packetsReceiver atomic.Uint64
	packetsDropped  atomic.Uint64
	tasksSpawned    atomic.Uint64
	tasksCompleted  atomic.Uint64
	tasksCancelled  atomic.Uint64
	timersArmed     atomic.Uint64
	timersFired     atomic.Uint64
	polls           atomic.Uint64

	mu      sync.Mutex
	latency *multiQuantile
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		latency: newMultiQuantile(0.50, 0.90, 0.99),
	}
}

// Stats is a point-in-time snapshot of a Collector.
type Stats struct {
	// Wakeups counts wakeup packets enqueued on the wait primitive. The
	// Notifier latches bound this to at most one per task per poll cycle,
	// so it stays far below the raw wake-call count under contention.
	Wakeups uint64

	// WakeupsDeduped counts wake calls collapsed by an already-pending
	// Notifier latch.
	WakeupsDeduped uint64

	// Packet dispatch counts by target.
	PacketsMain     uint64
	PacketsReady    uint64
	PacketsReceiver uint64

	// PacketsDropped counts packets whose key had no live receiver at
	// dispatch time.
	PacketsDropped uint64

	// Task lifecycle counts.
	TasksSpawned   uint64
	TasksCompleted uint64
	TasksCancelled uint64

	// Timer activity.
	TimersArmed uint64
	TimersFired uint64

	// Polls counts future polls driven by the executor, root and spawned
	// combined.
	Polls uint64

	// PollLatency summarizes the wall-clock cost of individual polls.
	PollLatency LatencySummary
}

// LatencySummary carries streaming-estimated latency percentiles.
type LatencySummary struct {
	Count int
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P99   time.Duration
	Max   time.Duration
}

// Stats returns a snapshot of all counters and the latency distribution.
func (c *Collector) Stats() Stats {
	s := Stats{
		Wakeups:         c.wakeups.Load(),
		WakeupsDeduped:  c.wakeupsDeduped.Load(),
		PacketsMain:     c.packetsMain.Load(),
		PacketsReady:    c.packetsReady.Load(),
		PacketsReceiver: c.packetsReceiver.Load(),
		PacketsDropped:  c.packetsDropped.Load(),
		TasksSpawned:    c.tasksSpawned.Load(),
		TasksCompleted:  c.tasksCompleted.Load(),
		TasksCancelled:  c.tasksCancelled.Load(),
		TimersArmed:     c.timersArmed.Load(),
		TimersFired:     c.timersFired.Load(),
		Polls:           c.polls.Load(),
	}

	c.mu.Lock()
	s.PollLatency = LatencySummary{
		Count: c.latency.Count(),
		Mean:  time.Duration(c.latency.Mean()),
		P50:   time.Duration(c.latency.Quantile(0)),
		P90:   time.Duration(c.latency.Quantile(1)),
		P99:   time.Duration(c.latency.Quantile(2)),
		Max:   time.Duration(c.latency.Max()),
	}
	c.mu.Unlock()

	return s
}

func (c *Collector) wakeQueued()     { c.wakeups.Add(1) }
func (c *Collector) wakeDeduped()    { c.wakeupsDeduped.Add(1) }
func (c *Collector) packetMain()     { c.packetsMain.Add(1) }
func (c *Collector) packetReady()    { c.packetsReady.Add(1) }
func (c *Collector) packetReceiver() { c.packetsReceiver.Add(1) }
func (c *Collector) packetDropped()  { c.packetsDropped.Add(1) }
func (c *Collector) taskSpawned()    { c.tasksSpawned.Add(1) }
func (c *Collector) taskCompleted()  { c.tasksCompleted.Add(1) }
func (c *Collector) taskCancelled()  { c.tasksCancelled.Add(1) }
func (c *Collector) timerArmed()     { c.timersArmed.Add(1) }

func (c *Collector) timersFiredAdd(n int) {
	if n > 0 {
		c.timersFired.Add(uint64(n))
	}
}

// pollRecorded accounts one poll and its wall-clock duration.
func (c *Collector) pollRecorded(d time.Duration) {
	c.polls.Add(1)
	c.mu.Lock()
	c.latency.Update(float64(d))
	c.mu.Unlock()
}
