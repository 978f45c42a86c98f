package asyncexec

import "sync/atomic"

// Notifier is a wakeup-deduplication latch. It bounds the number of queued
// wakeup packets for a task to at most one, no matter how many times the
// task's waker fires between polls.
//
// The protocol has two sides. Producers call PrepareNotify before queueing
// a packet and only queue on true; the consumer calls Reset immediately
// before polling the guarded task, re-arming the latch so the next wake
// produces a fresh packet. Wakes that land between Reset and the poll are
// not lost; they queue a new packet that causes one more (possibly
// spurious) poll.
//
// Thread Safety: all methods are safe from any goroutine.
type Notifier struct {
	pending atomic.Bool
}

// PrepareNotify attempts to claim the right to enqueue a wakeup packet.
// It returns true iff this call transitioned the latch from idle to
// pending; callers must enqueue exactly one packet on true and nothing
// on false.
func (n *Notifier) PrepareNotify() bool {
	return n.pending.CompareAndSwap(false, true)
}

// Reset re-arms the latch. Call right before polling the guarded task.
func (n *Notifier) Reset() {
	n.pending.Store(false)
}
