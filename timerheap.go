package asyncexec

import "container/heap"

// timerEntry is one pending timer: an absolute deadline and the waker to
// fire when it passes. The seq field breaks deadline ties in arm order so
// that equal-deadline timers fire first-armed-first.
type timerEntry struct {
	deadline Time
	waker    Waker
	seq      uint64
}

// timerHeap is a min-heap of pending timers ordered by deadline.
//
// Thread Safety: NOT thread-safe, and deliberately so. The heap is only
// touched from the executor's goroutine, reached through the poll Context;
// wakers never mutate it. Entries are never removed except by popping the
// minimum: a timer abandoned by its future stays in the heap and fires
// harmlessly, since waking a completed task is a no-op.
type timerHeap struct {
	entries []timerEntry
	nextSeq uint64
}

// Implement heap.Interface for timerHeap.
func (h *timerHeap) Len() int { return len(h.entries) }

func (h *timerHeap) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	if a.deadline != b.deadline {
		return a.deadline < b.deadline
	}
	return a.seq < b.seq
}

func (h *timerHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *timerHeap) Push(x any) {
	h.entries = append(h.entries, x.(timerEntry))
}

func (h *timerHeap) Pop() any {
	old := h.entries
	n := len(old)
	x := old[n-1]
	old[n-1] = timerEntry{}
	h.entries = old[:n-1]
	return x
}

// arm schedules w to be woken once the executor's clock reaches deadline.
// Arming a deadline already in the past is legal; the entry becomes
// immediately eligible on the next expiry check.
func (h *timerHeap) arm(deadline Time, w Waker) {
	h.nextSeq++
	heap.Push(h, timerEntry{deadline: deadline, waker: w, seq: h.nextSeq})
}

// nextDeadline returns the earliest pending deadline.
func (h *timerHeap) nextDeadline() (Time, bool) {
	if len(h.entries) == 0 {
		return 0, false
	}
	return h.entries[0].deadline, true
}

// pop removes and returns the earliest pending timer.
func (h *timerHeap) pop() (timerEntry, bool) {
	if len(h.entries) == 0 {
		return timerEntry{}, false
	}
	return heap.Pop(h).(timerEntry), true
}

// wakeExpired pops and wakes every timer whose deadline is at or before
// now, in deadline order, and returns how many fired.
func (h *timerHeap) wakeExpired(now Time) int {
	fired := 0
	for len(h.entries) > 0 && h.entries[0].deadline <= now {
		e := heap.Pop(h).(timerEntry)
		e.waker.Wake()
		fired++
	}
	return fired
}
