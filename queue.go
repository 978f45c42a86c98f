package asyncexec

import "sync"

// queueChunkSize is the number of slots per node in a chunkQueue's linked
// list. 128 slots amortize allocation and keep each chunk around 1-2KB for
// the element types used here.
const queueChunkSize = 128

// chunkQueue is a chunked linked-list FIFO used for the in-process packet
// queue and the ready-task queue.
//
// Thread Safety: NOT thread-safe. The caller must provide external
// synchronization (the owning structure's mutex).
//
// Performance rationale:
//   - Fixed-size arrays provide cache locality and amortize allocations.
//   - sync.Pool chunk recycling prevents GC thrashing under sustained
//     wake/drain cycles.
type chunkQueue[T any] struct {
	head   *queueChunk[T]
	tail   *queueChunk[T]
	length int
	pool   *sync.Pool
}

// queueChunk is a fixed-size node. readPos/pos cursors give O(1) push and
// pop without shifting.
type queueChunk[T any] struct {
	items   [queueChunkSize]T
	next    *queueChunk[T]
	readPos int // first unread slot
	pos     int // first unused slot
}

func newChunkQueue[T any]() *chunkQueue[T] {
	return &chunkQueue[T]{
		pool: &sync.Pool{New: func() any { return new(queueChunk[T]) }},
	}
}

func (q *chunkQueue[T]) newChunk() *queueChunk[T] {
	c := q.pool.Get().(*queueChunk[T])
	c.pos = 0
	c.readPos = 0
	c.next = nil
	return c
}

// releaseChunk returns an exhausted chunk to the pool, clearing slots so
// the pool does not retain references to queued values.
func (q *chunkQueue[T]) releaseChunk(c *queueChunk[T]) {
	var zero T
	for i := 0; i < c.pos; i++ {
		c.items[i] = zero
	}
	c.pos = 0
	c.readPos = 0
	c.next = nil
	q.pool.Put(c)
}

// push appends v to the queue.
//
// CALLER MUST HOLD EXTERNAL MUTEX.
func (q *chunkQueue[T]) push(v T) {
	if q.tail == nil {
		q.tail = q.newChunk()
		q.head = q.tail
	}

	if q.tail.pos == len(q.tail.items) {
		next := q.newChunk()
		q.tail.next = next
		q.tail = next
	}

	q.tail.items[q.tail.pos] = v
	q.tail.pos++
	q.length++
}

// pop removes and returns the oldest element. Returns false if the queue
// is empty.
//
// CALLER MUST HOLD EXTERNAL MUTEX.
func (q *chunkQueue[T]) pop() (T, bool) {
	var zero T
	if q.head == nil {
		return zero, false
	}

	// Advance past an exhausted head chunk, or reset cursors when this is
	// the only chunk so it can be reused in place.
	if q.head.readPos >= q.head.pos {
		if q.head == q.tail {
			q.head.pos = 0
			q.head.readPos = 0
			return zero, false
		}
		old := q.head
		q.head = q.head.next
		q.releaseChunk(old)
	}

	if q.head.readPos >= q.head.pos {
		return zero, false
	}

	v := q.head.items[q.head.readPos]
	q.head.items[q.head.readPos] = zero
	q.head.readPos++
	q.length--

	if q.head.readPos >= q.head.pos {
		if q.head == q.tail {
			q.head.pos = 0
			q.head.readPos = 0
			return v, true
		}
		old := q.head
		q.head = q.head.next
		q.releaseChunk(old)
	}

	return v, true
}

// len returns the number of queued elements.
//
// CALLER MUST HOLD EXTERNAL MUTEX.
func (q *chunkQueue[T]) len() int {
	return q.length
}
