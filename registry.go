package asyncexec

import (
	"sync"

	"github.com/joeycumines/logiface"
)

// PacketReceiver handles packets delivered to a registered key. The
// executor calls ReceivePacket on its own goroutine while dispatching, so
// implementations may touch poll-side state without extra locking, but
// must not block.
type PacketReceiver interface {
	ReceivePacket(pkt Packet)
}

// receiverRegistry maps packet keys to their receivers. Keys are issued
// from a counter starting at one; zero is the null marker and the top of
// the key space is reserved for the scheduler's own packets.
//
// The registry is intentionally strict about lifecycle: entries are only
// removed by an explicit deregister, and executor teardown asserts the
// registry is empty. A leaked registration is a bug in the waitable that
// owns it, and it is surfaced loudly rather than scavenged away.
type receiverRegistry struct {
	mu      sync.RWMutex
	data    map[uint64]PacketReceiver
	nextKey uint64
}

func newReceiverRegistry() *receiverRegistry {
	return &receiverRegistry{
		data:    make(map[uint64]PacketReceiver),
		nextKey: 1,
	}
}

// register assigns a fresh key to rcv and returns it.
func (r *receiverRegistry) register(rcv PacketReceiver) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.nextKey
	r.nextKey++
	r.data[key] = rcv
	return key
}

// deregister removes the entry for key, reporting whether it existed.
func (r *receiverRegistry) deregister(key uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[key]; !ok {
		return false
	}
	delete(r.data, key)
	return true
}

// lookup returns the receiver registered under key.
func (r *receiverRegistry) lookup(key uint64) (PacketReceiver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rcv, ok := r.data[key]
	return rcv, ok
}

// size returns the number of live registrations.
func (r *receiverRegistry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.data)
}

// ReceiverRegistration ties a PacketReceiver to its allocated key on one
// executor. Obtain one with RegisterReceiver; Close it before the
// executor is closed, or teardown will panic on the leak.
type ReceiverRegistration[R PacketReceiver] struct {
	receiver R
	core     *core
	key      uint64
	closed   bool
}

// RegisterReceiver registers receiver with the executor behind h and
// returns the registration carrying its packet key. Registration on a
// closed executor returns ErrExecutorDone.
func RegisterReceiver[R PacketReceiver](h *Handle, receiver R) (*ReceiverRegistration[R], error) {
	c := h.core
	if c.done.Load() {
		return nil, ErrExecutorDone
	}
	key := c.registry.register(receiver)
	c.log(logiface.LevelTrace).Uint64("key", key).Log("receiver registered")
	return &ReceiverRegistration[R]{receiver: receiver, core: c, key: key}, nil
}

// Key returns the packet key assigned to this registration.
func (r *ReceiverRegistration[R]) Key() uint64 { return r.key }

// Receiver returns the registered receiver.
func (r *ReceiverRegistration[R]) Receiver() R { return r.receiver }

// Queue enqueues a packet for this registration's key, to be dispatched
// to the receiver on the executor goroutine. Safe from any goroutine.
func (r *ReceiverRegistration[R]) Queue(signals Signals) error {
	if r.closed {
		return ErrReceiverClosed
	}
	c := r.core
	if c.done.Load() {
		return ErrExecutorDone
	}
	c.queuePacket(Packet{Key: r.key, Signals: signals})
	return nil
}

// Close deregisters the receiver. Packets already queued for the key are
// dropped at dispatch. Close is idempotent.
//
// Close must not run concurrently with Queue on the same registration;
// the owning waitable is expected to sequence its own teardown.
func (r *ReceiverRegistration[R]) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.core.registry.deregister(r.key)
	r.core.log(logiface.LevelTrace).Uint64("key", r.key).Log("receiver deregistered")
}
