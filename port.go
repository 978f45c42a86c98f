// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncexec

import (
	"sync"
	"time"
)

// Signals is a small bitmask describing why a packet was delivered.
type Signals uint32

const (
	// SignalWakeup marks scheduler-originated packets (task wakeups).
	SignalWakeup Signals = 1 << iota
	// SignalUser marks packets queued through a receiver registration.
	SignalUser
)

// Packet is an opaque completion message delivered through a Port. The key
// identifies the packet's target: the executor's root task, the ready-task
// queue, or a registered packet receiver.
type Packet struct {
	Key     uint64
	Signals Signals
}

// Reserved packet keys, allocated from the top of the key space so they
// can never collide with receiver keys, which count up from one.
const (
	keyMainTask  = ^uint64(0)
	keyTaskReady = ^uint64(0) - 1
)

// Port is the wait primitive an executor blocks on. It carries every
// resumption in the system: task wakeups, ready-queue notifications, and
// receiver completions all arrive as packets.
//
// Queue must be safe from any goroutine. Wait is only called from the
// executor's goroutine: a negative timeout blocks until a packet arrives,
// zero polls without blocking, and a positive timeout blocks for at most
// that duration. Wait returns ErrTimedOut when the timeout elapses with no
// packet; the executor treats any other Wait error as fatal.
//
// The built-in in-process implementation never fails. Alternative
// implementations (instrumented ports for tests, bridges to OS completion
// facilities) are installed with WithPort.
type Port interface {
	Queue(pkt Packet) error
	Wait(timeout time.Duration) (Packet, error)
}

// queuePort is the in-process Port: a mutex-guarded FIFO plus a one-slot
// doorbell channel that parks the waiter without spinning.
//
// Delivery order is strict FIFO with respect to Queue calls; the executor's
// ordering guarantees for simultaneously woken tasks depend on this.
type queuePort struct {
	mu      sync.Mutex
	packets *chunkQueue[Packet]
	bell    chan struct{}
}

func newQueuePort() *queuePort {
	return &queuePort{
		packets: newChunkQueue[Packet](),
		bell:    make(chan struct{}, 1),
	}
}

// Queue appends a packet and rings the doorbell. Never fails.
func (p *queuePort) Queue(pkt Packet) error {
	p.mu.Lock()
	p.packets.push(pkt)
	p.mu.Unlock()

	// Non-blocking ring. A pending token already guarantees the waiter
	// will recheck the queue.
	select {
	case p.bell <- struct{}{}:
	default:
	}
	return nil
}

// Wait dequeues the oldest packet, blocking per the timeout contract.
func (p *queuePort) Wait(timeout time.Duration) (Packet, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		p.mu.Lock()
		pkt, ok := p.packets.pop()
		p.mu.Unlock()
		if ok {
			return pkt, nil
		}

		if timeout == 0 {
			return Packet{}, ErrTimedOut
		}

		if timeout < 0 {
			<-p.bell
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Packet{}, ErrTimedOut
		}
		t := time.NewTimer(remaining)
		select {
		case <-p.bell:
			t.Stop()
		case <-t.C:
			// The doorbell may hold a stale token from a packet that was
			// consumed by an earlier iteration; the final pop below is
			// what decides.
			p.mu.Lock()
			pkt, ok := p.packets.pop()
			p.mu.Unlock()
			if ok {
				return pkt, nil
			}
			return Packet{}, ErrTimedOut
		}
	}
}
