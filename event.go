package asyncexec

// Event is a manually signaled waitable that travels the receiver-registry
// path, the same key dispatch an external completion source uses. Signal
// is safe from any goroutine; everything else is executor-goroutine only.
//
// An Event must be closed before its executor, or teardown will panic on
// the leaked registration.
type Event struct {
	reg *ReceiverRegistration[*Event]

	// notifier bounds the event to one in-flight packet, so repeated
	// signals cost one dispatch.
	notifier Notifier

	// signaled and waker are confined to the executor goroutine.
	signaled bool
	waker    Waker
}

// NewEvent registers a new unsignaled event on h's executor.
func NewEvent(h *Handle) (*Event, error) {
	e := &Event{}
	reg, err := RegisterReceiver(h, e)
	if err != nil {
		return nil, err
	}
	e.reg = reg
	return e, nil
}

// Key reports the event's registry key, for completion sources that queue
// packets on the port directly.
func (e *Event) Key() uint64 { return e.reg.Key() }

// Signal marks the event signaled. At most one packet is delivered no
// matter how many times Signal is called. Returns ErrReceiverClosed after
// Close, or ErrExecutorDone once teardown has begun.
func (e *Event) Signal() error {
	if !e.notifier.PrepareNotify() {
		return nil // already signaled
	}
	if err := e.reg.Queue(SignalUser); err != nil {
		e.notifier.Reset()
		return err
	}
	return nil
}

// ReceivePacket implements PacketReceiver. Runs on the executor goroutine
// during packet dispatch.
func (e *Event) ReceivePacket(Packet) {
	e.signaled = true
	w := e.waker
	e.waker = Waker{}
	w.Wake()
}

// Poll implements Future. Ready once the signal packet has been
// dispatched; stays Ready thereafter.
func (e *Event) Poll(cx *Context) Poll[struct{}] {
	if e.signaled {
		return Ready(struct{}{})
	}
	e.waker = cx.Waker()
	return Pending[struct{}]()
}

// Close deregisters the event. A signaled-but-undelivered packet is then
// dropped by dispatch, which is harmless. Idempotent.
func (e *Event) Close() { e.reg.Close() }
