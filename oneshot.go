package asyncexec

import "sync"

// Oneshot is a future completed exactly once, from any goroutine. It is
// the bridge for plain callback- or channel-based code to hand a single
// value to a future without touching the port directly.
type Oneshot[T any] struct {
	mu       sync.Mutex
	value    T
	resolved bool
	waker    Waker
}

func NewOneshot[T any]() *Oneshot[T] {
	return &Oneshot[T]{}
}

// Resolve completes the future with v and wakes any pending poller. Only
// the first call succeeds; the rest return ErrAlreadyResolved.
func (o *Oneshot[T]) Resolve(v T) error {
	o.mu.Lock()
	if o.resolved {
		o.mu.Unlock()
		return ErrAlreadyResolved
	}
	o.value = v
	o.resolved = true
	w := o.waker
	o.waker = Waker{}
	o.mu.Unlock()
	// Waking runs scheduler code; never under the lock.
	w.Wake()
	return nil
}

// Poll implements Future. Once resolved it stays Ready with the same
// value.
func (o *Oneshot[T]) Poll(cx *Context) Poll[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.resolved {
		return Ready(o.value)
	}
	o.waker = cx.Waker()
	return Pending[T]()
}
