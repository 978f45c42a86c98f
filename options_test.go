// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncexec

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
)

// logCaptureEvent is a minimal logiface.Event implementation for
// asserting on the structured logging paths.
type logCaptureEvent struct {
	logiface.UnimplementedEvent
	level logiface.Level
}

func (e *logCaptureEvent) Level() logiface.Level        { return e.level }
func (e *logCaptureEvent) AddField(key string, val any) {}

type logCaptureFactory struct{}

func (f *logCaptureFactory) NewEvent(level logiface.Level) *logCaptureEvent {
	return &logCaptureEvent{level: level}
}

type logCaptureWriter struct {
	onWrite func(*logCaptureEvent) error
}

func (w *logCaptureWriter) Write(event *logCaptureEvent) error {
	if w.onWrite != nil {
		return w.onWrite(event)
	}
	return nil
}

func TestDefaultOptions(t *testing.T) {
	ex, err := New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer ex.Close()

	// A private collector is installed by default.
	stats := ex.Metrics()
	if stats.Polls != 0 || stats.TasksSpawned != 0 {
		t.Errorf("fresh executor should report zero activity, got %+v", stats)
	}

	// The built-in port drives a trivial run end to end.
	v := RunSinglethreaded(ex, FutureFunc[int](func(*Context) Poll[int] {
		return Ready(7)
	}))
	if v != 7 {
		t.Errorf("RunSinglethreaded = %d, want 7", v)
	}
}

func TestWithLogger(t *testing.T) {
	var events atomic.Int32
	writer := &logCaptureWriter{
		onWrite: func(*logCaptureEvent) error {
			events.Add(1)
			return nil
		},
	}
	typedLogger := logiface.New[*logCaptureEvent](
		logiface.WithEventFactory[*logCaptureEvent](&logCaptureFactory{}),
		logiface.WithWriter[*logCaptureEvent](writer),
		logiface.WithLevel[*logCaptureEvent](logiface.LevelTrace),
	)

	ex, err := New(WithLogger(typedLogger.Logger()))
	if err != nil {
		t.Fatalf("New() with logger failed: %v", err)
	}
	ex.Close()

	// At minimum the create and close lifecycle events must have hit the
	// writer.
	if n := events.Load(); n < 2 {
		t.Errorf("expected at least 2 logged events, got %d", n)
	}
}

func TestWithLoggerNil(t *testing.T) {
	// A nil logger is the documented way to disable logging.
	ex, err := New(WithLogger(nil))
	if err != nil {
		t.Fatalf("New() with nil logger failed: %v", err)
	}
	ex.Close()
}

func TestWithCollector(t *testing.T) {
	c := NewCollector()

	ex, err := New(WithCollector(c))
	if err != nil {
		t.Fatalf("New() with collector failed: %v", err)
	}
	defer ex.Close()

	RunSinglethreaded(ex, FutureFunc[struct{}](func(*Context) Poll[struct{}] {
		return Ready(struct{}{})
	}))

	if c.Stats().Polls == 0 {
		t.Error("supplied collector should have observed the run")
	}
	if got, want := ex.Metrics().Polls, c.Stats().Polls; got != want {
		t.Errorf("Metrics() should read the supplied collector: %d != %d", got, want)
	}
}

func TestWithCollectorNil(t *testing.T) {
	if _, err := New(WithCollector(nil)); err == nil {
		t.Error("New() with nil collector should fail")
	}
}

// countingPort wraps a Port and counts traffic through it.
type countingPort struct {
	inner  Port
	queued atomic.Uint64
	waits  atomic.Uint64
	waited atomic.Uint64
}

func (p *countingPort) Queue(pkt Packet) error {
	p.queued.Add(1)
	return p.inner.Queue(pkt)
}

func (p *countingPort) Wait(timeout time.Duration) (Packet, error) {
	p.waits.Add(1)
	pkt, err := p.inner.Wait(timeout)
	if err == nil {
		p.waited.Add(1)
	}
	return pkt, err
}

func TestWithPort(t *testing.T) {
	port := &countingPort{inner: newQueuePort()}

	ex, err := New(WithPort(port))
	if err != nil {
		t.Fatalf("New() with port failed: %v", err)
	}
	defer ex.Close()

	done := make(chan struct{})
	fut := FutureFunc[int](func(cx *Context) Poll[int] {
		select {
		case <-done:
			return Ready(1)
		default:
		}
		w := cx.Waker()
		go func() {
			close(done)
			w.Wake()
		}()
		return Pending[int]()
	})

	if v := RunSinglethreaded(ex, fut); v != 1 {
		t.Fatalf("RunSinglethreaded = %d, want 1", v)
	}

	// The wake must have traveled through the supplied port.
	if port.queued.Load() == 0 {
		t.Error("supplied port saw no queued packets")
	}
	if port.waited.Load() == 0 {
		t.Error("supplied port saw no successful waits")
	}
}

func TestWithPortNil(t *testing.T) {
	if _, err := New(WithPort(nil)); err == nil {
		t.Error("New() with nil port should fail")
	}
}

// faultyPort fails on demand so the non-recoverable paths can be
// exercised.
type faultyPort struct {
	inner    Port
	queueErr error
	waitErr  error
}

func (p *faultyPort) Queue(pkt Packet) error {
	if p.queueErr != nil {
		return p.queueErr
	}
	return p.inner.Queue(pkt)
}

func (p *faultyPort) Wait(timeout time.Duration) (Packet, error) {
	if p.waitErr != nil {
		return Packet{}, p.waitErr
	}
	return p.inner.Wait(timeout)
}

// TestPortFailurePanics verifies port failures surface as *PortError
// panics rather than silent stalls.
func TestPortFailurePanics(t *testing.T) {
	t.Run("queue", func(t *testing.T) {
		cause := errors.New("queue rejected")
		port := &faultyPort{inner: newQueuePort(), queueErr: cause}

		ex, err := New(WithPort(port))
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}

		defer func() {
			r := recover()
			pe, ok := r.(*PortError)
			if !ok {
				t.Fatalf("recover() = %v, want *PortError", r)
			}
			if pe.Op != "queue" {
				t.Errorf("Op = %q, want %q", pe.Op, "queue")
			}
			if !errors.Is(pe, cause) {
				t.Error("PortError should unwrap to the port's error")
			}
		}()
		SpawnLocal(ex.Handle(), FutureFunc[int](func(*Context) Poll[int] {
			return Ready(0)
		}))
		t.Fatal("spawn through a failing port should panic")
	})

	t.Run("wait", func(t *testing.T) {
		cause := errors.New("wait broken")
		port := &faultyPort{inner: newQueuePort(), waitErr: cause}

		ex, err := New(WithPort(port))
		if err != nil {
			t.Fatalf("New() failed: %v", err)
		}

		defer func() {
			r := recover()
			pe, ok := r.(*PortError)
			if !ok {
				t.Fatalf("recover() = %v, want *PortError", r)
			}
			if pe.Op != "wait" {
				t.Errorf("Op = %q, want %q", pe.Op, "wait")
			}
		}()
		RunSinglethreaded(ex, FutureFunc[int](func(*Context) Poll[int] {
			return Pending[int]()
		}))
		t.Fatal("run over a failing port should panic")
	})
}

func TestNilOptionsSkipped(t *testing.T) {
	ex, err := New(nil, WithLogger(nil), nil)
	if err != nil {
		t.Fatalf("New() with nil options failed: %v", err)
	}
	ex.Close()
}

// TestOptionOrder verifies options can be specified in any order.
func TestOptionOrder(t *testing.T) {
	c := NewCollector()
	port := &countingPort{inner: newQueuePort()}

	ex1, err := New(WithCollector(c), WithPort(port))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	ex1.Close()

	ex2, err := New(WithPort(port), WithCollector(c))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	ex2.Close()
}
