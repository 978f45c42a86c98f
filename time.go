package asyncexec

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// Time is an instant on an executor's monotonic timeline, expressed in
// nanoseconds. For real-time executors the origin is the executor's
// construction; for fake-time executors the origin is zero and the clock
// advances only under explicit test control.
//
// Time is a plain integer so that deadline comparisons compile to integer
// compares on the scheduling hot path.
type Time int64

const (
	// TimeInfinite is the latest representable instant. A wait with this
	// deadline blocks until a packet arrives.
	TimeInfinite Time = math.MaxInt64

	// TimeInfinitePast is the earliest representable instant.
	TimeInfinitePast Time = math.MinInt64
)

// Add returns t offset by d, saturating at TimeInfinite and
// TimeInfinitePast instead of wrapping.
func (t Time) Add(d time.Duration) Time {
	return Time(satAdd(int64(t), int64(d)))
}

// Sub returns the duration t-u, saturating at the time.Duration extremes
// instead of wrapping.
func (t Time) Sub(u Time) time.Duration {
	return time.Duration(satSub(int64(t), int64(u)))
}

// Before reports whether t is strictly earlier than u.
func (t Time) Before(u Time) bool { return t < u }

// After reports whether t is strictly later than u.
func (t Time) After(u Time) bool { return t > u }

// String returns a human-readable representation of the instant.
func (t Time) String() string {
	switch t {
	case TimeInfinite:
		return "Time(infinite)"
	case TimeInfinitePast:
		return "Time(-infinite)"
	default:
		return fmt.Sprintf("Time(%dns)", int64(t))
	}
}

// satAdd returns a+b with saturation at the int64 extremes.
func satAdd(a, b int64) int64 {
	s := a + b
	if b > 0 && s < a {
		return math.MaxInt64
	}
	if b < 0 && s > a {
		return math.MinInt64
	}
	return s
}

// satSub returns a-b with saturation at the int64 extremes.
func satSub(a, b int64) int64 {
	s := a - b
	if b < 0 && s < a {
		return math.MaxInt64
	}
	if b > 0 && s > a {
		return math.MinInt64
	}
	return s
}

// clock is the executor's time source.
//
// Real clocks anchor to a monotonic reference captured at construction;
// time.Since(anchor) uses the runtime's monotonic reading, so the timeline
// is immune to wall-clock adjustment. Fake clocks store an explicit offset
// that only moves when a test harness says so.
//
// Thread Safety: now and setFake are safe from any goroutine.
type clock struct {
	anchor time.Time
	offset atomic.Int64
	fake   bool
}

func newClock(fake bool) *clock {
	if fake {
		return &clock{fake: true}
	}
	return &clock{anchor: time.Now()}
}

// now returns the current instant on the executor's timeline.
func (c *clock) now() Time {
	if c.fake {
		return Time(c.offset.Load())
	}
	return Time(time.Since(c.anchor))
}

// setFake repositions a fake clock. Real clocks cannot be repositioned.
func (c *clock) setFake(t Time) {
	if !c.fake {
		panic("asyncexec: cannot set fake time on a real-time executor")
	}
	c.offset.Store(int64(t))
}
