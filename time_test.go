package asyncexec

import (
	"math"
	"testing"
	"time"
)

// TestTimeAdd_Saturation verifies that deadline arithmetic saturates at the
// sentinels instead of wrapping.
func TestTimeAdd_Saturation(t *testing.T) {
	tests := []struct {
		name string
		t    Time
		d    time.Duration
		want Time
	}{
		{name: "zero plus zero", t: 0, d: 0, want: 0},
		{name: "simple add", t: 1000, d: 500, want: 1500},
		{name: "negative offset", t: 1000, d: -1500, want: -500},
		{name: "infinite plus positive", t: TimeInfinite, d: 1, want: TimeInfinite},
		{name: "near infinite overflow", t: TimeInfinite - 10, d: 20, want: TimeInfinite},
		{name: "infinite past minus", t: TimeInfinitePast, d: -1, want: TimeInfinitePast},
		{name: "near infinite past underflow", t: TimeInfinitePast + 10, d: -20, want: TimeInfinitePast},
		{name: "infinite plus negative stays finite", t: TimeInfinite, d: -1, want: TimeInfinite - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.t.Add(tt.d); got != tt.want {
				t.Errorf("Add(%v, %v) = %v, want %v", tt.t, tt.d, got, tt.want)
			}
		})
	}
}

// TestTimeSub_Saturation verifies duration computation saturates at the
// time.Duration extremes.
func TestTimeSub_Saturation(t *testing.T) {
	tests := []struct {
		name string
		t    Time
		u    Time
		want time.Duration
	}{
		{name: "equal", t: 5, u: 5, want: 0},
		{name: "later minus earlier", t: 1500, u: 1000, want: 500},
		{name: "earlier minus later", t: 1000, u: 1500, want: -500},
		{name: "infinite minus past saturates", t: TimeInfinite, u: TimeInfinitePast, want: math.MaxInt64},
		{name: "past minus infinite saturates", t: TimeInfinitePast, u: TimeInfinite, want: math.MinInt64},
		{name: "infinite minus zero", t: TimeInfinite, u: 0, want: math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.t.Sub(tt.u); got != tt.want {
				t.Errorf("Sub(%v, %v) = %v, want %v", tt.t, tt.u, got, tt.want)
			}
		})
	}
}

// TestTimeOrdering tests Before/After against the sentinels.
func TestTimeOrdering(t *testing.T) {
	if !TimeInfinitePast.Before(TimeInfinite) {
		t.Error("TimeInfinitePast.Before(TimeInfinite) = false, want true")
	}
	if !TimeInfinite.After(TimeInfinitePast) {
		t.Error("TimeInfinite.After(TimeInfinitePast) = false, want true")
	}
	if Time(5).Before(Time(5)) {
		t.Error("Before() on equal instants = true, want false")
	}
	if Time(5).After(Time(5)) {
		t.Error("After() on equal instants = true, want false")
	}
}

// TestTimeString tests the human-readable rendering.
func TestTimeString(t *testing.T) {
	tests := []struct {
		t    Time
		want string
	}{
		{t: TimeInfinite, want: "Time(infinite)"},
		{t: TimeInfinitePast, want: "Time(-infinite)"},
		{t: 1500, want: "Time(1500ns)"},
	}

	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

// TestClock_Fake verifies the fake clock starts at zero and only moves on
// setFake, in either direction.
func TestClock_Fake(t *testing.T) {
	c := newClock(true)
	if got := c.now(); got != 0 {
		t.Fatalf("fake clock initial now() = %v, want 0", got)
	}

	c.setFake(1000)
	if got := c.now(); got != 1000 {
		t.Errorf("now() after setFake(1000) = %v, want 1000", got)
	}

	// Fake time may move backwards; only the executor's step functions
	// impose monotonicity.
	c.setFake(-50)
	if got := c.now(); got != -50 {
		t.Errorf("now() after setFake(-50) = %v, want -50", got)
	}
}

// TestClock_Real verifies the real clock is monotonic non-decreasing and
// rejects repositioning.
func TestClock_Real(t *testing.T) {
	c := newClock(false)
	a := c.now()
	time.Sleep(time.Millisecond)
	b := c.now()
	if b < a {
		t.Errorf("real clock went backwards: %v then %v", a, b)
	}

	defer func() {
		if recover() == nil {
			t.Error("setFake on a real clock did not panic")
		}
	}()
	c.setFake(0)
}
