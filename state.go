package asyncexec

import "sync/atomic"

// ExecutorState represents the lifecycle state of an executor.
//
// State Machine:
//
//	StateIdle (0) → StateRunning (1)    [run entry via CAS]
//	StateRunning (1) → StateIdle (0)    [run exit]
//	StateIdle (0) → StateClosed (2)     [Close]
//	StateClosed (2) → (terminal)
//
// Run entries use TryTransition (CAS) so that a reentrant or concurrent
// run observes the failed transition and panics instead of corrupting the
// single-threaded scheduling invariants. Close is only legal from
// StateIdle: an executor cannot be torn down out from under a run.
type ExecutorState uint64

const (
	// StateIdle indicates the executor is constructed and between runs.
	StateIdle ExecutorState = 0
	// StateRunning indicates a run function is driving the executor.
	StateRunning ExecutorState = 1
	// StateClosed indicates the executor has been torn down.
	StateClosed ExecutorState = 2
)

// String returns a human-readable representation of the state.
func (s ExecutorState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Padding geometry for execState. 128 covers both the 64-byte lines of
// x86-64 and the 128-byte lines of Apple Silicon and other ARM64 parts.
// Both values are pinned by tests.
const (
	sizeOfCacheLine    = 128
	sizeOfAtomicUint64 = 8
)

// execState is a lock-free lifecycle state machine with cache-line
// padding to keep the hot word off shared lines.
type execState struct { // betteralign:ignore
	_ [sizeOfCacheLine]byte                      //nolint:unused
	v atomic.Uint64                              // state value
	_ [sizeOfCacheLine - sizeOfAtomicUint64]byte //nolint:unused
}

func newExecState() *execState {
	s := &execState{}
	s.v.Store(uint64(StateIdle))
	return s
}

// Load returns the current state atomically.
func (s *execState) Load() ExecutorState {
	return ExecutorState(s.v.Load())
}

// Store atomically stores a new state. Reserved for irreversible
// transitions (StateClosed) and run exit; run entry must use
// TryTransition to preserve the CAS exclusion.
func (s *execState) Store(state ExecutorState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to
// another. Returns true if the transition was taken.
func (s *execState) TryTransition(from, to ExecutorState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// IsTerminal returns true once the executor has been closed.
func (s *execState) IsTerminal() bool {
	return s.Load() == StateClosed
}
