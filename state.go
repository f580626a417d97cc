package oomph

import (
	"sync/atomic"
)

// RequestState represents the current state of a [Request] or
// [RecvRequest].
//
// State Machine:
//
//	Pending (0) → Completed (1)  [Progress() matches a transport completion]
//	Pending (0) → Cancelled (2)  [RecvRequest.Cancel() succeeds]
//	Pending (0) → Failed (3)     [Progress() matches a failed completion]
//
// Completed, Cancelled and Failed are all terminal: a request resolves
// exactly once (spec.md §3, §4.4 "Requests are single-shot").
//
// State Transition Rules:
//   - Use TryResolve() (CAS) to claim a terminal state; the caller that
//     wins the CAS is the one that runs the completion callback and
//     decrements the scheduled counter. A losing caller observes the
//     request already resolved and does nothing further.
type RequestState uint64

const (
	// Pending indicates the request has been submitted but has not yet
	// resolved.
	Pending RequestState = 0
	// Completed indicates the operation finished successfully.
	Completed RequestState = 1
	// Cancelled indicates a RecvRequest was cancelled before it matched
	// (receives only, spec.md §4.4).
	Cancelled RequestState = 2
	// Failed indicates the transport reported a failure for this operation.
	Failed RequestState = 3
)

// String returns a human-readable representation of the state.
func (s RequestState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Completed:
		return "Completed"
	case Cancelled:
		return "Cancelled"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// requestState is a lock-free terminal-state latch for a single Request.
//
// It uses a pure atomic CAS rather than a mutex: resolution races only
// between Progress() (which matches a transport completion) and Cancel()
// (which attempts to withdraw a still-unmatched receive), and both sides
// only ever need to know "did I win the race to resolve this request".
type requestState struct {
	v atomic.Uint64
}

// newRequestState creates a new state machine in the Pending state.
func newRequestState() *requestState {
	s := &requestState{}
	s.v.Store(uint64(Pending))
	return s
}

// Load returns the current state atomically.
func (s *requestState) Load() RequestState {
	return RequestState(s.v.Load())
}

// TryResolve attempts to atomically transition from Pending to the given
// terminal state. Returns true if this call is the one that resolved the
// request.
func (s *requestState) TryResolve(to RequestState) bool {
	return s.v.CompareAndSwap(uint64(Pending), uint64(to))
}

// IsTerminal returns true if the request has resolved, in any terminal
// state.
func (s *requestState) IsTerminal() bool {
	return s.Load() != Pending
}
