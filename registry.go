package oomph

import "sync"

// pendingOp is completed by the progress engine when a transport
// Completion for its OpID is drained. Implemented by *Request (sends,
// including each per-destination post of a send_multi) and *RecvRequest
// (receives).
type pendingOp interface {
	completeOp(c Completion)
}

// requestTable tracks in-flight operations so the progress engine can match
// a transport Completion (keyed by OpID) back to the Request that
// submitted it (spec.md §5: "Request table: each submission inserts a
// record; progress/cancel removes it; guarded by a mutex in multi-threaded
// mode").
//
// Unlike the teacher's registry (which tracks Promises via weak pointers so
// an abandoned, GC'd promise is reclaimed without an explicit resolution),
// every operation here is explicitly resolved exactly once by either the
// progress engine or Cancel — so entries are removed deterministically on
// resolution rather than scavenged. The teacher's monotonic-ID-plus-map
// shape is kept; the weak-pointer/ring-buffer scavenging machinery is not,
// since it solves a GC problem this table does not have.
type requestTable struct {
	mu      sync.Mutex
	byOp    map[OpID]pendingOp
	counter uint64
}

func newRequestTable() *requestTable {
	return &requestTable{byOp: make(map[OpID]pendingOp)}
}

// nextID allocates a monotonic request id, used for log correlation.
func (t *requestTable) nextID() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counter++
	return t.counter
}

// register indexes a posted operation by the OpID the transport assigned
// it, so a later Completion (or Cancel, for receives) can find it.
func (t *requestTable) register(op OpID, p pendingOp) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byOp[op] = p
}

// resolveOp removes and returns the operation registered for op, if any.
// Returns nil if op is unknown (already resolved, or never registered).
func (t *requestTable) resolveOp(op OpID) pendingOp {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.byOp[op]
	delete(t.byOp, op)
	return p
}

// forget removes op without returning it, used when Cancel withdraws a
// receive before any Completion for it can arrive.
func (t *requestTable) forget(op OpID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byOp, op)
}

// len reports the number of still-registered operations. Exercised directly
// by registry_test.go, and indirectly by any test asserting request-table
// cleanup at quiescence (e.g. after a successful Cancel).
func (t *requestTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byOp)
}
