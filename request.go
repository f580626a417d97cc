package oomph

import "sync/atomic"

// ownership carries a submitted MessageBuffer's ownership mode through to
// the completion path, implementing the sum type from spec.md §9's design
// note: "{Borrowed(&Buf), Owned(Buf)}". invokeCallback reconstructs the
// original shape (reference vs by-value) when invoking the caller's
// callback.
type ownership struct {
	// invokeCallback, if non-nil, fires the user's callback with the
	// buffer in the right shape, after the op (send/recv/send_multi)
	// resolves. Captured as a closure over the concrete buffer type and
	// callback, since Request itself is not generic over T.
	invokeCallback func(err error)
}

// Request is the user-facing future-like handle for an in-flight send (or
// a completed send_multi fan-out), per spec.md §4.4.
//
// Requests are single-shot: a Request resolves exactly once, and repeated
// calls to Wait/Test after it is ready are idempotent. A send cannot be
// cancelled — Cancel is exposed only on [RecvRequest].
type Request struct {
	id    uint64
	comm  *Communicator
	state *requestState
	err   atomic.Pointer[error]
	own   ownership

	// onResolve decrements the right scheduled counter; set by the
	// submitting call (send vs recv). The table entry is removed separately,
	// by resolveOp in the progress engine or by forget in Cancel.
	onResolve func()
}

// newRequest allocates a pending Request tracked by comm's request table.
func newRequest(comm *Communicator, own ownership, onResolve func()) *Request {
	id := comm.ctx.requests.nextID()
	return &Request{
		id:        id,
		comm:      comm,
		state:     newRequestState(),
		own:       own,
		onResolve: onResolve,
	}
}

// IsReady returns readiness without progressing the communicator (spec.md
// §4.4).
func (r *Request) IsReady() bool {
	return r.state.IsTerminal()
}

// Test progresses the communicator once and returns readiness.
func (r *Request) Test() bool {
	if r.IsReady() {
		return true
	}
	r.comm.Progress()
	return r.IsReady()
}

// Wait progresses the communicator until ready. It only blocks in the
// sense of spinning Progress(); callers needing OS-scheduler fairness must
// insert their own back-off (spec.md §5).
func (r *Request) Wait() error {
	for !r.IsReady() {
		r.comm.Progress()
	}
	return r.Err()
}

// Err returns the terminal error, if any, once the request is ready. It
// returns nil for a successful completion. For a request resolved by a
// successful Cancel it returns an error for which [IsCancelled] reports
// true, whichever goroutine called Cancel; Wait on such a request returns
// that same error.
func (r *Request) Err() error {
	if p := r.err.Load(); p != nil {
		return *p
	}
	return nil
}

// State returns the request's current terminal state (or Pending).
func (r *Request) State() RequestState {
	return r.state.Load()
}

// resolve is called by the progress engine (or Cancel) exactly once per
// request, on the winning CAS. It stores the terminal error (if any),
// releases the scheduled counter, and — unless fireCallback is false, which
// only a successful Cancel uses (spec.md §4.4: "the associated callback, if
// any, is NOT invoked") — fires the completion callback synchronously.
func (r *Request) resolve(to RequestState, err error, fireCallback bool) bool {
	if !r.state.TryResolve(to) {
		return false
	}
	if err != nil {
		r.err.Store(&err)
	}
	if r.onResolve != nil {
		r.onResolve()
	}
	if fireCallback && r.own.invokeCallback != nil {
		r.own.invokeCallback(err)
	}
	return true
}

// completeOp implements pendingOp for a plain send request: a Completion
// with a non-nil Err resolves Failed, otherwise Completed.
func (r *Request) completeOp(c Completion) {
	if c.Err != nil {
		r.resolve(Failed, c.Err, true)
		return
	}
	r.resolve(Completed, nil, true)
}

// RecvRequest is the Request returned by Communicator.Recv, additionally
// supporting cancellation (spec.md §4.4).
type RecvRequest struct {
	Request
	op       OpID
	opValid  bool
	peer     Rank
	tag      Tag
	cancelFn func(op OpID) (bool, error)
}

// Cancel attempts to cancel a pending receive. Returns true if the
// transport confirms the receive was not yet matched; in that case the
// request resolves Cancelled, the scheduled-recv counter is decremented,
// and the callback (if any) is NOT invoked. Returns false if the transport
// reports the receive already matched (or is already resolved); in that
// case the request eventually (or already did) complete normally as if
// Cancel had never been called (spec.md §4.4, §4.6).
func (r *RecvRequest) Cancel() bool {
	if r.IsReady() {
		return false
	}
	if !r.opValid || r.cancelFn == nil {
		return false
	}
	ok, err := r.cancelFn(r.op)
	if err != nil || !ok {
		return false
	}
	resolved := r.resolve(Cancelled, errCancelled, false)
	if resolved {
		// The transport withdrew the receive, so no Completion will ever
		// arrive for it; without this, the table entry would never be
		// removed (spec.md §5: "progress/cancel removes it").
		r.comm.ctx.requests.forget(r.op)
	}
	return resolved
}

// completeOp implements pendingOp for a receive: a Completion with a
// non-nil Err resolves Failed, otherwise Completed. If the receive was
// already cancelled by a racing Cancel call, TryResolve inside resolve
// simply loses the CAS and this is a no-op, matching "an unsuccessful
// cancel guarantees the request completes normally as if cancel had not
// been called" from the other direction: a completion arriving after a
// successful cancel is simply dropped.
func (r *RecvRequest) completeOp(c Completion) {
	if c.Err != nil {
		r.resolve(Failed, c.Err, true)
		return
	}
	r.resolve(Completed, nil, true)
}
