package oomph

// Rank identifies a peer within a transport's process group.
type Rank int

// Tag is an integer channel identifier used for matching sends to receives
// (spec.md glossary). Tags partition ordering: per-(peer, tag) FIFO is
// guaranteed; across tags, none is.
type Tag int

// AnySource is the wildcard rank sentinel a Recv may pass as src to match a
// send from any peer (spec.md §4.5).
const AnySource Rank = -1

// OpID identifies one posted, not-yet-completed transport operation, as
// returned by PostSend/PostRecv and used to cancel a receive.
type OpID uint64

// Completion reports one finished transport operation, as drained by
// Poll.
type Completion struct {
	Op   OpID
	Err  error // non-nil if the operation failed
	Src  Rank  // resolved source rank (meaningful for receives posted with AnySource)
	Size int   // bytes actually transferred (receives may complete short)
}

// Transport is the fixed, narrow interface the oomph core consumes for all
// rank-addressed communication and one-sided memory exposure. It is
// DELIBERATELY OUT OF SCOPE for this module's implementation (spec.md §1):
// posting point-to-point operations, attaching/detaching windows, and
// locking/unlocking remote ranks are primitives a real binding (MPI, UCX, a
// raw socket ring) supplies. This module ships only an in-process fake
// (package oomphtest) so its own tests can exercise the core without a real
// transport present.
type Transport interface {
	// Rank returns this process's rank within the transport's group.
	Rank() Rank
	// Size returns the number of ranks in the transport's group.
	Size() Rank

	// WindowAttach registers data for one-sided access, returning the
	// window id peers address it by.
	WindowAttach(data []byte) (WindowID, error)
	// WindowDetach unregisters a previously attached byte range.
	WindowDetach(win WindowID, data []byte) error
	// WindowLock acquires a shared passive lock on r's exposure of win.
	WindowLock(win WindowID, r Rank) error
	// WindowUnlock releases a lock acquired via WindowLock.
	WindowUnlock(win WindowID, r Rank) error

	// PostSend submits a non-blocking send of data to dst on tag, returning
	// an id Poll will later report a Completion for.
	PostSend(data []byte, dst Rank, tag Tag) (OpID, error)
	// PostRecv submits a non-blocking receive of data from src (or
	// AnySource) on tag.
	PostRecv(data []byte, src Rank, tag Tag) (OpID, error)
	// CancelRecv attempts to withdraw a posted, not-yet-matched receive.
	// Returns true if the transport confirms it was not yet matched, false
	// if it was (or already is) matched — in which case the operation will
	// still surface a normal Completion via Poll (spec.md §4.4).
	CancelRecv(op OpID) (bool, error)

	// Poll drains completions that have occurred since the last call,
	// writing up to len(out) of them and returning the count written. A
	// zero-length out (or no completions pending) is a valid, cheap no-op
	// poll.
	Poll(out []Completion) (int, error)
}
