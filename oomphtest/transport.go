// Package oomphtest provides an in-process, multi-rank fake
// [github.com/oomph-go/oomph.Transport], so this module's own tests can
// exercise the core progress/request/ownership machinery without a real
// MPI/UCX/socket binding present. It is test-only scaffolding, not a
// production transport (spec.md §1 explicitly leaves transports
// out of scope).
package oomphtest

import (
	"sync"
	"sync/atomic"

	"github.com/oomph-go/oomph"
)

// sendEntry is an unmatched post_send waiting for a matching recv.
type sendEntry struct {
	op   oomph.OpID
	src  oomph.Rank
	tag  oomph.Tag
	data []byte
}

// recvEntry is an unmatched post_recv waiting for a matching send.
type recvEntry struct {
	op   oomph.OpID
	src  oomph.Rank // oomph.AnySource for a wildcard receive
	tag  oomph.Tag
	data []byte
}

// Network is a shared, in-process rendezvous point for a fixed-size group
// of fake ranks. Every rank's Transport is obtained via [Network.Transport].
//
// Matching is a single global mutex guarding per-destination FIFO queues
// scanned linearly: a post_recv scans the destination's pending sends (and
// vice versa) for the first entry whose (src, tag) satisfies the request,
// which preserves per-(peer, tag) delivery order since matched entries are
// spliced out without reordering the remainder.
type Network struct {
	size oomph.Rank

	mu          sync.Mutex
	pendingSend map[oomph.Rank][]*sendEntry
	pendingRecv map[oomph.Rank][]*recvEntry
	completions map[oomph.Rank][]oomph.Completion

	opCounter  atomic.Uint64
	winCounter atomic.Uint64

	failSend map[oomph.Rank]error // rank -> error to return from the next PostSend it issues, for fault injection
}

// NewNetwork constructs a Network for size ranks (0..size-1).
func NewNetwork(size int) *Network {
	n := &Network{
		size:        oomph.Rank(size),
		pendingSend: make(map[oomph.Rank][]*sendEntry, size),
		pendingRecv: make(map[oomph.Rank][]*recvEntry, size),
		completions: make(map[oomph.Rank][]oomph.Completion, size),
		failSend:    make(map[oomph.Rank]error),
	}
	return n
}

// Transport returns the fake Transport for rank.
func (n *Network) Transport(rank int) oomph.Transport {
	return &fakeTransport{net: n, rank: oomph.Rank(rank)}
}

// FailNextSend makes rank's next PostSend call return err instead of
// posting, for exercising the immediate-post-failure path of Send/SendMulti.
func (n *Network) FailNextSend(rank int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failSend[oomph.Rank(rank)] = err
}

func (n *Network) nextOp() oomph.OpID {
	return oomph.OpID(n.opCounter.Add(1))
}

// postSend is called by src's Transport.PostSend.
func (n *Network) postSend(src oomph.Rank, data []byte, dst oomph.Rank, tag oomph.Tag) (oomph.OpID, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.failSend[src]; err != nil {
		delete(n.failSend, src)
		return 0, err
	}

	op := n.nextOp()

	queue := n.pendingRecv[dst]
	for i, r := range queue {
		if r.tag != tag || (r.src != oomph.AnySource && r.src != src) {
			continue
		}
		n.pendingRecv[dst] = append(append([]*recvEntry{}, queue[:i]...), queue[i+1:]...)
		copy(r.data, data)
		n.complete(src, oomph.Completion{Op: op, Src: src, Size: len(data)})
		n.complete(dst, oomph.Completion{Op: r.op, Src: src, Size: len(data)})
		return op, nil
	}

	n.pendingSend[dst] = append(n.pendingSend[dst], &sendEntry{op: op, src: src, tag: tag, data: data})
	return op, nil
}

// postRecv is called by dst's Transport.PostRecv.
func (n *Network) postRecv(dst oomph.Rank, data []byte, src oomph.Rank, tag oomph.Tag) (oomph.OpID, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	op := n.nextOp()

	queue := n.pendingSend[dst]
	for i, s := range queue {
		if s.tag != tag || (src != oomph.AnySource && s.src != src) {
			continue
		}
		n.pendingSend[dst] = append(append([]*sendEntry{}, queue[:i]...), queue[i+1:]...)
		copy(data, s.data)
		n.complete(s.src, oomph.Completion{Op: s.op, Src: s.src, Size: len(s.data)})
		n.complete(dst, oomph.Completion{Op: op, Src: s.src, Size: len(s.data)})
		return op, nil
	}

	n.pendingRecv[dst] = append(n.pendingRecv[dst], &recvEntry{op: op, src: src, tag: tag, data: data})
	return op, nil
}

// cancelRecv withdraws a still-unmatched recv posted by rank, identified by
// op. Returns true if it was found (and thus not yet matched).
func (n *Network) cancelRecv(rank oomph.Rank, op oomph.OpID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	queue := n.pendingRecv[rank]
	for i, r := range queue {
		if r.op == op {
			n.pendingRecv[rank] = append(append([]*recvEntry{}, queue[:i]...), queue[i+1:]...)
			return true
		}
	}
	return false
}

// complete appends a completion to rank's inbox, for that rank's next Poll
// call to drain. Caller must hold n.mu.
func (n *Network) complete(rank oomph.Rank, c oomph.Completion) {
	n.completions[rank] = append(n.completions[rank], c)
}

// poll drains up to len(out) completions queued for rank.
func (n *Network) poll(rank oomph.Rank, out []oomph.Completion) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	queue := n.completions[rank]
	k := copy(out, queue)
	n.completions[rank] = queue[k:]
	return k
}

func (n *Network) windowAttach() oomph.WindowID {
	return oomph.WindowID(n.winCounter.Add(1))
}

// fakeTransport is one rank's view of a Network.
type fakeTransport struct {
	net  *Network
	rank oomph.Rank
}

func (t *fakeTransport) Rank() oomph.Rank { return t.rank }
func (t *fakeTransport) Size() oomph.Rank { return t.net.size }

func (t *fakeTransport) WindowAttach(data []byte) (oomph.WindowID, error) {
	return t.net.windowAttach(), nil
}

func (t *fakeTransport) WindowDetach(win oomph.WindowID, data []byte) error {
	return nil
}

func (t *fakeTransport) WindowLock(win oomph.WindowID, r oomph.Rank) error {
	return nil
}

func (t *fakeTransport) WindowUnlock(win oomph.WindowID, r oomph.Rank) error {
	return nil
}

func (t *fakeTransport) PostSend(data []byte, dst oomph.Rank, tag oomph.Tag) (oomph.OpID, error) {
	return t.net.postSend(t.rank, data, dst, tag)
}

func (t *fakeTransport) PostRecv(data []byte, src oomph.Rank, tag oomph.Tag) (oomph.OpID, error) {
	return t.net.postRecv(t.rank, data, src, tag)
}

func (t *fakeTransport) CancelRecv(op oomph.OpID) (bool, error) {
	return t.net.cancelRecv(t.rank, op), nil
}

func (t *fakeTransport) Poll(out []oomph.Completion) (int, error) {
	return t.net.poll(t.rank, out), nil
}
