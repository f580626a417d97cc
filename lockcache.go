package oomph

import "sync"

// LockCache guards acquisition of passive shared locks on a one-sided
// window against remote ranks (spec.md §4.2).
//
// lock(r): if r is not already held, acquires a shared lock on r via the
// Transport and remembers it; otherwise a no-op. Thread-safe via an
// internal mutex. Close unlocks every held rank, ignoring transport
// errors — raising from a teardown path would corrupt the resource-release
// chain (spec.md §7).
//
// Rationale (spec.md §4.2): repeated remote accesses to the same rank
// within a phase would otherwise pay per-access lock/unlock overhead; the
// cache amortizes that cost and guarantees balanced release.
type LockCache struct {
	win       WindowID
	transport Transport
	mu        sync.Mutex
	ranks     map[Rank]struct{}
}

// NewLockCache creates a lock cache for win, issuing lock/unlock calls
// through transport.
func NewLockCache(transport Transport, win WindowID) *LockCache {
	return &LockCache{
		win:       win,
		transport: transport,
		ranks:     make(map[Rank]struct{}),
	}
}

// Lock acquires a shared passive lock on r, unless this cache has already
// done so. Each rank is locked at most once per window for the lifetime of
// the cache (spec.md §3 invariant).
func (c *LockCache) Lock(r Rank) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, held := c.ranks[r]; held {
		return nil
	}
	if err := c.transport.WindowLock(c.win, r); err != nil {
		return &TransportError{Op: "WindowLock", Message: err.Error(), Cause: err}
	}
	c.ranks[r] = struct{}{}
	return nil
}

// Close releases every rank this cache has locked, recording exactly one
// unlock per previously-locked rank. Unlock failures are swallowed.
func (c *LockCache) Close() {
	c.mu.Lock()
	ranks := make([]Rank, 0, len(c.ranks))
	for r := range c.ranks {
		ranks = append(ranks, r)
	}
	c.ranks = make(map[Rank]struct{})
	c.mu.Unlock()

	for _, r := range ranks {
		_ = c.transport.WindowUnlock(c.win, r)
	}
}
