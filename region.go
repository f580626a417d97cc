package oomph

import "sync/atomic"

// WindowID identifies a one-sided memory window registered with the
// Transport. A Context attaches each Region it allocates as a window of its
// own; Regions do not share one window. The Context keeps every Region in
// its region table for teardown.
type WindowID uint64

// Region wraps a contiguous byte buffer and attaches it to a Transport
// window for one-sided access (spec.md §4.1).
//
// Construction fails with [TransportError] if attach fails. Destruction
// ([Region.Close]) detaches if still owning; only the first Close detaches,
// later calls are no-ops. Region has no move operation: it is shared by
// pointer.
type Region struct {
	data   []byte
	win    WindowID
	closed atomic.Bool
	attach func() error
	detach func() error
}

// newRegion constructs a Region over data, attaching it to win via attach.
// attach/detach are injected so region.go stays independent of the
// concrete Transport call shape.
func newRegion(data []byte, win WindowID, attach, detach func() error) (*Region, error) {
	if attach != nil {
		if err := attach(); err != nil {
			return nil, err
		}
	}
	return &Region{data: data, win: win, detach: detach}, nil
}

// Size returns the region's length in bytes.
func (r *Region) Size() int {
	if r == nil {
		return 0
	}
	return len(r.data)
}

// Window returns the window id this region is attached to.
func (r *Region) Window() WindowID {
	return r.win
}

// GetHandle returns a lightweight reference to a byte range within the
// region, starting at offset with the given size. It does not bounds-check
// against the region's declared length — callers are responsible; this is
// a low-level primitive (spec.md §4.1).
func (r *Region) GetHandle(offset, size int) Handle {
	return Handle{region: r, Offset: offset, Size: size}
}

// Bytes returns the full underlying byte slice. Intended for use by
// MessageBuffer, not general callers.
func (r *Region) Bytes() []byte {
	return r.data
}

// Close detaches the region from its window if still owning. Transport
// errors from the detach are swallowed: destruction paths cannot raise
// without corrupting the resource-release chain (spec.md §7).
func (r *Region) Close() {
	if r == nil {
		return
	}
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	if r.detach != nil {
		_ = r.detach()
	}
}

// Handle is a plain value referencing a byte range within a Region. It does
// not own memory and is only valid while its Region is alive (spec.md
// §3, §4.1).
type Handle struct {
	region *Region
	Offset int
	Size   int
}

// Bytes returns the byte slice this Handle refers to, re-sliced from the
// owning Region each call (the Region itself may not move, but this keeps
// Handle a plain value with no cached slice header to go stale).
func (h Handle) Bytes() []byte {
	if h.region == nil {
		return nil
	}
	b := h.region.Bytes()
	if h.Offset < 0 || h.Offset > len(b) {
		return nil
	}
	end := h.Offset + h.Size
	if end > len(b) {
		end = len(b)
	}
	return b[h.Offset:end]
}

// Window returns the window id of the Region this Handle was carved from.
func (h Handle) Window() WindowID {
	if h.region == nil {
		return 0
	}
	return h.region.Window()
}
