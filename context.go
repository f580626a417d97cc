package oomph

import "sync"

// regionTable owns every Region a Context has allocated, so Close can
// detach them all. Mirrors the arena pattern noted in spec.md §9 ("shared
// window across multiple message buffers"): each MakeBuffer call attaches
// its own window, and the table just keeps every Region reachable for
// teardown.
type regionTable struct {
	mu      sync.Mutex
	regions []*Region
}

func (t *regionTable) add(r *Region) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.regions = append(t.regions, r)
}

func (t *regionTable) closeAll() {
	t.mu.Lock()
	regions := t.regions
	t.regions = nil
	t.mu.Unlock()

	for _, r := range regions {
		r.Close()
	}
}

// Context owns one Transport and every resource derived from it: attached
// regions and the request table matching completions back to Requests
// (spec.md §4.7). A [LockCache] is a standalone leaf component (spec.md
// §4.2) rather than something Context allocates per window: this module's
// core only ever drives two-sided send/recv/send_multi through Transport,
// which never requires the local process to acquire a passive lock on a
// remote window itself — see DESIGN.md.
//
// A Context is safe for concurrent use by multiple Communicators: its
// region table and request table each take their own mutex. The threadSafe
// flag passed to [NewContext] is recorded on the Context but does not
// change its behaviour: single-threaded mode takes the same mutexes as
// multi-threaded mode, and neither mode serializes Communicator-level calls
// against each other (see DESIGN.md).
type Context struct {
	id         uint64
	transport  Transport
	threadSafe bool
	logger     *Logger

	regions  *regionTable
	requests *requestTable

	cfg *contextOptions
}

var contextIDs struct {
	mu  sync.Mutex
	nxt uint64
}

func nextContextID() uint64 {
	contextIDs.mu.Lock()
	defer contextIDs.mu.Unlock()
	contextIDs.nxt++
	return contextIDs.nxt
}

// NewContext constructs a Context driving transport. threadSafe is recorded
// but does not change locking behaviour (see [Context] doc).
func NewContext(transport Transport, threadSafe bool, opts ...ContextOption) (*Context, error) {
	if transport == nil {
		return nil, &InvalidArgument{Message: "new_context: transport must not be nil"}
	}
	cfg, err := resolveContextOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Context{
		id:         nextContextID(),
		transport:  transport,
		threadSafe: threadSafe,
		logger:     cfg.logger,
		regions:    &regionTable{},
		requests:   newRequestTable(),
		cfg:        cfg,
	}, nil
}

// Communicator returns a new handle for submitting and progressing
// operations against this Context's transport (spec.md §4.5, §4.7).
func (ctx *Context) Communicator() *Communicator {
	return &Communicator{
		ctx:  ctx,
		rank: ctx.transport.Rank(),
		size: ctx.transport.Size(),
	}
}

// Close detaches every region this Context allocated. It does not close
// the underlying Transport, which this module does not own (spec.md §1
// scope).
func (ctx *Context) Close() {
	ctx.regions.closeAll()
}

// allocate attaches size fresh bytes as a new one-sided window and returns
// a Handle spanning the whole of it, for [MakeBuffer].
func (ctx *Context) allocate(size int) (Handle, error) {
	data := make([]byte, size)
	var win WindowID
	region, err := newRegion(data, 0, func() error {
		w, err := ctx.transport.WindowAttach(data)
		win = w
		return err
	}, nil)
	if err != nil {
		return Handle{}, &TransportError{Op: "WindowAttach", Message: err.Error(), Cause: err}
	}
	region.win = win
	region.detach = func() error {
		return ctx.transport.WindowDetach(win, data)
	}
	ctx.regions.add(region)
	return region.GetHandle(0, size), nil
}
