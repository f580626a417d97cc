package oomph

import "sync/atomic"

// Communicator is the public surface for submitting and progressing
// point-to-point operations (spec.md §4.5). It is a cheap, copyable handle
// obtained from a [Context]; many Communicators may share one Context, and
// in multi-threaded mode each goroutine typically holds its own.
//
// Destroying a Communicator (letting it go out of scope) does not destroy
// its Context.
type Communicator struct {
	ctx  *Context
	rank Rank
	size Rank

	scheduledSends atomic.Int64
	scheduledRecvs atomic.Int64
}

// Rank returns this process's identity within the group.
func (c *Communicator) Rank() Rank { return c.rank }

// Size returns the number of ranks in the group.
func (c *Communicator) Size() Rank { return c.size }

// ScheduledSends returns the number of live send submissions (including
// each fanned-out destination of a pending SendMulti) whose terminal event
// has not yet been observed (spec.md §3, §4.5).
func (c *Communicator) ScheduledSends() int64 { return c.scheduledSends.Load() }

// ScheduledRecvs returns the number of live receive submissions whose
// terminal event has not yet been observed.
func (c *Communicator) ScheduledRecvs() int64 { return c.scheduledRecvs.Load() }

// MakeBuffer allocates a MessageBuffer of n elements of T, registered with
// the Transport via the Context's region table. Zero-initialization is not
// guaranteed (spec.md §4.5).
func MakeBuffer[T any](c *Communicator, n int) (*MessageBuffer[T], error) {
	if n <= 0 {
		return nil, &InvalidArgument{Message: "make_buffer: n must be positive"}
	}
	size := n * elemSize[T]()
	handle, err := c.ctx.allocate(size)
	if err != nil {
		return nil, err
	}
	buf := newMessageBuffer[T](handle, n)
	return &buf, nil
}

// Send submits a non-blocking send of msg to dst on tag. msg is borrowed:
// ownership stays with the caller, and cb (if non-nil) is invoked with a
// reference once the send completes.
func Send[T any](c *Communicator, msg *MessageBuffer[T], dst Rank, tag Tag, cb func(*MessageBuffer[T], Rank, Tag, error)) (*Request, error) {
	return send(c, msg, dst, tag, false, cb)
}

// SendOwned submits a non-blocking send, transferring ownership of msg
// into the request. cb (if non-nil) receives the buffer by value once the
// send completes, and may retain or resubmit it.
func SendOwned[T any](c *Communicator, msg *MessageBuffer[T], dst Rank, tag Tag, cb func(*MessageBuffer[T], Rank, Tag, error)) (*Request, error) {
	return send(c, msg, dst, tag, true, cb)
}

func send[T any](c *Communicator, msg *MessageBuffer[T], dst Rank, tag Tag, transferred bool, cb func(*MessageBuffer[T], Rank, Tag, error)) (*Request, error) {
	if dst < 0 || dst >= c.size {
		return nil, &InvalidArgument{Message: "send: destination rank out of range"}
	}

	var payload MessageBuffer[T]
	if transferred {
		payload = msg.take()
	} else {
		payload = *msg
	}

	own := ownership{}
	if cb != nil {
		own.invokeCallback = func(err error) {
			cb(&payload, dst, tag, err)
		}
	}

	req := newRequest(c, own, func() { c.scheduledSends.Add(-1) })
	c.scheduledSends.Add(1)

	op, err := c.ctx.transport.PostSend(payload.Handle().Bytes(), dst, tag)
	if err != nil {
		req.resolve(Failed, &TransportError{Op: "PostSend", Message: err.Error(), Cause: err}, true)
		return req, nil
	}
	c.ctx.requests.register(op, req)
	return req, nil
}

// Recv submits a non-blocking receive of msg from src (or [AnySource]) on
// tag. msg is borrowed: ownership stays with the caller. Per-(src, tag)
// ordering of matching sends is preserved (spec.md §3).
func Recv[T any](c *Communicator, msg *MessageBuffer[T], src Rank, tag Tag, cb func(*MessageBuffer[T], Rank, Tag, error)) (*RecvRequest, error) {
	if src != AnySource && (src < 0 || src >= c.size) {
		return nil, &InvalidArgument{Message: "recv: source rank out of range"}
	}

	own := ownership{}
	if cb != nil {
		own.invokeCallback = func(err error) {
			cb(msg, src, tag, err)
		}
	}

	rr := &RecvRequest{peer: src, tag: tag}
	rr.id = c.ctx.requests.nextID()
	rr.comm = c
	rr.state = newRequestState()
	rr.own = own
	rr.onResolve = func() { c.scheduledRecvs.Add(-1) }
	rr.cancelFn = c.ctx.transport.CancelRecv

	c.scheduledRecvs.Add(1)

	op, err := c.ctx.transport.PostRecv(msg.Handle().Bytes(), src, tag)
	if err != nil {
		rr.resolve(Failed, &TransportError{Op: "PostRecv", Message: err.Error(), Cause: err}, true)
		return rr, nil
	}
	rr.op = op
	rr.opValid = true
	c.ctx.requests.register(op, rr)
	return rr, nil
}

// SendMulti submits msg to every rank in dsts on tag, completing with a
// single Request once all destination sends complete (conjunctive policy,
// SPEC_FULL.md §4.5). msg is borrowed.
func SendMulti[T any](c *Communicator, msg *MessageBuffer[T], dsts []Rank, tag Tag, cb func(*MessageBuffer[T], []Rank, Tag, error)) (*Request, error) {
	return sendMulti(c, msg, dsts, tag, false, cb)
}

// SendMultiOwned is SendMulti, transferring ownership of msg into the
// request; cb (if non-nil) receives the buffer by value.
func SendMultiOwned[T any](c *Communicator, msg *MessageBuffer[T], dsts []Rank, tag Tag, cb func(*MessageBuffer[T], []Rank, Tag, error)) (*Request, error) {
	return sendMulti(c, msg, dsts, tag, true, cb)
}

// Progress drives the progress engine once, returning the number of
// completion events dispatched (spec.md §4.5, §4.6).
func (c *Communicator) Progress() int {
	return progress(c)
}
