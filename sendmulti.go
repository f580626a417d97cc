package oomph

import "sync/atomic"

// multiSendState aggregates the per-destination transport posts of one
// SendMulti call into a single logical completion, adapting
// microbatch.Batcher's batcherState/JobResult pattern (one shared outcome
// resolving every job in a batch) from
// github.com/joeycumines/go-utilpkg/microbatch: there, N jobs share one
// BatchProcessor invocation and its one error; here, N per-destination
// posts share one Request and, on the conjunctive policy (§4.5 of
// SPEC_FULL.md), its one first-observed error.
//
// Every destination is always posted — a per-destination failure does not
// abort the fan-out early, matching microbatch's BatchProcessor running
// every job in the batch through the same call regardless of individual
// job outcomes.
type multiSendState struct {
	remaining atomic.Int64
	firstErr  atomic.Pointer[error]
	req       *Request
}

// perDestOp implements pendingOp for one destination of a SendMulti call,
// folding its Completion into the shared multiSendState and resolving the
// parent Request once every destination has reported.
type perDestOp struct {
	shared *multiSendState
	comm   *Communicator
}

// completeOp decrements the Communicator's scheduled-send counter for this
// one destination (scheduled_sends counts each fanned-out post, not the
// one logical Request — see DESIGN.md), then, once every destination has
// reported, resolves the shared parent Request exactly once.
func (p perDestOp) completeOp(c Completion) {
	p.comm.scheduledSends.Add(-1)
	if c.Err != nil {
		p.shared.firstErr.CompareAndSwap(nil, &c.Err)
	}
	if p.shared.remaining.Add(-1) == 0 {
		var err error
		if e := p.shared.firstErr.Load(); e != nil {
			err = *e
		}
		if err != nil {
			p.shared.req.resolve(Failed, err, true)
		} else {
			p.shared.req.resolve(Completed, nil, true)
		}
	}
}

// sendMulti is Communicator.SendMulti's implementation, split out for
// readability; see communicator.go for the public signature.
func sendMulti[T any](c *Communicator, msg *MessageBuffer[T], dsts []Rank, tag Tag, transferred bool, cb func(*MessageBuffer[T], []Rank, Tag, error)) (*Request, error) {
	if len(dsts) == 0 {
		return nil, &InvalidArgument{Message: "send_multi: empty destination list"}
	}
	for _, d := range dsts {
		if d < 0 || d >= c.ctx.transport.Size() {
			return nil, &InvalidArgument{Message: "send_multi: destination rank out of range"}
		}
	}

	var payload MessageBuffer[T]
	if transferred {
		payload = msg.take()
	} else {
		payload = *msg
	}

	shared := &multiSendState{}
	shared.remaining.Store(int64(len(dsts)))

	own := ownership{}
	if cb != nil {
		own.invokeCallback = func(err error) {
			cb(&payload, dsts, tag, err)
		}
	}

	// onResolve is nil: the aggregate Request's resolution has no counter
	// of its own to release. Each destination's counter unit is released
	// as that destination's own completion is drained, by perDestOp above
	// — including the immediate-post-failure path below.
	req := newRequest(c, own, nil)
	shared.req = req

	handle := payload.Handle()
	for _, d := range dsts {
		c.scheduledSends.Add(1)
		op, err := c.ctx.transport.PostSend(handle.Bytes(), d, tag)
		if err != nil {
			perDestOp{shared: shared, comm: c}.completeOp(Completion{Err: err})
			continue
		}
		c.ctx.requests.register(op, perDestOp{shared: shared, comm: c})
	}

	return req, nil
}
