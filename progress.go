package oomph

// defaultProgressBatch bounds how many completions one Poll call drains
// into a local slice when the Context was not given an explicit
// WithProgressBatchSize, balancing allocation size against how many
// completions a busy transport might report in one go.
const defaultProgressBatch = 64

// progress is Communicator.Progress's implementation. It drains the
// transport's completion queue into a local slice before dispatching any
// of them, so a callback that itself submits new operations (a common
// pattern: resubmitting a receive from within its own completion handler)
// never reenters Poll mid-drain (spec.md §4.6 design note 3).
func progress(c *Communicator) int {
	batch := c.ctx.cfg.progressBatchSize
	if batch <= 0 {
		batch = defaultProgressBatch
	}

	buf := make([]Completion, batch)
	dispatched := 0

	for {
		n, err := c.ctx.transport.Poll(buf)
		if err != nil {
			c.ctx.logger.Errf(CategoryProgress, c.ctx.id, "poll failed", map[string]any{"error": err.Error()})
			return dispatched
		}
		if n == 0 {
			return dispatched
		}

		// Dispatch from a copy of the drained completions; buf itself is
		// refilled by the next Poll of this loop.
		drained := make([]Completion, n)
		copy(drained, buf[:n])

		for _, comp := range drained {
			op := c.ctx.requests.resolveOp(comp.Op)
			if op == nil {
				c.ctx.logger.Warnf(CategoryProgress, c.ctx.id, "completion for unknown op", map[string]any{"op": uint64(comp.Op)})
				continue
			}
			op.completeOp(comp)
			dispatched++
		}

		// An explicit WithProgressBatchSize caps this call at one batch.
		if n < len(buf) || c.ctx.cfg.progressBatchSize > 0 {
			return dispatched
		}
	}
}
