// Package oomph provides an asynchronous, point-to-point message-passing
// runtime layered over a rank-addressed transport such as MPI.
//
// # Architecture
//
// A [Context] owns the underlying [Transport] handle and the shared runtime
// state: the region table and the request table. [LockCache] is a
// standalone component that a Context does not allocate or own. Many cheap [Communicator] handles can be obtained from one Context,
// each scoped to a calling goroutine. A Communicator submits [Send], [Recv],
// and [SendMulti] operations, which return a [Request] or [RecvRequest] —
// a future-like handle supporting readiness checks, progress-driven test
// and wait, and, for receives, cancellation.
//
// [Communicator.Progress] drains completed operations from the Transport,
// resolves the matching request, and invokes its completion callback (if
// any) synchronously on the calling goroutine.
//
// # Buffer Ownership
//
// [MessageBuffer] crosses the Communicator/callback boundary in one of two
// modes, chosen explicitly at submission time:
//
//   - Borrowed: the caller keeps ownership; the callback receives a
//     reference and must not retain it past its own return.
//   - Transferred: the caller passes the buffer by value; the callback
//     receives it by value and may retain or resubmit it.
//
// # Thread Safety
//
// A Context may be constructed in single-threaded or multi-threaded mode.
// In multi-threaded mode, multiple goroutines may each hold their own
// Communicator and independently submit and progress operations; the
// Context's shared structures (region table, request table) each use their
// own mutex. The single-threaded flag does not change this: both modes take
// the same locks. [Communicator.Progress] always runs on the calling
// goroutine only — there is no background dispatcher goroutine.
//
// # Usage
//
//	ctx, err := oomph.NewContext(transport, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	comm := ctx.Communicator()
//	msg, err := oomph.MakeBuffer[byte](comm, 64)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	req, err := oomph.Send(comm, msg, dst, tag, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := req.Wait(); err != nil {
//	    log.Fatal(err)
//	}
//
// Generic operations (MakeBuffer, Send, Recv, SendMulti) are free functions,
// not methods, since Go methods cannot introduce their own type parameters
// beyond their receiver's.
//
// # Error Types
//
// The package surfaces a small, explicit error taxonomy:
//   - [TransportError]: the underlying Transport returned non-success.
//   - [InvalidArgument]: rank out of range, empty destination list, or a
//     zero-size buffer where one is forbidden.
//   - [UseAfterMove]: a [MessageBuffer] accessed after its ownership was
//     transferred into a submission.
//
// A failed [RecvRequest.Cancel] is reported as a plain `false` return, never
// as an error value.
package oomph
