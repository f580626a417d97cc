package oomph

import "unsafe"

// MessageBuffer is a typed view over an owned byte region, allocated
// through [Communicator.MakeBuffer] so its storage is registered with the
// Transport (spec.md §4.3).
//
// A MessageBuffer crosses the Communicator/callback boundary in one of two
// ownership modes, chosen explicitly at submission:
//
//   - Borrowed: passed to Send/Recv by reference; ownership stays with the
//     caller; the completion callback receives a reference and must not
//     move it out.
//   - Transferred: passed by value; ownership moves to the request; the
//     completion callback receives the buffer by value and may retain or
//     resubmit it.
//
// Move ([MessageBuffer.take]) leaves the source empty (size zero, no
// handle) and marks it moved, so a subsequent access through the stale
// value reports [UseAfterMove] rather than silently reading freed/aliased
// memory (spec.md §4.8: "detected where cheap").
type MessageBuffer[T any] struct {
	handle Handle
	n      int
	moved  bool
}

// elemSize returns the size in bytes of one element of T.
func elemSize[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// newMessageBuffer constructs a MessageBuffer of n elements of T over
// handle. handle.Size must equal n*elemSize[T]().
func newMessageBuffer[T any](handle Handle, n int) MessageBuffer[T] {
	return MessageBuffer[T]{handle: handle, n: n}
}

// Len returns the number of elements in the buffer.
func (b *MessageBuffer[T]) Len() int {
	if b == nil || b.moved {
		return 0
	}
	return b.n
}

// Handle returns the underlying byte-range Handle, converting the typed
// buffer to its raw form for passing to the Transport.
func (b *MessageBuffer[T]) Handle() Handle {
	if b == nil || b.moved {
		return Handle{}
	}
	return b.handle
}

// slice returns the typed elements as a Go slice backed by the buffer's
// region, panicking with UseAfterMove if the buffer was moved out.
func (b *MessageBuffer[T]) slice() []T {
	if b.moved {
		panic(&UseAfterMove{})
	}
	raw := b.handle.Bytes()
	if raw == nil {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(raw))), b.n)
}

// At returns the element at index i.
func (b *MessageBuffer[T]) At(i int) T {
	return b.slice()[i]
}

// Set assigns the element at index i.
func (b *MessageBuffer[T]) Set(i int, v T) {
	b.slice()[i] = v
}

// Range calls fn for every element in order, in the style of the
// teacher's iterable collections — used in place of exposing the backing
// slice directly, so a moved-from buffer fails loudly instead of ranging
// over stale/zeroed memory.
func (b *MessageBuffer[T]) Range(fn func(i int, v T)) {
	s := b.slice()
	for i, v := range s {
		fn(i, v)
	}
}

// Fill assigns every element using fn(i).
func (b *MessageBuffer[T]) Fill(fn func(i int) T) {
	s := b.slice()
	for i := range s {
		s[i] = fn(i)
	}
}

// take moves b into a new MessageBuffer value, leaving b empty and marked
// moved. Used when a buffer is passed by value into a transferred-mode
// submission.
func (b *MessageBuffer[T]) take() MessageBuffer[T] {
	out := MessageBuffer[T]{handle: b.handle, n: b.n}
	b.handle = Handle{}
	b.n = 0
	b.moved = true
	return out
}

// Equal reports whether two buffers have identical size and contents.
// Provided for tests exercising the ownership round-trip invariant
// (spec.md §8).
func (b *MessageBuffer[T]) Equal(other *MessageBuffer[T]) bool {
	if b.Len() != other.Len() {
		return false
	}
	as, bs := b.slice(), other.slice()
	for i := range as {
		if any(as[i]) != any(bs[i]) {
			return false
		}
	}
	return true
}
