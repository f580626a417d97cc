package oomph

import "testing"

type noopPendingOp struct{}

func (noopPendingOp) completeOp(Completion) {}

func TestRequestTableForgetRemovesEntry(t *testing.T) {
	rt := newRequestTable()

	op := OpID(1)
	rt.register(op, noopPendingOp{})
	if got := rt.len(); got != 1 {
		t.Fatalf("len() = %d, want 1 after register", got)
	}

	rt.forget(op)
	if got := rt.len(); got != 0 {
		t.Fatalf("len() = %d, want 0 after forget", got)
	}

	// forget on an unknown/already-removed op is a no-op, not an error.
	rt.forget(op)
	if got := rt.len(); got != 0 {
		t.Fatalf("len() = %d, want 0 after second forget", got)
	}
}

func TestRequestTableResolveOpRemovesEntry(t *testing.T) {
	rt := newRequestTable()

	op := rt.nextID()
	rt.register(OpID(op), noopPendingOp{})
	if got := rt.len(); got != 1 {
		t.Fatalf("len() = %d, want 1 after register", got)
	}

	if p := rt.resolveOp(OpID(op)); p == nil {
		t.Fatalf("resolveOp returned nil for a registered op")
	}
	if got := rt.len(); got != 0 {
		t.Fatalf("len() = %d, want 0 after resolveOp", got)
	}
	if p := rt.resolveOp(OpID(op)); p != nil {
		t.Fatalf("resolveOp returned non-nil for an already-resolved op")
	}
}

// TestCancelForgetsRequestTableEntry guards the leak a successful Cancel
// used to cause: without forget, a withdrawn receive's table entry stayed
// registered forever, since no Completion ever arrives for it.
func TestCancelForgetsRequestTableEntry(t *testing.T) {
	ctx, err := NewContext(&cancelOnlyTransport{}, false)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	comm := ctx.Communicator()

	buf, err := MakeBuffer[int32](comm, 1)
	if err != nil {
		t.Fatalf("MakeBuffer: %v", err)
	}
	req, err := Recv(comm, buf, 0, 1, nil)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if got := ctx.requests.len(); got != 1 {
		t.Fatalf("request table len = %d, want 1 after Recv", got)
	}

	if ok := req.Cancel(); !ok {
		t.Fatalf("Cancel returned false, want true")
	}
	if got := ctx.requests.len(); got != 0 {
		t.Fatalf("request table len = %d, want 0 after a successful Cancel", got)
	}
}

// cancelOnlyTransport is a minimal Transport whose CancelRecv always
// succeeds, for exercising the Cancel path in isolation.
type cancelOnlyTransport struct{}

func (cancelOnlyTransport) Rank() Rank { return 0 }
func (cancelOnlyTransport) Size() Rank { return 1 }

func (cancelOnlyTransport) WindowAttach(data []byte) (WindowID, error) { return 1, nil }
func (cancelOnlyTransport) WindowDetach(WindowID, []byte) error        { return nil }
func (cancelOnlyTransport) WindowLock(WindowID, Rank) error            { return nil }
func (cancelOnlyTransport) WindowUnlock(WindowID, Rank) error          { return nil }

func (cancelOnlyTransport) PostSend(data []byte, dst Rank, tag Tag) (OpID, error) {
	return 1, nil
}

func (cancelOnlyTransport) PostRecv(data []byte, src Rank, tag Tag) (OpID, error) {
	return 1, nil
}

func (cancelOnlyTransport) CancelRecv(op OpID) (bool, error) { return true, nil }

func (cancelOnlyTransport) Poll(out []Completion) (int, error) { return 0, nil }
