package realtime

import (
	"errors"
	"testing"
)

func TestLedgerConfirm(t *testing.T) {
	ledger := NewLedger()
	counter := 0
	var confirmed any

	handle := ledger.Apply(LocalDelta{
		Apply:    func() { counter++ },
		Rollback: func() { counter-- },
		Confirm:  func(result any) { confirmed = result },
	})

	if counter != 1 {
		t.Fatalf("counter after apply: got %d, want 1", counter)
	}
	if ledger.Pending() != 1 {
		t.Fatalf("pending: got %d, want 1", ledger.Pending())
	}

	ledger.Reconcile(handle, "server-state", nil)

	if counter != 1 {
		t.Errorf("counter after confirm: got %d, want 1", counter)
	}
	if confirmed != "server-state" {
		t.Errorf("confirmed result: got %v, want server-state", confirmed)
	}
	if ledger.Pending() != 0 {
		t.Errorf("pending: got %d, want 0", ledger.Pending())
	}
}

func TestLedgerRollback(t *testing.T) {
	ledger := NewLedger()
	counter := 0

	handle := ledger.Apply(LocalDelta{
		Apply:    func() { counter++ },
		Rollback: func() { counter-- },
	})
	ledger.Reconcile(handle, nil, errors.New("rejected"))

	if counter != 0 {
		t.Errorf("counter after rollback: got %d, want 0", counter)
	}
}

// Reconciling twice must not run rollback or confirm a second time.
func TestLedgerDoubleReconcileIsNoop(t *testing.T) {
	ledger := NewLedger()
	rollbacks := 0

	handle := ledger.Apply(LocalDelta{
		Rollback: func() { rollbacks++ },
	})
	ledger.Reconcile(handle, nil, errors.New("rejected"))
	ledger.Reconcile(handle, nil, errors.New("rejected"))

	if rollbacks != 1 {
		t.Errorf("rollbacks: got %d, want 1", rollbacks)
	}
}

func TestLedgerHandlesAreDistinct(t *testing.T) {
	ledger := NewLedger()
	h1 := ledger.Apply(LocalDelta{})
	h2 := ledger.Apply(LocalDelta{})
	if h1 == h2 {
		t.Error("handles must be unique")
	}
}
