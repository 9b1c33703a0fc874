package realtime

import (
	"sync"
)

// Handle identifies one pending optimistic change.
type Handle uint64

// LocalDelta is a locally applied change awaiting server acknowledgment.
// Apply runs immediately; Rollback undoes it if the server rejects the
// write; Confirm (optional) reconciles local state with the authoritative
// result.
type LocalDelta struct {
	Apply    func()
	Rollback func()
	Confirm  func(result any)
}

// Ledger is the two-phase optimistic-update protocol: Apply records and
// runs the local change, Reconcile either confirms it with the server
// result or rolls it back. It is synchronous and transport-free, so the
// flow is unit testable.
type Ledger struct {
	mu      sync.Mutex
	next    Handle
	pending map[Handle]LocalDelta
}

func NewLedger() *Ledger {
	return &Ledger{pending: make(map[Handle]LocalDelta)}
}

// Apply runs the local change and returns the handle to reconcile later.
func (l *Ledger) Apply(delta LocalDelta) Handle {
	l.mu.Lock()
	l.next++
	handle := l.next
	l.pending[handle] = delta
	l.mu.Unlock()

	if delta.Apply != nil {
		delta.Apply()
	}
	return handle
}

// Reconcile resolves a pending change: err == nil confirms it against the
// server result, anything else rolls it back. Unknown handles are no-ops so
// double reconciliation is harmless.
func (l *Ledger) Reconcile(handle Handle, result any, err error) {
	l.mu.Lock()
	delta, ok := l.pending[handle]
	delete(l.pending, handle)
	l.mu.Unlock()

	if !ok {
		return
	}
	if err != nil {
		if delta.Rollback != nil {
			delta.Rollback()
		}
		return
	}
	if delta.Confirm != nil {
		delta.Confirm(result)
	}
}

// Pending reports how many applied changes still await reconciliation.
func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
