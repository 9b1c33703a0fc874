package realtime

import (
	"sync"
	"testing"
	"time"
)

func collectDeltas() (func(Delta), func() []Delta) {
	var mu sync.Mutex
	var emitted []Delta
	emit := func(delta Delta) {
		mu.Lock()
		emitted = append(emitted, delta)
		mu.Unlock()
	}
	snapshot := func() []Delta {
		mu.Lock()
		defer mu.Unlock()
		return append([]Delta(nil), emitted...)
	}
	return emit, snapshot
}

func TestCoalescerEmitsLatestState(t *testing.T) {
	emit, snapshot := collectDeltas()
	c := newCoalescer(20*time.Millisecond, emit)
	defer c.Stop()

	c.Offer(Delta{Class: ClassPosts, Op: OpInsert, ID: "p1"})
	c.Offer(Delta{Class: ClassPosts, Op: OpUpdate, ID: "p1"})
	c.Offer(Delta{Class: ClassPosts, Op: OpUpdate, ID: "p1"})

	time.Sleep(100 * time.Millisecond)

	emitted := snapshot()
	if len(emitted) != 1 {
		t.Fatalf("emissions: got %d, want 1", len(emitted))
	}
	if emitted[0].Op != OpUpdate {
		t.Errorf("op: got %q, want %q", emitted[0].Op, OpUpdate)
	}
}

func TestCoalescerKeepsRowsIndependent(t *testing.T) {
	emit, snapshot := collectDeltas()
	c := newCoalescer(20*time.Millisecond, emit)
	defer c.Stop()

	c.Offer(Delta{Class: ClassPosts, Op: OpInsert, ID: "p1"})
	c.Offer(Delta{Class: ClassPosts, Op: OpInsert, ID: "p2"})

	time.Sleep(100 * time.Millisecond)

	if got := len(snapshot()); got != 2 {
		t.Errorf("emissions: got %d, want 2", got)
	}
}

func TestCoalescerStopSuppressesPending(t *testing.T) {
	emit, snapshot := collectDeltas()
	c := newCoalescer(20*time.Millisecond, emit)

	c.Offer(Delta{Class: ClassPosts, Op: OpInsert, ID: "p1"})
	c.Stop()

	time.Sleep(100 * time.Millisecond)

	if got := len(snapshot()); got != 0 {
		t.Errorf("emissions after Stop: got %d, want 0", got)
	}
}
