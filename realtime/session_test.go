package realtime

import (
	"sync"
	"testing"
	"time"

	"campusfeed/storage"
)

var sessionCollections = map[EntityClass]string{
	ClassPosts:         storage.CollectionPosts,
	ClassNotifications: storage.CollectionNotifications,
	ClassMessages:      storage.CollectionMessages,
}

// Every watched class must have its coalescer in place before any watch
// goroutine can offer a delta to it.
func TestInitCoalescersCoversEveryClass(t *testing.T) {
	s := NewSession(nil, Scope{})
	s.initCoalescers(10*time.Millisecond, sessionCollections)

	for class := range sessionCollections {
		if s.coalescers[class] == nil {
			t.Errorf("missing coalescer for %s", class)
		}
	}
}

func TestCoalescedDeltaReachesListener(t *testing.T) {
	s := NewSession(nil, Scope{})

	var mu sync.Mutex
	var received []Delta
	s.On(ClassPosts, func(delta Delta) {
		mu.Lock()
		received = append(received, delta)
		mu.Unlock()
	})

	s.initCoalescers(10*time.Millisecond, sessionCollections)
	s.coalescers[ClassPosts].Offer(Delta{Class: ClassPosts, Op: OpInsert, ID: "p1"})

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(received))
	}
	if received[0].ID != "p1" {
		t.Errorf("id: got %q, want %q", received[0].ID, "p1")
	}
}
