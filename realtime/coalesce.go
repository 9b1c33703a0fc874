package realtime

import (
	"sync"
	"time"
)

// coalescer collapses rapid repeated deltas for the same row into one
// emission carrying the latest state, so a burst of counter updates does not
// trigger a full feed reload per event.
type coalescer struct {
	window time.Duration
	emit   func(Delta)

	mu      sync.Mutex
	pending map[string]Delta
	stopped bool
}

func newCoalescer(window time.Duration, emit func(Delta)) *coalescer {
	return &coalescer{
		window:  window,
		emit:    emit,
		pending: make(map[string]Delta),
	}
}

// Offer queues a delta. The first delta for a row starts the window; later
// ones within it just replace the held state.
func (c *coalescer) Offer(delta Delta) {
	key := string(delta.Class) + "/" + delta.ID

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	_, scheduled := c.pending[key]
	c.pending[key] = delta
	c.mu.Unlock()

	if scheduled {
		return
	}
	time.AfterFunc(c.window, func() {
		c.flush(key)
	})
}

func (c *coalescer) flush(key string) {
	c.mu.Lock()
	delta, ok := c.pending[key]
	delete(c.pending, key)
	stopped := c.stopped
	c.mu.Unlock()

	if ok && !stopped {
		c.emit(delta)
	}
}

// Stop drops anything still pending; no delta is emitted after it returns.
func (c *coalescer) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.pending = make(map[string]Delta)
	c.mu.Unlock()
}
