// Package console is the daemon-side console device: everything user
// processes emit through debug_log lands here. The hub keeps a bounded
// scrollback and fans writes out to live subscribers, so the control plane
// can stream the console without ever touching kernel state.
package console

import (
	"sync"
)

// DefaultScrollback bounds retained console output in bytes.
const DefaultScrollback = 64 * 1024

// Hub implements the machine console contract and fans output out to
// subscribers. Slow subscribers drop writes rather than stall the kernel.
type Hub struct {
	mu         sync.Mutex
	scrollback []byte
	limit      int
	subs       map[chan []byte]struct{}
}

// NewHub creates a hub with the default scrollback limit.
func NewHub() *Hub {
	return NewHubSize(DefaultScrollback)
}

// NewHubSize creates a hub retaining at most limit bytes of output.
func NewHubSize(limit int) *Hub {
	if limit < 1 {
		limit = DefaultScrollback
	}
	return &Hub{
		limit: limit,
		subs:  make(map[chan []byte]struct{}),
	}
}

// Write appends console output and notifies subscribers. It never blocks and
// never fails; the kernel calls it from inside syscall handling.
func (h *Hub) Write(p []byte) (int, error) {
	owned := make([]byte, len(p))
	copy(owned, p)

	h.mu.Lock()
	h.scrollback = append(h.scrollback, owned...)
	if len(h.scrollback) > h.limit {
		h.scrollback = h.scrollback[len(h.scrollback)-h.limit:]
	}
	for ch := range h.subs {
		select {
		case ch <- owned:
		default:
		}
	}
	h.mu.Unlock()
	return len(p), nil
}

// Scrollback returns a copy of the retained output.
func (h *Hub) Scrollback() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]byte, len(h.scrollback))
	copy(out, h.scrollback)
	return out
}

// Subscribe registers a listener for future writes. The returned cancel
// function closes the channel and must be called exactly once.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers returns the live subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
