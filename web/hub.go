package web

import (
	"sync"

	"go.uber.org/atomic"
)

// frame is one Server-Sent Events message.
type frame struct {
	event string
	data  []byte
}

// hub fans frames out to SSE subscribers. A subscriber that falls behind
// loses frames; publishing never blocks the session.
type hub struct {
	mu     sync.Mutex
	subs   map[chan frame]struct{}
	closed bool

	dropped atomic.Int64
}

func newHub() *hub {
	return &hub{subs: make(map[chan frame]struct{})}
}

// subscribe returns a frame channel and a function that unsubscribes. The
// channel is closed when the hub closes.
func (h *hub) subscribe(size int) (<-chan frame, func()) {
	ch := make(chan frame, size)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

func (h *hub) publish(f frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- f:
		default:
			h.dropped.Inc()
		}
	}
}

func (h *hub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
