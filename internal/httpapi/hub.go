package httpapi

import (
	"sync"

	"go.uber.org/zap"

	"github.com/park285/cheese-web/internal/obslog"
	"github.com/park285/cheese-web/internal/session"
	"github.com/park285/cheese-web/pkg/chessdto"
)

// Hub fans session events out to websocket watchers. A watcher that falls behind loses events
// rather than stalling the session.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan chessdto.Event
	nextID int
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{subs: make(map[int]chan chessdto.Event), buffer: buffer}
}

// Publish implements session.Publisher.
func (h *Hub) Publish(ev session.Event) {
	dto := toEventDTO(ev)
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- dto:
		default:
			obslog.L().Warn("hub_drop", zap.Int("watcher", id), zap.String("kind", dto.Kind))
		}
	}
}

// Subscribe registers a watcher. The returned cancel func is idempotent.
func (h *Hub) Subscribe() (<-chan chessdto.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan chessdto.Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Watchers returns the number of live subscriptions.
func (h *Hub) Watchers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
