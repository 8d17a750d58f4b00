package events

import (
	"context"
	"sync"
	"time"

	"github.com/jwebster45206/anima-narrator/pkg/chat"
)

// hubBuffer is how many events a slow subscriber may lag before it starts
// missing them.
const hubBuffer = 32

// Hub is an in-process Bus for single-instance deployments.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

func (h *Hub) Publish(ctx context.Context, gameID string, msg chat.ChatMessage) error {
	h.send(Event{Type: EventTypeMessage, GameID: gameID, Message: &msg, SentAt: time.Now().UTC()})
	return nil
}

func (h *Hub) PublishStateUpdated(ctx context.Context, gameID string, phase string) error {
	h.send(Event{Type: EventTypeStateUpdated, GameID: gameID, Phase: phase, SentAt: time.Now().UTC()})
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, gameID string) (*Subscription, error) {
	ch := make(chan Event, hubBuffer)
	h.mu.Lock()
	if h.subs[gameID] == nil {
		h.subs[gameID] = make(map[chan Event]struct{})
	}
	h.subs[gameID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return &Subscription{events: ch, close: func() error {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[gameID], ch)
			if len(h.subs[gameID]) == 0 {
				delete(h.subs, gameID)
			}
			close(ch)
		})
		return nil
	}}, nil
}

func (h *Hub) send(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.GameID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
