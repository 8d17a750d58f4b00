package events

import (
	"context"

	"github.com/jwebster45206/anima-narrator/pkg/chat"
)

// Bus fans game events out to subscribers. Broadcaster implements it on
// Redis Pub/Sub and Hub in process.
type Bus interface {
	Publish(ctx context.Context, gameID string, msg chat.ChatMessage) error
	PublishStateUpdated(ctx context.Context, gameID string, phase string) error
	Subscribe(ctx context.Context, gameID string) (*Subscription, error)
}

var (
	_ Bus = (*Broadcaster)(nil)
	_ Bus = (*Hub)(nil)
)

// Subscription is a live feed of one game's events.
type Subscription struct {
	events chan Event
	close  func() error
}

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) Close() error {
	return s.close()
}
