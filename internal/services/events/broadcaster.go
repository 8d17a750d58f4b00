package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeMessage      EventType = "game.message"
	EventTypeStateUpdated EventType = "game.state_updated"
)

// Event is the payload sent on a game's channel.
type Event struct {
	Type    EventType         `json:"type"`
	GameID  string            `json:"game_id"`
	Message *chat.ChatMessage `json:"message,omitempty"`
	Phase   string            `json:"phase,omitempty"`
	SentAt  time.Time         `json:"sent_at"`
}

// Broadcaster publishes game events to Redis Pub/Sub for SSE distribution.
// It satisfies engine.Publisher.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Channel names the pub/sub channel for a game.
func Channel(gameID string) string {
	return "game-events:" + gameID
}

// Publish sends one transcript entry.
func (b *Broadcaster) Publish(ctx context.Context, gameID string, msg chat.ChatMessage) error {
	return b.publishToGame(ctx, Event{
		Type:    EventTypeMessage,
		GameID:  gameID,
		Message: &msg,
	})
}

// PublishStateUpdated announces that a game moved to a new phase.
func (b *Broadcaster) PublishStateUpdated(ctx context.Context, gameID string, phase string) error {
	return b.publishToGame(ctx, Event{
		Type:   EventTypeStateUpdated,
		GameID: gameID,
		Phase:  phase,
	})
}

// Subscribe opens a subscription to a game's events and waits for Redis to
// confirm it. Callers must Close the returned subscription.
func (b *Broadcaster) Subscribe(ctx context.Context, gameID string) (*Subscription, error) {
	pubsub := b.redisClient.Subscribe(ctx, Channel(gameID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	ch := pubsub.Channel()
	events := make(chan Event)
	go func() {
		defer close(events)
		for msg := range ch {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return &Subscription{events: events, close: pubsub.Close}, nil
}

// publishToGame publishes an event to the game-specific channel
func (b *Broadcaster) publishToGame(ctx context.Context, event Event) error {
	channel := Channel(event.GameID)
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)
	return nil
}
