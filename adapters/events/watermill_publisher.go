package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// DefaultTopic is the topic session lifecycle events are published to
const DefaultTopic = "tollgate.sessions"

// Event types
const (
	TypeSessionStarted = "session.started"
	TypeSessionEnded   = "session.ended"
)

// SessionEvent represents a session lifecycle event
type SessionEvent struct {
	Type       string    `json:"type"`
	Subject    string    `json:"subject"`
	TokenID    string    `json:"token_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher. An empty topic selects DefaultTopic.
func NewWatermillPublisher(publisher message.Publisher, topic string) *WatermillPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
		now:       time.Now,
	}
}

// PublishSessionStarted publishes a session.started event
func (p *WatermillPublisher) PublishSessionStarted(ctx context.Context, subject, tokenID string) error {
	return p.publish(ctx, TypeSessionStarted, subject, tokenID)
}

// PublishSessionEnded publishes a session.ended event
func (p *WatermillPublisher) PublishSessionEnded(ctx context.Context, subject, tokenID string) error {
	return p.publish(ctx, TypeSessionEnded, subject, tokenID)
}

func (p *WatermillPublisher) publish(ctx context.Context, eventType, subject, tokenID string) error {
	event := SessionEvent{
		Type:       eventType,
		Subject:    subject,
		TokenID:    tokenID,
		OccurredAt: p.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("event_type", eventType)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher discards all events
type NopPublisher struct{}

func (NopPublisher) PublishSessionStarted(context.Context, string, string) error { return nil }

func (NopPublisher) PublishSessionEnded(context.Context, string, string) error { return nil }
