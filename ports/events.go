package ports

import "context"

// EventPublisher publishes session lifecycle events to other instances
type EventPublisher interface {
	PublishSessionStarted(ctx context.Context, subject, tokenID string) error
	PublishSessionEnded(ctx context.Context, subject, tokenID string) error
}
