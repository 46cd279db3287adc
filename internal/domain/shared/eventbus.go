package shared

import "context"

// EventHandler handles domain events
type EventHandler interface {
	// Handle processes a domain event
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler is interested in
	EventTypes() []string
}

// EventPublisher publishes domain events to downstream consumers.
// Publish is synchronous: when it returns nil the event has been accepted by
// the transport; when it returns an error the enclosing unit of work must not
// commit.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}
