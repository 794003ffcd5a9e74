package shared

import "context"

// EventHandler consumes relayed domain events. An event is redelivered when
// any of its handlers fails, so handlers must tolerate seeing it twice.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the subscribed types; empty means every type
	EventTypes() []string
}

// EventBus delivers relayed events to the subscribed handlers
type EventBus interface {
	Publish(ctx context.Context, events ...DomainEvent) error
	Subscribe(handler EventHandler, eventTypes ...string)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
