package shared

import "context"

// EventHandler consumes published domain events. EventTypes narrows which
// events the handler sees; an empty slice subscribes to everything.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher is the write side of the bus, used by application services
// to flush an aggregate's pending events after a commit.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber is the read side of the bus. Passing explicit event types
// to Subscribe overrides whatever the handler's EventTypes declares.
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus ties both sides together with a lifecycle so delivery goroutines
// can be started and drained from main.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
