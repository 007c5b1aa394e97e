package queue

import (
	"context"
)

// Publisher delivers lifecycle events. Implementations must not block the
// caller: the orchestrator publishes from its request path and a slow or
// down broker must never stall a booking.
type Publisher interface {
	Publish(ctx context.Context, event Event)
	Close() error
}

// NopPublisher drops every event. Used when AMQP is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) {}

func (NopPublisher) Close() error { return nil }
