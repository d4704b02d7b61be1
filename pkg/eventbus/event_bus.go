// Package eventbus carries lifecycle events between the API surface and the
// workers over a watermill publisher/subscriber pair.
package eventbus

import (
	"context"

	"github.com/siteforge/relay/pkg/events"
)

type EventPublisher interface {
	Publish(ctx context.Context, key string, event events.Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler)
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
