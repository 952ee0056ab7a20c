package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/diogoX451/bazaar/internal/core/ports"
	"github.com/diogoX451/bazaar/internal/events"
)

// EventBusImpl adapta um events.Bus para a interface do Core, fixando o
// subject do mercado
type EventBusImpl struct {
	bus     events.Bus
	subject string

	mu   sync.Mutex
	subs []events.Subscription
}

var _ ports.EventBus = (*EventBusImpl)(nil)

func NewEventBus(bus events.Bus, subject string) *EventBusImpl {
	return &EventBusImpl{bus: bus, subject: subject}
}

func (e *EventBusImpl) Publish(ctx context.Context, payload string) error {
	return e.bus.Publish(ctx, e.subject, []byte(payload))
}

func (e *EventBusImpl) Subscribe(ctx context.Context, handler ports.MessageHandler) error {
	sub, err := e.bus.Subscribe(e.subject, func(ctx context.Context, msg events.Message) error {
		return handler(ctx, string(msg.Data()))
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", e.subject, err)
	}

	e.mu.Lock()
	e.subs = append(e.subs, sub)
	e.mu.Unlock()
	return nil
}

func (e *EventBusImpl) Close() error {
	e.mu.Lock()
	subs := e.subs
	e.subs = nil
	e.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	return e.bus.Close()
}
