package ports

import "context"

// EventBus é o canal externo de pub/sub. O core só publica e recebe
// envelopes já codificados.
type EventBus interface {
	Publish(ctx context.Context, payload string) error
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

type MessageHandler func(ctx context.Context, payload string) error
