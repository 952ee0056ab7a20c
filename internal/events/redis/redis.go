package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diogoX451/bazaar/internal/events"
)

// PubSubBus usa o Pub/Sub do Redis. Sem persistência: nó desconectado
// perde o que foi publicado no intervalo.
type PubSubBus struct {
	client *redis.Client

	mu   sync.Mutex
	subs []*pubSubSubscription
}

var _ events.Bus = (*PubSubBus)(nil)

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

func New(cfg Config) (*PubSubBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &PubSubBus{client: client}, nil
}

func (b *PubSubBus) Publish(ctx context.Context, subject string, payload []byte) error {
	return b.client.Publish(ctx, subject, payload).Err()
}

func (b *PubSubBus) Subscribe(subject string, handler events.Handler) (events.Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())

	ps := b.client.Subscribe(ctx, subject)
	// espera a confirmação para não perder as primeiras mensagens
	if _, err := ps.Receive(ctx); err != nil {
		cancel()
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	sub := &pubSubSubscription{ps: ps, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range ps.Channel() {
			_ = handler(ctx, &pubSubMessage{subject: msg.Channel, data: []byte(msg.Payload)})
		}
	}()

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub, nil
}

func (b *PubSubBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	return b.client.Close()
}

type pubSubSubscription struct {
	ps     *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *pubSubSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
		<-s.done
	})
	return err
}

type pubSubMessage struct {
	subject string
	data    []byte
}

func (m *pubSubMessage) Data() []byte    { return m.data }
func (m *pubSubMessage) Subject() string { return m.subject }
func (m *pubSubMessage) Ack() error      { return nil }
