package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/diogoX451/bazaar/internal/events"
)

var ErrClosed = errors.New("memory bus closed")

// Bus entrega cada publicação a todos os inscritos do subject, em ordem,
// por uma goroutine por inscrição. Usado em testes e em nó único.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscription
	closed bool
}

var _ events.Bus = (*Bus)(nil)

func New() *Bus {
	return &Bus{subs: make(map[string][]*subscription)}
}

func (b *Bus) Publish(ctx context.Context, subject string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	data := append([]byte(nil), payload...)
	for _, sub := range b.subs[subject] {
		select {
		case sub.queue <- &message{subject: subject, data: data}:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *Bus) Subscribe(subject string, handler events.Handler) (events.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &subscription{
		bus:     b,
		subject: subject,
		queue:   make(chan *message, 256),
		done:    make(chan struct{}),
	}
	b.subs[subject] = append(b.subs[subject], sub)

	go sub.loop(handler)
	return sub, nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.stop()
		}
	}
	b.subs = nil
	return nil
}

func (b *Bus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[sub.subject]
	for i, s := range subs {
		if s == sub {
			b.subs[sub.subject] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

type subscription struct {
	bus     *Bus
	subject string
	queue   chan *message
	done    chan struct{}
	once    sync.Once
}

func (s *subscription) loop(handler events.Handler) {
	for {
		select {
		case msg := <-s.queue:
			_ = handler(context.Background(), msg)
		case <-s.done:
			return
		}
	}
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscription) Unsubscribe() error {
	s.bus.remove(s)
	s.stop()
	return nil
}

type message struct {
	subject string
	data    []byte
}

func (m *message) Data() []byte    { return m.data }
func (m *message) Subject() string { return m.subject }
func (m *message) Ack() error      { return nil }
