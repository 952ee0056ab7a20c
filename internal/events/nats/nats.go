package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/diogoX451/bazaar/internal/events"
)

type NATSBus struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
}

// Verifica interface
var _ events.Bus = (*NATSBus)(nil)

type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	// Durable, quando definido, mantém a posição de leitura deste nó entre
	// reinícios. Precisa ser único por nó para que todos recebam tudo.
	Durable string
}

func New(cfg Config) (*NATSBus, error) {
	name := cfg.Name
	if name == "" {
		name = "bazaar-node"
	}

	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Name(name),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connection failed: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream init failed: %w", err)
	}

	return &NATSBus{
		conn:    conn,
		js:      js,
		durable: cfg.Durable,
	}, nil
}

// CreateStream cria stream se não existir
func (n *NATSBus) CreateStream(cfg events.StreamConfig) error {
	storage := nats.FileStorage
	if cfg.Storage == events.StorageMemory {
		storage = nats.MemoryStorage
	}

	_, err := n.js.AddStream(&nats.StreamConfig{
		Name:      cfg.Name,
		Subjects:  cfg.Subjects,
		Retention: nats.LimitsPolicy, // fanout: cada nó lê todas as mensagens
		MaxMsgs:   cfg.MaxMsgs,
		MaxAge:    cfg.MaxAge,
		Storage:   storage,
		Replicas:  cfg.Replicas,
	})

	if errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return nil // Já existe, ok
	}

	return err
}

// SetupStreams cria o stream do mercado
func (n *NATSBus) SetupStreams(stream, subject string) error {
	if err := n.CreateStream(events.StreamConfig{
		Name:     stream,
		Subjects: []string{subject},
		MaxMsgs:  100000,
		MaxAge:   time.Hour, // requests velhos não servem para ninguém
		Storage:  events.StorageMemory,
	}); err != nil {
		return fmt.Errorf("%s stream: %w", stream, err)
	}
	return nil
}

// Publish envia mensagem bruta
func (n *NATSBus) Publish(ctx context.Context, subject string, payload []byte) error {
	_, err := n.js.Publish(subject, payload, nats.Context(ctx))
	return err
}

// Subscribe registra handler push. Cada nó tem seu próprio consumer e só
// recebe o que for publicado a partir de agora.
func (n *NATSBus) Subscribe(subject string, handler events.Handler) (events.Subscription, error) {
	callback := func(msg *nats.Msg) {
		wrapped := &natsMessage{msg: msg}
		ctx := context.Background()

		if err := handler(ctx, wrapped); err != nil {
			// Handler errou, não deu ack = redelivery automático
			return
		}
		_ = wrapped.Ack()
	}

	opts := []nats.SubOpt{nats.DeliverNew(), nats.ManualAck()}
	if n.durable != "" {
		opts = append(opts, nats.Durable(durableFromSubject(subject+"_"+n.durable)))
	}

	sub, err := n.js.Subscribe(subject, callback, opts...)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return &natsSubscription{sub: sub}, nil
}

func durableFromSubject(subject string) string {
	b := make([]byte, 0, len(subject))
	for _, r := range []byte(subject) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b = append(b, r)
		default:
			b = append(b, '_')
		}
	}
	return string(b)
}

// Close encerra conexão
func (n *NATSBus) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
	return nil
}

// --- Implementações internas ---

type natsMessage struct {
	msg *nats.Msg
}

func (m *natsMessage) Data() []byte {
	return m.msg.Data
}

func (m *natsMessage) Subject() string {
	return m.msg.Subject
}

func (m *natsMessage) Ack() error {
	return m.msg.Ack()
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s *natsSubscription) Unsubscribe() error {
	return s.sub.Unsubscribe()
}
