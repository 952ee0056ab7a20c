package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/diogoX451/bazaar/internal/core/ports"
)

// Messenger junta codec, barramento, consumer e correlator
type Messenger struct {
	bus        ports.EventBus
	consumer   *Consumer
	correlator *Correlator
	timeout    time.Duration
	log        zerolog.Logger
}

// NewMessenger monta o consumer a partir de opts. Num nó responder as
// Responses saem pelo próprio barramento quando opts.Publish não é dado.
func NewMessenger(bus ports.EventBus, opts ConsumerOptions, timeout time.Duration) (*Messenger, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	m := &Messenger{
		bus:     bus,
		timeout: timeout,
		log:     opts.Logger.With().Str("component", "messenger").Logger(),
	}
	if opts.Responder && opts.Publish == nil {
		opts.Publish = m.PublishResponse
	}

	consumer, err := NewConsumer(opts)
	if err != nil {
		return nil, err
	}
	m.consumer = consumer
	m.correlator = consumer.Correlator()
	return m, nil
}

func (m *Messenger) Consumer() *Consumer {
	return m.consumer
}

// Start inscreve o consumer no barramento
func (m *Messenger) Start(ctx context.Context) error {
	return m.bus.Subscribe(ctx, func(ctx context.Context, payload string) error {
		// erros já foram logados pelo consumer; a entrega não é repetida
		_, _ = m.consumer.ConsumeString(ctx, payload)
		return nil
	})
}

// Publish envia um Update. O id é marcado como visto localmente porque o
// efeito local já foi aplicado por quem publica.
func (m *Messenger) Publish(ctx context.Context, update Update) error {
	raw, err := EncodeMessage(update)
	if err != nil {
		return err
	}
	if err := m.consumer.CacheReceivedID(ctx, update.ID()); err != nil {
		return err
	}
	if err := m.bus.Publish(ctx, raw); err != nil {
		return fmt.Errorf("publish %s: %w", update.Type(), err)
	}
	return nil
}

// PublishResponse envia a Response gerada por um Request local
func (m *Messenger) PublishResponse(ctx context.Context, resp Response) error {
	raw, err := EncodeMessage(resp)
	if err != nil {
		return err
	}
	if err := m.bus.Publish(ctx, raw); err != nil {
		return fmt.Errorf("publish %s: %w", resp.Type(), err)
	}
	return nil
}

// SendRequest publica o Request e espera a Response correlacionada.
// O próprio nó pode ser o responder: o Request volta pelo barramento.
func (m *Messenger) SendRequest(ctx context.Context, req Request) (Response, error) {
	pending := m.correlator.Expect(req.ID(), m.timeout)

	raw, err := EncodeMessage(req)
	if err != nil {
		m.correlator.Cancel(req.ID())
		return nil, err
	}
	if err := m.bus.Publish(ctx, raw); err != nil {
		m.correlator.Cancel(req.ID())
		return nil, fmt.Errorf("publish %s: %w", req.Type(), err)
	}

	resp, err := pending.Await(ctx)
	if err != nil {
		m.correlator.Cancel(req.ID())
		m.log.Warn().Err(err).Str("msg_id", req.ID().String()).Str("type", req.Type()).Msg("request abandoned")
		return nil, err
	}
	return resp, nil
}

// Send é o SendRequest tipado
func Send[R Response](ctx context.Context, m *Messenger, req Request) (R, error) {
	var zero R
	resp, err := m.SendRequest(ctx, req)
	if err != nil {
		return zero, err
	}
	typed, ok := resp.(R)
	if !ok {
		return zero, fmt.Errorf("%w: unexpected response %s for %s", ErrMalformedEnvelope, resp.Type(), req.Type())
	}
	return typed, nil
}

func (m *Messenger) Close() error {
	return m.bus.Close()
}
