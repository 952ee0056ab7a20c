package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diogoX451/bazaar/internal/core/ports"
)

// UpdateHandler é o consumer interno de um tipo de Update
type UpdateHandler func(ctx context.Context, update Update) error

// ResponsePublisher publica a Response gerada por um Request
type ResponsePublisher func(ctx context.Context, resp Response) error

type ConsumerOptions struct {
	Registry   *Registry
	Dedup      Deduplicator
	Correlator *Correlator
	Logger     zerolog.Logger

	// Responder habilita a execução de Requests neste nó.
	// Executor e Publish são obrigatórios quando true.
	Responder bool
	Executor  ports.RequestExecutor
	Publish   ResponsePublisher
}

// Consumer recebe envelopes do barramento: decodifica, deduplica e despacha.
// Cada mensagem é processada até o fim antes da próxima.
type Consumer struct {
	mu sync.Mutex

	registry   *Registry
	dedup      Deduplicator
	correlator *Correlator
	log        zerolog.Logger

	responder bool
	executor  ports.RequestExecutor
	publish   ResponsePublisher

	handlersMu sync.RWMutex
	handlers   map[string]UpdateHandler
}

func NewConsumer(opts ConsumerOptions) (*Consumer, error) {
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	if opts.Dedup == nil {
		opts.Dedup = NewLocalDedup(0, 0)
	}
	if opts.Correlator == nil {
		opts.Correlator = NewCorrelator()
	}
	if opts.Responder && (opts.Executor == nil || opts.Publish == nil) {
		return nil, errors.New("responder consumer requires an executor and a publisher")
	}

	return &Consumer{
		registry:   opts.Registry,
		dedup:      opts.Dedup,
		correlator: opts.Correlator,
		log:        opts.Logger.With().Str("component", "consumer").Logger(),
		responder:  opts.Responder,
		executor:   opts.Executor,
		publish:    opts.Publish,
		handlers:   make(map[string]UpdateHandler),
	}, nil
}

// RegisterInternalConsumer associa um handler ao tipo de Update.
// A última chamada para o mesmo tipo prevalece.
func (c *Consumer) RegisterInternalConsumer(msgType string, handler UpdateHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[msgType] = handler
}

// CacheReceivedID marca um id como já visto, para que o nó não reprocesse
// o que ele mesmo publicou
func (c *Consumer) CacheReceivedID(ctx context.Context, id uuid.UUID) error {
	_, err := c.dedup.Observe(ctx, id)
	return err
}

func (c *Consumer) Correlator() *Correlator {
	return c.correlator
}

// ConsumeString processa um envelope cru. O bool indica se houve despacho.
func (c *Consumer) ConsumeString(ctx context.Context, raw string) (bool, error) {
	env, err := Decode(raw)
	if err != nil {
		c.log.Warn().Err(err).Msg("rejecting envelope")
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fresh, err := c.observe(ctx, env.ID)
	if !fresh || err != nil {
		return false, err
	}

	msg, err := c.registry.Decode(env)
	if err != nil {
		if errors.Is(err, ErrNoDecoder) {
			c.log.Debug().Str("msg_id", env.ID.String()).Str("type", env.Type).Msg("no decoder, dropping")
		} else {
			c.log.Warn().Err(err).Str("msg_id", env.ID.String()).Str("type", env.Type).Msg("dropping undecodable message")
		}
		return false, err
	}

	return c.dispatch(ctx, msg)
}

// ConsumeMessage processa uma mensagem já decodificada (entrega local)
func (c *Consumer) ConsumeMessage(ctx context.Context, msg Message) (bool, error) {
	if msg == nil {
		return false, fmt.Errorf("%w: nil message", ErrMalformedEnvelope)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fresh, err := c.observe(ctx, msg.ID())
	if !fresh || err != nil {
		return false, err
	}
	return c.dispatch(ctx, msg)
}

func (c *Consumer) observe(ctx context.Context, id uuid.UUID) (bool, error) {
	fresh, err := c.dedup.Observe(ctx, id)
	if err != nil {
		c.log.Error().Err(err).Str("msg_id", id.String()).Msg("dedup unavailable")
		return false, fmt.Errorf("dedup: %w", err)
	}
	if !fresh {
		c.log.Debug().Str("msg_id", id.String()).Msg("duplicate delivery")
	}
	return fresh, nil
}

func (c *Consumer) dispatch(ctx context.Context, msg Message) (bool, error) {
	switch m := msg.(type) {
	case Update:
		return c.dispatchUpdate(ctx, m)
	case Response:
		if !c.correlator.ProcessRequest(m.RequestID(), m) {
			c.log.Debug().
				Str("msg_id", m.ID().String()).
				Str("request", m.RequestID().String()).
				Msg("unmatched response")
			return false, nil
		}
		return true, nil
	case Request:
		return c.dispatchRequest(ctx, m)
	default:
		return false, fmt.Errorf("%w: %T", ErrNoDecoder, msg)
	}
}

func (c *Consumer) dispatchUpdate(ctx context.Context, update Update) (bool, error) {
	c.handlersMu.RLock()
	handler, ok := c.handlers[update.Type()]
	c.handlersMu.RUnlock()

	if !ok {
		c.log.Error().Str("type", update.Type()).Msg("no internal consumer registered")
		return false, fmt.Errorf("%w: %s", ErrNoInternalConsumer, update.Type())
	}

	if err := handler(ctx, update); err != nil {
		c.log.Error().Err(err).Str("msg_id", update.ID().String()).Str("type", update.Type()).Msg("internal consumer failed")
		return true, err
	}
	return true, nil
}

func (c *Consumer) dispatchRequest(ctx context.Context, req Request) (bool, error) {
	if !c.responder {
		return false, nil
	}

	log := c.log.With().Str("msg_id", req.ID().String()).Str("type", req.Type()).Logger()

	// não bloqueia a entrega: a resposta sai quando o storage terminar
	req.Execute(ctx, c.executor).Then(func(resp Response, err error) {
		if err != nil {
			log.Error().Err(err).Msg("request execution failed")
			return
		}
		if err := c.publish(context.WithoutCancel(ctx), resp); err != nil {
			log.Error().Err(err).Msg("publish response failed")
			return
		}
		log.Debug().Bool("successful", resp.Succeeded()).Str("reason", resp.Reason()).Msg("response published")
	})
	return true, nil
}
