package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	eventadapter "github.com/diogoX451/bazaar/internal/adapters/events"
	"github.com/diogoX451/bazaar/internal/config"
	"github.com/diogoX451/bazaar/internal/events/nats"
	"github.com/diogoX451/bazaar/internal/messaging"
	"github.com/diogoX451/bazaar/pkg/types"
)

// Manda um pedido de remoção para um listing aleatório e imprime a resposta.
// Precisa de um nó responder rodando no mesmo subject.
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	bus, err := nats.New(nats.Config{
		URL:           cfg.NATS.URL,
		Name:          "bazaar-test-bus",
		MaxReconnects: cfg.NATS.MaxReconnects,
	})
	if err != nil {
		return err
	}

	// Setup streams
	if err := bus.SetupStreams(cfg.NATS.Stream, cfg.Messaging.Subject); err != nil {
		_ = bus.Close()
		return fmt.Errorf("setup streams: %w", err)
	}
	fmt.Println("✅ Stream pronto:", cfg.NATS.Stream)

	messenger, err := messaging.NewMessenger(
		eventadapter.NewEventBus(bus, cfg.Messaging.Subject),
		messaging.ConsumerOptions{Logger: zerolog.Nop()},
		5*time.Second,
	)
	if err != nil {
		_ = bus.Close()
		return err
	}
	defer messenger.Close()

	ctx := context.Background()
	if err := messenger.Start(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	req := messaging.NewRemovalRequest(types.RemoveRequest{
		Listing:       uuid.New(),
		Actor:         uuid.New(),
		ShouldReceive: true,
	})
	fmt.Println("⏳ Enviando", req.Type(), req.ID())

	resp, err := messaging.Send[*messaging.RemovalResponse](ctx, messenger, req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}

	fmt.Printf("✅ Resposta %s: successful=%v error=%q\n", resp.ID(), resp.Result.Successful, resp.Result.Error)
	return nil
}
