package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	eventadapter "github.com/diogoX451/bazaar/internal/adapters/events"
	storeadapter "github.com/diogoX451/bazaar/internal/adapters/store"
	"github.com/diogoX451/bazaar/internal/api"
	"github.com/diogoX451/bazaar/internal/config"
	"github.com/diogoX451/bazaar/internal/core/domain"
	"github.com/diogoX451/bazaar/internal/core/ports"
	"github.com/diogoX451/bazaar/internal/core/service"
	"github.com/diogoX451/bazaar/internal/events"
	"github.com/diogoX451/bazaar/internal/events/memory"
	natsevents "github.com/diogoX451/bazaar/internal/events/nats"
	redisevents "github.com/diogoX451/bazaar/internal/events/redis"
	"github.com/diogoX451/bazaar/internal/logger"
	"github.com/diogoX451/bazaar/internal/messaging"
	"github.com/diogoX451/bazaar/internal/store"
	redisstore "github.com/diogoX451/bazaar/internal/store/redis"
	"github.com/diogoX451/bazaar/internal/store/sqlstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("bazaar-node", "info")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New("bazaar-node", cfg.App.LogLevel).With().Str("server", cfg.App.ServerID).Logger()

	// os defers de run fecham storage, redis e barramento antes do exit
	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("node stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("node stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.App.Responder {
		log.Warn().Msg("app.responder=false: this node does not execute requests; a responder node must be running on the bus")
	}

	// Storage: falha no Init derruba o nó
	impl, err := sqlstore.New(sqlstore.Config{
		Driver:               cfg.Storage.Driver,
		DSN:                  cfg.Storage.DSN,
		TablePrefix:          cfg.Storage.TablePrefix,
		MaxPoolSize:          cfg.Storage.MaxPoolSize,
		MinIdle:              cfg.Storage.MinIdle,
		MaxLifetime:          cfg.Storage.MaxLifetime,
		ConnectionTimeout:    cfg.Storage.ConnectionTimeout,
		IncrementRate:        cfg.Market.IncrementRate,
		MaxListingsPerLister: cfg.Market.MaxListingsPerUser,
	}, log)
	if err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}
	if err := impl.Init(ctx); err != nil {
		_ = impl.Shutdown()
		return fmt.Errorf("storage init: %w", err)
	}
	if report, err := impl.MigrateLegacy(ctx); err != nil {
		log.Error().Err(err).Msg("legacy migration failed")
	} else if report.Parsed > 0 {
		log.Info().
			Int("parsed", report.Parsed).
			Int("migrated", report.Migrated).
			Int("failed", report.Failed).
			Bool("dropped", report.Dropped).
			Msg("legacy listings migrated")
	}

	storage := store.NewAsync(impl, store.AsyncConfig{
		Workers:   cfg.Storage.Workers,
		QueueSize: cfg.Storage.QueueSize,
	}, log)
	defer storage.Close()

	// Redis, só quando algum componente usa
	var redisClient *redisstore.RedisStore
	if cfg.Messaging.DedupBackend == "redis" || cfg.Cache.Backend == "redis" {
		redisClient, err = redisstore.New(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Server:   cfg.App.ServerID,
		})
		if err != nil {
			return fmt.Errorf("redis connection: %w", err)
		}
		defer redisClient.Close()
	}

	// Barramento
	bus, err := newBus(cfg, log)
	if err != nil {
		return fmt.Errorf("bus connection: %w", err)
	}
	eventBus := eventadapter.NewEventBus(bus, cfg.Messaging.Subject)

	var dedup messaging.Deduplicator = messaging.NewLocalDedup(cfg.Messaging.DedupWindow, cfg.Messaging.DedupMax)
	if cfg.Messaging.DedupBackend == "redis" {
		dedup = storeadapter.NewDedup(redisClient, cfg.Messaging.DedupWindow)
	}

	opts := messaging.ConsumerOptions{
		Dedup:     dedup,
		Logger:    log,
		Responder: cfg.App.Responder,
	}
	if cfg.App.Responder {
		opts.Executor = storage
	}

	messenger, err := messaging.NewMessenger(eventBus, opts, cfg.App.RequestTimeout)
	if err != nil {
		_ = bus.Close()
		return fmt.Errorf("messenger setup: %w", err)
	}
	defer messenger.Close()

	// Core service
	var cache ports.ListingCache = service.NewMemoryCache()
	if cfg.Cache.Backend == "redis" {
		cache = storeadapter.NewListingCache(redisClient)
	}

	market := service.NewMarket(storage, messenger, cache, domain.Policy{
		MinPrice:           cfg.Market.MinPrice,
		MaxPrice:           cfg.Market.MaxPrice,
		MinDuration:        cfg.Market.ListingMinTime,
		MaxDuration:        cfg.Market.ListingMaxTime,
		MaxListingsPerUser: cfg.Market.MaxListingsPerUser,
		IncrementRate:      cfg.Market.IncrementRate,
	}, log)
	market.RegisterConsumers()

	if n, err := market.Sync(ctx); err != nil {
		log.Error().Err(err).Msg("initial sync failed")
	} else {
		log.Info().Int("listings", n).Msg("listing cache warmed")
	}

	if err := messenger.Start(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	server := api.NewServer(market, api.Options{
		ServerID:    cfg.App.ServerID,
		Storage:     storage.Meta().Driver,
		ListingTime: cfg.Market.ListingTime,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + cfg.App.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Bool("responder", cfg.App.Responder).Msg("node started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// só um nó expira listings, o mesmo que responde aos Requests
	if cfg.App.Responder {
		g.Go(func() error {
			return market.RunSweeper(gctx, cfg.App.ExpirySweep)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newBus(cfg *config.Config, log zerolog.Logger) (events.Bus, error) {
	switch cfg.Messaging.Service {
	case "memory":
		log.Warn().Msg("using in-process bus; other nodes will not see this one")
		return memory.New(), nil
	case "redis":
		return redisevents.New(redisevents.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
	default:
		var durable string
		if cfg.NATS.Durable {
			durable = "bazaar-" + cfg.App.ServerID
		}
		natsBus, err := natsevents.New(natsevents.Config{
			URL:           cfg.NATS.URL,
			Name:          "bazaar-" + cfg.App.ServerID,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			Durable:       durable,
		})
		if err != nil {
			return nil, err
		}
		if err := natsBus.SetupStreams(cfg.NATS.Stream, cfg.Messaging.Subject); err != nil {
			_ = natsBus.Close()
			return nil, err
		}
		return natsBus, nil
	}
}
