package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"github.com/diogoX451/bazaar/pkg/types"
)

type AsyncConfig struct {
	Workers   int
	QueueSize int
}

// Async expõe a Implementation como operações não bloqueantes.
// Cada chamada entra numa fila e roda num pool limitado; erro, panic ou
// fila cheia viram future falhada. Nenhuma chamada espera por I/O.
type Async struct {
	impl Implementation
	log  zerolog.Logger

	jobs chan func()
	pool *pool.Pool
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsync(impl Implementation, cfg AsyncConfig, log zerolog.Logger) *Async {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	a := &Async{
		impl: impl,
		log:  log.With().Str("component", "storage").Str("backend", impl.Name()).Logger(),
		jobs: make(chan func(), cfg.QueueSize),
		pool: pool.New().WithMaxGoroutines(cfg.Workers),
		done: make(chan struct{}),
	}
	go a.dispatch()
	return a
}

func (a *Async) dispatch() {
	defer close(a.done)
	for job := range a.jobs {
		a.pool.Go(job)
	}
	a.pool.Wait()
}

// Close para de aceitar operações, espera as pendentes e encerra o backend
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.jobs)
	a.mu.Unlock()

	<-a.done
	return a.impl.Shutdown()
}

func (a *Async) Meta() Meta {
	return a.impl.Meta()
}

func submit[T any](a *Async, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := NewFuture[T]()

	job := func() {
		if err := ctx.Err(); err != nil {
			var zero T
			f.Complete(zero, fmt.Errorf("%s: %w", op, err))
			return
		}

		var (
			v   T
			err error
		)
		var pc panics.Catcher
		pc.Try(func() { v, err = fn(ctx) })

		if r := pc.Recovered(); r != nil {
			a.log.Error().Str("op", op).Interface("panic", r.Value).Msg("storage operation panicked")
			var zero T
			f.Complete(zero, fmt.Errorf("%s: %w", op, r.AsError()))
			return
		}
		if err != nil {
			f.Complete(v, fmt.Errorf("%s: %w", op, err))
			return
		}
		f.Complete(v, nil)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return Failed[T](fmt.Errorf("%s: %w", op, ErrStorageClosed))
	}
	// a fila cheia falha na hora: quem chama pode ser a thread de entrega
	select {
	case a.jobs <- job:
		return f
	default:
		a.log.Warn().Str("op", op).Msg("storage queue full")
		return Failed[T](fmt.Errorf("%s: %w", op, ErrQueueFull))
	}
}

func (a *Async) AddListing(ctx context.Context, listing types.Listing) *Future[bool] {
	return submit(a, ctx, "add listing", func(ctx context.Context) (bool, error) {
		return a.impl.AddListing(ctx, listing)
	})
}

func (a *Async) GetListing(ctx context.Context, id uuid.UUID) *Future[types.Listing] {
	return submit(a, ctx, "get listing", func(ctx context.Context) (types.Listing, error) {
		return a.impl.GetListing(ctx, id)
	})
}

func (a *Async) GetListings(ctx context.Context) *Future[ListingsResult] {
	return submit(a, ctx, "get listings", func(ctx context.Context) (ListingsResult, error) {
		return a.impl.GetListings(ctx)
	})
}

func (a *Async) UpdateListing(ctx context.Context, listing types.Listing) *Future[bool] {
	return submit(a, ctx, "update listing", func(ctx context.Context) (bool, error) {
		return a.impl.UpdateListing(ctx, listing)
	})
}

func (a *Async) DeleteListing(ctx context.Context, id uuid.UUID) *Future[bool] {
	return submit(a, ctx, "delete listing", func(ctx context.Context) (bool, error) {
		return a.impl.DeleteListing(ctx, id)
	})
}

func (a *Async) Purge(ctx context.Context, now time.Time) *Future[[]types.Listing] {
	return submit(a, ctx, "purge", func(ctx context.Context) ([]types.Listing, error) {
		return a.impl.Purge(ctx, now)
	})
}

func (a *Async) AddIgnorer(ctx context.Context, player uuid.UUID) *Future[bool] {
	return submit(a, ctx, "add ignorer", func(ctx context.Context) (bool, error) {
		return a.impl.AddIgnorer(ctx, player)
	})
}

func (a *Async) RemoveIgnorer(ctx context.Context, player uuid.UUID) *Future[bool] {
	return submit(a, ctx, "remove ignorer", func(ctx context.Context) (bool, error) {
		return a.impl.RemoveIgnorer(ctx, player)
	})
}

func (a *Async) GetAllIgnorers(ctx context.Context) *Future[[]uuid.UUID] {
	return submit(a, ctx, "get ignorers", func(ctx context.Context) ([]uuid.UUID, error) {
		return a.impl.GetAllIgnorers(ctx)
	})
}

func (a *Async) AddToSoldListings(ctx context.Context, owner uuid.UUID, sold types.SoldListing) *Future[bool] {
	return submit(a, ctx, "add sold listing", func(ctx context.Context) (bool, error) {
		return a.impl.AddToSoldListings(ctx, owner, sold)
	})
}

func (a *Async) GetAllSoldListingsForPlayer(ctx context.Context, owner uuid.UUID) *Future[[]types.SoldListing] {
	return submit(a, ctx, "get sold listings", func(ctx context.Context) ([]types.SoldListing, error) {
		return a.impl.GetAllSoldListingsForPlayer(ctx, owner)
	})
}

func (a *Async) DeleteSoldListing(ctx context.Context, id, owner uuid.UUID) *Future[bool] {
	return submit(a, ctx, "delete sold listing", func(ctx context.Context) (bool, error) {
		return a.impl.DeleteSoldListing(ctx, id, owner)
	})
}

func (a *Async) ProcessBid(ctx context.Context, req types.BidRequest) *Future[types.BidResult] {
	return submit(a, ctx, "process bid", func(ctx context.Context) (types.BidResult, error) {
		return a.impl.ProcessBid(ctx, req)
	})
}

func (a *Async) ProcessPurchase(ctx context.Context, req types.PurchaseRequest) *Future[types.PurchaseResult] {
	return submit(a, ctx, "process purchase", func(ctx context.Context) (types.PurchaseResult, error) {
		return a.impl.ProcessPurchase(ctx, req)
	})
}

func (a *Async) ProcessListingRemoveRequest(ctx context.Context, req types.RemoveRequest) *Future[types.RemoveResult] {
	return submit(a, ctx, "process remove request", func(ctx context.Context) (types.RemoveResult, error) {
		return a.impl.ProcessListingRemoveRequest(ctx, req)
	})
}
