package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoX451/bazaar/internal/store"
	"github.com/diogoX451/bazaar/pkg/types"
)

// stubExecutor responde requests a partir de um conjunto de listings em memória
type stubExecutor struct {
	mu       sync.Mutex
	listings map[uuid.UUID]bool
}

func newStubExecutor(ids ...uuid.UUID) *stubExecutor {
	s := &stubExecutor{listings: make(map[uuid.UUID]bool)}
	for _, id := range ids {
		s.listings[id] = true
	}
	return s
}

func (s *stubExecutor) take(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.listings[id] {
		return false
	}
	delete(s.listings, id)
	return true
}

func (s *stubExecutor) ProcessListingRemoveRequest(_ context.Context, req types.RemoveRequest) *store.Future[types.RemoveResult] {
	res := types.RemoveResult{RemoveRequest: req, Successful: s.take(req.Listing)}
	if !res.Successful {
		res.Error = types.ReasonNoListing
	}
	return store.Completed(res)
}

func (s *stubExecutor) ProcessPurchase(_ context.Context, req types.PurchaseRequest) *store.Future[types.PurchaseResult] {
	res := types.PurchaseResult{PurchaseRequest: req, Successful: s.take(req.Listing)}
	if !res.Successful {
		res.Error = types.ReasonNoListing
	}
	return store.Completed(res)
}

func (s *stubExecutor) ProcessBid(_ context.Context, req types.BidRequest) *store.Future[types.BidResult] {
	return store.Completed(types.BidResult{BidRequest: req, Successful: true, HighBid: req.Amount})
}

func newTestConsumer(t *testing.T, opts ConsumerOptions) *Consumer {
	t.Helper()
	opts.Logger = zerolog.Nop()
	c, err := NewConsumer(opts)
	require.NoError(t, err)
	return c
}

func TestConsumerDeliversDuplicateOnce(t *testing.T) {
	c := newTestConsumer(t, ConsumerOptions{})

	var calls int
	c.RegisterInternalConsumer(TypeListingRemoved, func(ctx context.Context, u Update) error {
		calls++
		return nil
	})

	raw, err := EncodeMessage(NewListingRemoved(uuid.New(), uuid.New(), "expired"))
	require.NoError(t, err)

	dispatched, err := c.ConsumeString(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, dispatched)

	dispatched, err = c.ConsumeString(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, dispatched)

	assert.Equal(t, 1, calls)
}

func TestConsumerCachedIDIsSkipped(t *testing.T) {
	c := newTestConsumer(t, ConsumerOptions{})
	c.RegisterInternalConsumer(TypeListingRemoved, func(context.Context, Update) error {
		t.Fatal("own update must not be consumed")
		return nil
	})

	msg := NewListingRemoved(uuid.New(), uuid.New(), "")
	require.NoError(t, c.CacheReceivedID(context.Background(), msg.ID()))

	dispatched, err := c.ConsumeMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.False(t, dispatched)
}

func TestConsumerLastRegistrationWins(t *testing.T) {
	c := newTestConsumer(t, ConsumerOptions{})

	var got string
	c.RegisterInternalConsumer(TypeListingRemoved, func(context.Context, Update) error {
		got = "first"
		return nil
	})
	c.RegisterInternalConsumer(TypeListingRemoved, func(context.Context, Update) error {
		got = "second"
		return nil
	})

	_, err := c.ConsumeMessage(context.Background(), NewListingRemoved(uuid.New(), uuid.New(), ""))
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestConsumerRejections(t *testing.T) {
	c := newTestConsumer(t, ConsumerOptions{})
	ctx := context.Background()

	_, err := c.ConsumeString(ctx, `not json`)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)

	dispatched, err := c.ConsumeString(ctx, `{"id":"`+uuid.NewString()+`","type":"Auction - Snipe"}`)
	assert.ErrorIs(t, err, ErrNoDecoder)
	assert.False(t, dispatched)

	dispatched, err = c.ConsumeMessage(ctx, NewListingRemoved(uuid.New(), uuid.New(), ""))
	assert.ErrorIs(t, err, ErrNoInternalConsumer)
	assert.False(t, dispatched)
}

func TestConsumerRoutesResponseToCorrelator(t *testing.T) {
	correlator := NewCorrelator()
	c := newTestConsumer(t, ConsumerOptions{Correlator: correlator})

	request := uuid.New()
	responses := make(chan Response, 1)
	correlator.RegisterRequest(request, func(resp Response) { responses <- resp })

	raw, err := EncodeMessage(removalResponseFor(request))
	require.NoError(t, err)

	dispatched, err := c.ConsumeString(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, dispatched)

	resp := <-responses
	assert.Equal(t, request, resp.RequestID())

	// sem requisição pendente: descartada em silêncio
	raw, err = EncodeMessage(removalResponseFor(uuid.New()))
	require.NoError(t, err)
	dispatched, err = c.ConsumeString(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, dispatched)
}

func TestConsumerExecutesRequestsOnlyAsResponder(t *testing.T) {
	req := NewRemovalRequest(types.RemoveRequest{Listing: uuid.New(), Actor: uuid.New(), ShouldReceive: true})
	raw, err := EncodeMessage(req)
	require.NoError(t, err)

	passive := newTestConsumer(t, ConsumerOptions{})
	dispatched, err := passive.ConsumeString(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, dispatched)

	published := make(chan Response, 1)
	responder := newTestConsumer(t, ConsumerOptions{
		Responder: true,
		Executor:  newStubExecutor(),
		Publish: func(ctx context.Context, resp Response) error {
			published <- resp
			return nil
		},
	})

	dispatched, err = responder.ConsumeString(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, dispatched)

	select {
	case resp := <-published:
		removal, ok := resp.(*RemovalResponse)
		require.True(t, ok)
		assert.Equal(t, req.ID(), removal.RequestID())
		assert.False(t, removal.Result.Successful)
		assert.Equal(t, types.ReasonNoListing, removal.Result.Error)
		assert.Equal(t, req.Listing, removal.Result.Listing)
		assert.Equal(t, req.Actor, removal.Result.Actor)
		assert.True(t, removal.Result.ShouldReceive)
	case <-time.After(time.Second):
		t.Fatal("response never published")
	}
}

func TestResponderRequiresDependencies(t *testing.T) {
	_, err := NewConsumer(ConsumerOptions{Responder: true})
	assert.Error(t, err)
}

// busyExecutor segura os resultados até o teste liberar
type busyExecutor struct {
	stubExecutor
	pending chan *store.Future[types.RemoveResult]
}

func (b *busyExecutor) ProcessListingRemoveRequest(_ context.Context, req types.RemoveRequest) *store.Future[types.RemoveResult] {
	f := store.NewFuture[types.RemoveResult]()
	b.pending <- f
	return f
}

func TestConsumerRequestDoesNotWaitForStorage(t *testing.T) {
	executor := &busyExecutor{pending: make(chan *store.Future[types.RemoveResult], 1)}
	published := make(chan Response, 1)
	c := newTestConsumer(t, ConsumerOptions{
		Responder: true,
		Executor:  executor,
		Publish: func(_ context.Context, resp Response) error {
			published <- resp
			return nil
		},
	})

	req := NewRemovalRequest(types.RemoveRequest{Listing: uuid.New(), Actor: uuid.New()})
	start := time.Now()
	handled, err := c.ConsumeMessage(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	// outra mensagem entra enquanto o storage ainda trabalha
	handled, err = c.ConsumeMessage(context.Background(), NewBidRequest(types.BidRequest{Listing: uuid.New(), Actor: uuid.New(), Amount: 1}))
	require.NoError(t, err)
	assert.True(t, handled)
	<-published

	f := <-executor.pending
	f.Complete(types.RemoveResult{RemoveRequest: req.RemoveRequest, Error: types.ReasonNoListing}, nil)

	select {
	case resp := <-published:
		assert.Equal(t, req.ID(), resp.RequestID())
	case <-time.After(time.Second):
		t.Fatal("response not published")
	}
}
