package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogoX451/bazaar/internal/api/dto"
	"github.com/diogoX451/bazaar/internal/core/domain"
	"github.com/diogoX451/bazaar/internal/messaging"
	"github.com/diogoX451/bazaar/internal/store"
	"github.com/diogoX451/bazaar/pkg/types"
)

type fakeMarket struct {
	listings  map[uuid.UUID]types.Listing
	published []types.Listing
	ignorers  []uuid.UUID
	sold      map[uuid.UUID][]types.SoldListing

	publishErr error
	requestErr error
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		listings: make(map[uuid.UUID]types.Listing),
		sold:     make(map[uuid.UUID][]types.SoldListing),
	}
}

func (f *fakeMarket) Publish(_ context.Context, l types.Listing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, l)
	f.listings[l.GetID()] = l
	return nil
}

func (f *fakeMarket) Listings(context.Context) ([]types.Listing, error) {
	out := make([]types.Listing, 0, len(f.listings))
	for _, l := range f.listings {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeMarket) CachedListings(ctx context.Context) ([]types.Listing, error) {
	return f.Listings(ctx)
}

func (f *fakeMarket) Listing(_ context.Context, id uuid.UUID) (types.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return nil, fmt.Errorf("get listing: %w", store.ErrListingNotFound)
	}
	return l, nil
}

func (f *fakeMarket) Purchase(_ context.Context, req types.PurchaseRequest) (types.PurchaseResult, error) {
	if f.requestErr != nil {
		return types.PurchaseResult{PurchaseRequest: req}, f.requestErr
	}
	l, ok := f.listings[req.Listing]
	if !ok {
		return types.PurchaseResult{PurchaseRequest: req, Error: types.ReasonNoListing}, nil
	}
	delete(f.listings, req.Listing)
	return types.PurchaseResult{PurchaseRequest: req, Successful: true, Seller: l.GetLister(), Price: l.GetPrice().Amount}, nil
}

func (f *fakeMarket) Bid(_ context.Context, req types.BidRequest) (types.BidResult, error) {
	if req.Amount < 100 {
		return types.BidResult{BidRequest: req, Error: types.ReasonBidTooLow, HighBid: 100}, nil
	}
	return types.BidResult{BidRequest: req, Successful: true, HighBid: req.Amount}, nil
}

func (f *fakeMarket) Remove(_ context.Context, req types.RemoveRequest) (types.RemoveResult, error) {
	if _, ok := f.listings[req.Listing]; !ok {
		return types.RemoveResult{RemoveRequest: req, Error: types.ReasonNoListing}, nil
	}
	delete(f.listings, req.Listing)
	return types.RemoveResult{RemoveRequest: req, Successful: true}, nil
}

func (f *fakeMarket) SoldFor(_ context.Context, owner uuid.UUID) ([]types.SoldListing, error) {
	return f.sold[owner], nil
}

func (f *fakeMarket) Claim(_ context.Context, id, owner uuid.UUID) (bool, error) {
	for i, s := range f.sold[owner] {
		if s.ID == id {
			f.sold[owner] = append(f.sold[owner][:i], f.sold[owner][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMarket) Ignore(_ context.Context, player uuid.UUID) error {
	f.ignorers = append(f.ignorers, player)
	return nil
}

func (f *fakeMarket) Unignore(_ context.Context, player uuid.UUID) (bool, error) {
	for i, p := range f.ignorers {
		if p == player {
			f.ignorers = append(f.ignorers[:i], f.ignorers[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMarket) Ignorers(context.Context) ([]uuid.UUID, error) {
	return f.ignorers, nil
}

func newTestServer(market *fakeMarket) *Server {
	return NewServer(market, Options{ServerID: "node-test", Storage: "sql", Logger: zerolog.Nop()})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func seedBIN(f *fakeMarket) *types.BuyItNow {
	l := &types.BuyItNow{ListingBase: types.ListingBase{
		ID:         uuid.New(),
		Lister:     uuid.New(),
		Entry:      types.Entry{Type: "item", Name: "Totem"},
		Price:      types.CurrencyPrice(30),
		Expiration: time.Now().Add(time.Hour),
	}}
	f.listings[l.ID] = l
	return l
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(newFakeMarket()), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "node-test", resp.Server)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestListAndGetListing(t *testing.T) {
	market := newFakeMarket()
	l := seedBIN(market)
	s := newTestServer(market)

	rec := do(t, s, http.MethodGet, "/api/v1/listings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list dto.ListingsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Equal(t, 1, list.Count)

	decoded, err := types.DecodeListing(list.Listings[0])
	require.NoError(t, err)
	assert.Equal(t, l.ID, decoded.GetID())

	rec = do(t, s, http.MethodGet, "/api/v1/listings/"+l.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/listings/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/listings/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishListing(t *testing.T) {
	market := newFakeMarket()
	s := newTestServer(market)
	lister := uuid.New()

	body := fmt.Sprintf(`{"kind":"auction","lister":%q,"entry":{"type":"pokemon","name":"Eevee"},"price":{"amount":15},"duration":"2h"}`, lister)
	rec := do(t, s, http.MethodPost, "/api/v1/listings", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, market.published, 1)
	auction, ok := market.published[0].(*types.Auction)
	require.True(t, ok)
	assert.Equal(t, lister, auction.Lister)
	assert.Equal(t, types.PriceCurrency, auction.Price.Kind)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), auction.Expiration, time.Minute)

	rec = do(t, s, http.MethodPost, "/api/v1/listings", `{"kind":"raffle","lister":"`+lister.String()+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	market.publishErr = fmt.Errorf("validate: %w", domain.ErrTooManyListings)
	rec = do(t, s, http.MethodPost, "/api/v1/listings", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPurchaseListing(t *testing.T) {
	market := newFakeMarket()
	l := seedBIN(market)
	s := newTestServer(market)
	body := fmt.Sprintf(`{"actor":%q}`, uuid.New())

	rec := do(t, s, http.MethodPost, "/api/v1/listings/"+l.ID.String()+"/purchase", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var result types.PurchaseResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.True(t, result.Successful)
	assert.Equal(t, l.Lister, result.Seller)

	rec = do(t, s, http.MethodPost, "/api/v1/listings/"+l.ID.String()+"/purchase", body)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, types.ReasonNoListing, result.Error)

	market.requestErr = fmt.Errorf("purchase: %w", messaging.ErrRequestTimeout)
	rec = do(t, s, http.MethodPost, "/api/v1/listings/"+l.ID.String()+"/purchase", body)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/listings/"+l.ID.String()+"/purchase", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBidAndRemove(t *testing.T) {
	market := newFakeMarket()
	l := seedBIN(market)
	s := newTestServer(market)
	actor := uuid.New()

	rec := do(t, s, http.MethodPost, "/api/v1/listings/"+l.ID.String()+"/bids", fmt.Sprintf(`{"actor":%q,"amount":50}`, actor))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/listings/"+l.ID.String()+"/bids", fmt.Sprintf(`{"actor":%q,"amount":150}`, actor))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/listings/"+l.ID.String()+"/remove", fmt.Sprintf(`{"actor":%q,"should_receive":true}`, l.Lister))
	require.Equal(t, http.StatusOK, rec.Code)
	var result types.RemoveResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.True(t, result.ShouldReceive)
	assert.Equal(t, l.ID, result.Listing)
}

func TestSoldAndIgnorers(t *testing.T) {
	market := newFakeMarket()
	s := newTestServer(market)
	owner, sold := uuid.New(), uuid.New()
	market.sold[owner] = []types.SoldListing{{ID: sold, NameOfEntry: "Totem", MoneyReceived: 30}}

	rec := do(t, s, http.MethodGet, "/api/v1/players/"+owner.String()+"/sold", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var soldResp dto.SoldListingsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&soldResp))
	assert.Len(t, soldResp.Sold, 1)

	rec = do(t, s, http.MethodDelete, "/api/v1/players/"+owner.String()+"/sold/"+sold.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodDelete, "/api/v1/players/"+owner.String()+"/sold/"+sold.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	player := uuid.New()
	rec = do(t, s, http.MethodPut, "/api/v1/ignorers/"+player.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/ignorers", "")
	var ignorers dto.IgnorersResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ignorers))
	assert.Equal(t, []uuid.UUID{player}, ignorers.Ignorers)

	rec = do(t, s, http.MethodDelete, "/api/v1/ignorers/"+player.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodDelete, "/api/v1/ignorers/"+player.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
