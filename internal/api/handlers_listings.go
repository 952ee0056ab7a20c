package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/diogoX451/bazaar/internal/api/dto"
	"github.com/diogoX451/bazaar/internal/core/domain"
	"github.com/diogoX451/bazaar/internal/messaging"
	"github.com/diogoX451/bazaar/internal/store"
	"github.com/diogoX451/bazaar/pkg/types"
)

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	list := s.market.Listings
	if r.URL.Query().Get("source") == "cache" {
		list = s.market.CachedListings
	}

	listings, err := list(r.Context())
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	resp := dto.ListingsResponse{Listings: make([]json.RawMessage, 0, len(listings))}
	for _, l := range listings {
		raw, err := types.EncodeListing(l)
		if err != nil {
			s.log.Warn().Err(err).Str("listing", l.GetID().String()).Msg("skipping unencodable listing")
			continue
		}
		resp.Listings = append(resp.Listings, raw)
	}
	resp.Count = len(resp.Listings)

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePublishListing(w http.ResponseWriter, r *http.Request) {
	var req dto.PublishListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Lister == uuid.Nil {
		respondError(w, http.StatusBadRequest, "INVALID_LISTING", "lister is required")
		return
	}

	duration := s.opts.ListingTime
	if req.Duration != "" {
		d, err := time.ParseDuration(req.Duration)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_DURATION", err.Error())
			return
		}
		duration = d
	}
	if req.Price.Kind == "" {
		req.Price.Kind = types.PriceCurrency
	}

	base := types.ListingBase{
		ID:         uuid.New(),
		Lister:     req.Lister,
		Entry:      req.Entry,
		Price:      req.Price,
		Expiration: time.Now().Add(duration),
	}

	var listing types.Listing
	switch req.Kind {
	case types.KindBuyItNow, "":
		listing = &types.BuyItNow{ListingBase: base}
	case types.KindAuction:
		listing = &types.Auction{ListingBase: base}
	default:
		respondError(w, http.StatusBadRequest, "INVALID_LISTING", "kind must be bin or auction")
		return
	}

	if err := s.market.Publish(r.Context(), listing); err != nil {
		s.respondFailure(w, err)
		return
	}

	raw, err := types.EncodeListing(listing)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ENCODE_FAILED", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, json.RawMessage(raw))
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	listing, err := s.market.Listing(r.Context(), id)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	raw, err := types.EncodeListing(listing)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "ENCODE_FAILED", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, json.RawMessage(raw))
}

func (s *Server) handleRemoveListing(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req dto.RemoveListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Actor == uuid.Nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "actor is required")
		return
	}

	result, err := s.market.Remove(r.Context(), types.RemoveRequest{
		Listing:       id,
		Actor:         req.Actor,
		Recipient:     req.Receiver,
		ShouldReceive: req.ShouldReceive,
	})
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, resultStatus(result.Successful), result)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req dto.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Actor == uuid.Nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "actor is required")
		return
	}

	result, err := s.market.Purchase(r.Context(), types.PurchaseRequest{Listing: id, Actor: req.Actor})
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, resultStatus(result.Successful), result)
}

func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req dto.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Actor == uuid.Nil || req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "actor and a positive amount are required")
		return
	}

	result, err := s.market.Bid(r.Context(), types.BidRequest{Listing: id, Actor: req.Actor, Amount: req.Amount})
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, resultStatus(result.Successful), result)
}

// Recusa de negócio volta 409 com o resultado completo
func resultStatus(successful bool) int {
	if successful {
		return http.StatusOK
	}
	return http.StatusConflict
}

// respondFailure traduz os erros do core em status HTTP
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrListingNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrDuplicateListing):
		respondError(w, http.StatusConflict, "DUPLICATE_LISTING", err.Error())
	case errors.Is(err, domain.ErrPriceOutOfBounds),
		errors.Is(err, domain.ErrDurationOutOfBounds),
		errors.Is(err, domain.ErrTooManyListings),
		errors.Is(err, domain.ErrInvalidListing):
		respondError(w, http.StatusUnprocessableEntity, "INVALID_LISTING", err.Error())
	case errors.Is(err, messaging.ErrRequestTimeout):
		respondError(w, http.StatusGatewayTimeout, "REQUEST_TIMEOUT", err.Error())
	case errors.Is(err, store.ErrStorageClosed):
		respondError(w, http.StatusServiceUnavailable, "STORAGE_CLOSED", err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}
