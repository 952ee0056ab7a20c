package api

import (
	"net/http"

	"github.com/diogoX451/bazaar/internal/api/dto"
)

func (s *Server) handleSoldListings(w http.ResponseWriter, r *http.Request) {
	owner, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	sold, err := s.market.SoldFor(r.Context(), owner)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.SoldListingsResponse{Owner: owner, Sold: sold})
}

func (s *Server) handleClaimSold(w http.ResponseWriter, r *http.Request) {
	owner, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	listing, ok := uuidParam(w, r, "listing")
	if !ok {
		return
	}

	claimed, err := s.market.Claim(r.Context(), listing, owner)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	if !claimed {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no sold listing for that owner")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListIgnorers(w http.ResponseWriter, r *http.Request) {
	ignorers, err := s.market.Ignorers(r.Context())
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.IgnorersResponse{Ignorers: ignorers})
}

func (s *Server) handleAddIgnorer(w http.ResponseWriter, r *http.Request) {
	player, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := s.market.Ignore(r.Context(), player); err != nil {
		s.respondFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveIgnorer(w http.ResponseWriter, r *http.Request) {
	player, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	removed, err := s.market.Unignore(r.Context(), player)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "player is not ignoring the market")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
