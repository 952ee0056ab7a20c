package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diogoX451/bazaar/internal/api/dto"
	"github.com/diogoX451/bazaar/internal/core/service"
	"github.com/diogoX451/bazaar/pkg/types"
)

const version = "0.1.0"

// Market é o que a API usa do serviço de mercado
type Market interface {
	Publish(ctx context.Context, listing types.Listing) error
	Listings(ctx context.Context) ([]types.Listing, error)
	CachedListings(ctx context.Context) ([]types.Listing, error)
	Listing(ctx context.Context, id uuid.UUID) (types.Listing, error)

	Purchase(ctx context.Context, req types.PurchaseRequest) (types.PurchaseResult, error)
	Bid(ctx context.Context, req types.BidRequest) (types.BidResult, error)
	Remove(ctx context.Context, req types.RemoveRequest) (types.RemoveResult, error)

	SoldFor(ctx context.Context, owner uuid.UUID) ([]types.SoldListing, error)
	Claim(ctx context.Context, id, owner uuid.UUID) (bool, error)

	Ignore(ctx context.Context, player uuid.UUID) error
	Unignore(ctx context.Context, player uuid.UUID) (bool, error)
	Ignorers(ctx context.Context) ([]uuid.UUID, error)
}

var _ Market = (*service.Market)(nil)

type Options struct {
	ServerID    string
	Storage     string
	ListingTime time.Duration
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// Server encapsula todas dependências da API
type Server struct {
	router *chi.Mux
	market Market
	opts   Options
	log    zerolog.Logger
}

// NewServer cria server com dependências injetadas
func NewServer(market Market, opts Options) *Server {
	if opts.ListingTime <= 0 {
		opts.ListingTime = 24 * time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	s := &Server{
		router: chi.NewRouter(),
		market: market,
		opts:   opts,
		log:    opts.Logger.With().Str("component", "api").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.opts.Timeout))
	s.router.Use(jsonContentType)
}

func (s *Server) setupRoutes() {
	// Health
	s.router.Get("/health", s.handleHealth)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Listings
		r.Get("/listings", s.handleListListings)
		r.Post("/listings", s.handlePublishListing)
		r.Get("/listings/{id}", s.handleGetListing)
		r.Post("/listings/{id}/remove", s.handleRemoveListing)
		r.Post("/listings/{id}/purchase", s.handlePurchase)
		r.Post("/listings/{id}/bids", s.handleBid)

		// Players
		r.Get("/players/{id}/sold", s.handleSoldListings)
		r.Delete("/players/{id}/sold/{listing}", s.handleClaimSold)

		// Ignorers
		r.Get("/ignorers", s.handleListIgnorers)
		r.Put("/ignorers/{id}", s.handleAddIgnorer)
		r.Delete("/ignorers/{id}", s.handleRemoveIgnorer)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler: Health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, dto.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   version,
		Server:    s.opts.ServerID,
		Storage:   s.opts.Storage,
	})
}

// Middleware: log de acesso no zerolog
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

// Helper: JSON content-type
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Helper: Responder JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: Responder erro
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// Helper: UUID do path
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
