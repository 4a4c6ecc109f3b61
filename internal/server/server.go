// Package server exposes the calculators, the odds store and tracked
// positions over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"polydelta/internal/assistant"
	"polydelta/internal/config"
	"polydelta/internal/metrics"
	"polydelta/internal/polymarket"
	"polydelta/internal/positions"
	"polydelta/internal/store"
)

// PositionStore is the subset of positions.DB the API needs.
type PositionStore interface {
	AddPosition(pos positions.Position) (positions.Position, error)
	GetPosition(id string) (*positions.Position, error)
	GetAllPositions() ([]positions.Position, error)
	GetPositionsBySport(sport string) ([]positions.Position, error)
	DeletePosition(id string) error
}

// DepthSource reports order book depth near a price.
type DepthSource interface {
	Depth(ctx context.Context, tokenID string, price float64, side polymarket.Side) (float64, error)
}

// Deps are the collaborators of the API. Positions, Depth and Assistant
// may be nil; the endpoints that need them then answer 503.
type Deps struct {
	Store     store.Provider
	Positions PositionStore
	Depth     DepthSource
	Assistant assistant.Assistant
	Metrics   *metrics.Metrics
	Config    config.Config
	Logger    *slog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	store     store.Provider
	positions PositionStore
	depth     DepthSource
	assistant assistant.Assistant
	metrics   *metrics.Metrics
	cfg       config.Config
	log       *slog.Logger

	chatLimiter *rate.Limiter
}

// New creates a Server.
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := d.Metrics
	if m == nil {
		m = metrics.New()
	}

	perMin := d.Config.ChatRatePerMin
	if perMin <= 0 {
		perMin = config.DefaultChatRatePerMin
	}

	return &Server{
		store:       d.Store,
		positions:   d.Positions,
		depth:       d.Depth,
		assistant:   d.Assistant,
		metrics:     m,
		cfg:         d.Config,
		log:         logger,
		chatLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
	}
}

// Router builds the chi router with middleware and every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.instrument)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/markets", s.ListMarkets)
		r.Get("/markets/{id}", s.GetMarket)
		r.Get("/markets/{id}/history", s.MarketHistory)
		r.Get("/matches", s.ListMatches)
		r.Get("/matches/{matchID}/history", s.MatchHistory)
		r.Get("/value-bets", s.ValueBets)

		r.Route("/calc", func(r chi.Router) {
			r.Post("/ev", s.CalcEV)
			r.Post("/kelly", s.CalcKelly)
			r.Post("/hedge", s.CalcHedge)
			r.Post("/roi", s.CalcROI)
			r.Post("/cashout", s.CalcCashOut)
			r.Post("/devig", s.CalcDevig)
		})

		r.Get("/positions", s.ListPositions)
		r.Post("/positions", s.AddPosition)
		r.Delete("/positions/{id}", s.DeletePosition)
		r.Get("/positions/{id}/cashout", s.PositionCashOut)

		r.Post("/chat", s.Chat)
	})

	return r
}

// instrument records request latency by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordHTTP(route, r.Method, strconv.Itoa(status), time.Since(start).Seconds())
	})
}

// HealthCheck returns service health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "polydelta",
	})
}

// storeError maps store and position errors to a status code.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, positions.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error("Request failed", "error", err)
	respondError(w, http.StatusInternalServerError, "internal error")
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondInsufficient is the 422 answer for inputs a calculator cannot use.
func respondInsufficient(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
		"error":  message,
		"status": "insufficient_data",
	})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
