// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/weatheroracle/internal/chain"
	"github.com/okian/weatheroracle/internal/domain/dedupe"
	"github.com/okian/weatheroracle/internal/domain/fixedpoint"
	"github.com/okian/weatheroracle/internal/domain/geo"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Submit hands a signed extrinsic to the transaction pool.
	Submit(ctx context.Context, xt chain.Extrinsic) error

	// Ledger reads against the best block's state.
	WeatherOrder(ctx context.Context) (geo.Scaled, bool, error)
	StoredInherentData(ctx context.Context) (fixedpoint.Permill, bool, error)

	// Block history.
	LatestBlock(ctx context.Context) (*chain.Block, error)
	BlockByNumber(ctx context.Context, number uint64) (*chain.Block, error)
}

// Server wires HTTP routes for the node API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	ordersHandler  *OrdersHandler
	weatherHandler *WeatherHandler
	blocksHandler  *BlocksHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		ordersHandler:  NewOrdersHandler(deps),
		weatherHandler: NewWeatherHandler(deps),
		blocksHandler:  NewBlocksHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.HandleFunc("/healthz", instrument("healthz", s.healthHandler.HandleHealth)).Methods(http.MethodGet)
	r.Handle("/metrics", s.healthHandler.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/stats", instrument("stats", s.statsHandler.HandleStats)).Methods(http.MethodGet)
	r.HandleFunc("/orders", instrument("orders", s.ordersHandler.HandlePostOrder)).Methods(http.MethodPost)
	r.HandleFunc("/order", instrument("order", s.ordersHandler.HandleGetOrder)).Methods(http.MethodGet)
	r.HandleFunc("/weather", instrument("weather", s.weatherHandler.HandleGetWeather)).Methods(http.MethodGet)
	// Specific paths first.
	r.HandleFunc("/blocks/latest", instrument("blocks_latest", s.blocksHandler.HandleLatest)).Methods(http.MethodGet)
	r.HandleFunc("/blocks/{number:[0-9]+}", instrument("blocks", s.blocksHandler.HandleByNumber)).Methods(http.MethodGet)
}

// Router builds a router with every route registered.
func (s *Server) Router(ctx context.Context) *mux.Router {
	r := mux.NewRouter()
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status and code of its kind.
func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	setOutcome(w, code)
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}
