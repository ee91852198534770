package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/weatheroracle/internal/adapters/mq/queue"
	"github.com/okian/weatheroracle/internal/chain"
	"github.com/okian/weatheroracle/internal/domain/dedupe"
	"github.com/okian/weatheroracle/internal/domain/geo"
	"github.com/okian/weatheroracle/internal/ledger/weather"
)

// Request headers understood by POST /orders.
const (
	HeaderAccount        = "X-Account"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// OrderDependencies defines what the orders handler needs.
type OrderDependencies interface {
	dedupe.Deduper
	Submit(ctx context.Context, xt chain.Extrinsic) error
	WeatherOrder(ctx context.Context) (geo.Scaled, bool, error)
}

// OrdersHandler handles weather order requests.
type OrdersHandler struct {
	deps OrderDependencies
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(deps OrderDependencies) *OrdersHandler {
	return &OrdersHandler{deps: deps}
}

// orderRequest is the body of POST /orders. Coordinates are decimal
// strings; they are parsed when the extrinsic is dispatched.
type orderRequest struct {
	Lat  string `json:"lat"`
	Long string `json:"long"`
}

func (o orderRequest) validate() error {
	switch {
	case strings.TrimSpace(o.Lat) == "":
		return errors.New("missing lat")
	case strings.TrimSpace(o.Long) == "":
		return errors.New("missing long")
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	ID        string `json:"id,omitempty"`
}

// HandlePostOrder handles POST /orders requests.
func (h *OrdersHandler) HandlePostOrder(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_order"

	account := strings.TrimSpace(r.Header.Get(HeaderAccount))
	if account == "" {
		writeError(w, WrapKind(op, ErrBadRequest, errors.New("missing "+HeaderAccount+" header")))
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	// Keys are scoped per account.
	var key string
	if k := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey)); k != "" {
		key = account + "/" + k
		if h.deps.SeenAndRecord(r.Context(), key) {
			setOutcome(w, "duplicate")
			writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
			return
		}
	}

	xt := chain.NewExtrinsic(chain.Signed(account), weather.OrderWeatherData{Lat: req.Lat, Long: req.Long})
	if err := h.deps.Submit(r.Context(), xt); err != nil {
		if key != "" {
			h.deps.Unrecord(r.Context(), key)
		}
		switch {
		case errors.Is(err, queue.ErrFull):
			writeError(w, WrapKind(op, ErrBackpressure, err))
		case errors.Is(err, queue.ErrClosed):
			writeError(w, WrapKind(op, ErrUnavailable, err))
		default:
			writeError(w, WrapKind(op, ErrInternal, err))
		}
		return
	}
	setOutcome(w, "accepted")
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ID: xt.ID.String()})
}

type orderResponse struct {
	Lat    string `json:"lat"`
	Long   string `json:"long"`
	Scaled struct {
		Lat  int16 `json:"lat"`
		Long int16 `json:"long"`
	} `json:"scaled"`
}

// HandleGetOrder handles GET /order: the order stored by the best block.
func (h *OrdersHandler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_order"

	s, ok, err := h.deps.WeatherOrder(r.Context())
	if err != nil {
		writeError(w, WrapKind(op, ErrInternal, err))
		return
	}
	if !ok {
		writeError(w, NewKind(op, ErrNotFound))
		return
	}

	c := s.Unscale()
	var resp orderResponse
	resp.Lat, resp.Long = c.Lat, c.Long
	resp.Scaled.Lat, resp.Scaled.Long = s.Lat, s.Long
	writeJSON(w, http.StatusOK, resp)
}
