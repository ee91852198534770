package api

import (
	"context"
	"net/http"

	"github.com/okian/weatheroracle/internal/domain/fixedpoint"
)

// WeatherDependencies reads the stored reading.
type WeatherDependencies interface {
	StoredInherentData(ctx context.Context) (fixedpoint.Permill, bool, error)
}

// WeatherHandler handles weather reading requests.
type WeatherHandler struct {
	deps WeatherDependencies
}

// NewWeatherHandler creates a new weather handler.
func NewWeatherHandler(deps WeatherDependencies) *WeatherHandler {
	return &WeatherHandler{deps: deps}
}

// HandleGetWeather handles GET /weather: the reading in the best block.
func (h *WeatherHandler) HandleGetWeather(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_weather"

	p, ok, err := h.deps.StoredInherentData(r.Context())
	if err != nil {
		writeError(w, WrapKind(op, ErrInternal, err))
		return
	}
	if !ok {
		writeError(w, NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
