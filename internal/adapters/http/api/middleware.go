package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/weatheroracle/pkg/metrics"
)

const outcomeOK = "ok"

// instrument records request count, latency and outcome for endpoint.
// Handlers name their outcome with setOutcome; writeError uses the error
// code. Anything else is counted as "ok".
func instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &outcomeRecorder{ResponseWriter: w, status: http.StatusOK, outcome: outcomeOK}

		next(rec, r)

		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(time.Since(start).Milliseconds()))
		metrics.RecordAPIOutcome(endpoint, rec.outcome)
	}
}

// setOutcome labels the response when w is instrumented.
func setOutcome(w http.ResponseWriter, outcome string) {
	if rec, ok := w.(*outcomeRecorder); ok {
		rec.outcome = outcome
	}
}

// outcomeRecorder captures the status and outcome of a response.
type outcomeRecorder struct {
	http.ResponseWriter
	status  int
	outcome string
}

func (rw *outcomeRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
