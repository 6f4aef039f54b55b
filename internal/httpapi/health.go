package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gobeaver/intake"
)

// readyTimeout bounds each dependency check of the readiness probe.
const readyTimeout = 2 * time.Second

// HealthHandler serves the liveness and readiness probes and the metrics.
type HealthHandler struct {
	checkers    []intake.ReadinessChecker
	promHandler http.Handler
}

// NewHealthHandler creates a health handler over the given dependency checks.
func NewHealthHandler(checkers ...intake.ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		checkers:    checkers,
		promHandler: promhttp.Handler(),
	}
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Service   string                 `json:"service"`
	Checks    map[string]checkResult `json:"checks,omitempty"`
}

// HealthLive reports that the process is up.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "intake",
	})
}

// HealthReady runs every dependency check and answers 503 if any fails.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "intake",
		Checks:    make(map[string]checkResult, len(h.checkers)),
	}

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		err := c.CheckReady(ctx)
		cancel()

		if err != nil {
			resp.Status = "fail"
			resp.Checks[c.Name()] = checkResult{Status: "fail", Message: err.Error()}
			continue
		}
		resp.Checks[c.Name()] = checkResult{Status: "ok"}
	}

	status := http.StatusOK
	if resp.Status == "fail" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// Metrics serves the Prometheus registry.
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}
