package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"talkregistration/internal/delivery/http/helpers"
	"talkregistration/internal/metrics"
)

// TotalsReporter summarizes the domain counters. Implemented by *metrics.Metrics.
type TotalsReporter interface {
	Totals() (metrics.Totals, error)
}

// HealthResponse is the data payload for GET /health.
type HealthResponse struct {
	Status      string          `json:"status"`
	Environment string          `json:"environment"`
	Timestamp   time.Time       `json:"timestamp"`
	Uptime      string          `json:"uptime"`
	Metrics     *metrics.Totals `json:"metrics,omitempty"`
}

// HealthController reports liveness.
type HealthController struct {
	Logger      *slog.Logger
	Environment string
	Totals      TotalsReporter
	startedAt   time.Time
	now         func() time.Time
}

// NewHealthController creates a HealthController. totals may be nil.
func NewHealthController(logger *slog.Logger, environment string, totals TotalsReporter) *HealthController {
	return &HealthController{
		Logger:      logger,
		Environment: environment,
		Totals:      totals,
		startedAt:   time.Now(),
		now:         time.Now,
	}
}

// Health godoc
// @Summary Health check
// @Description Liveness check with the running environment and a summary of registration and email counters.
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse "data contains status, environment, timestamp"
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	now := c.now()
	resp := HealthResponse{
		Status:      "ok",
		Environment: c.Environment,
		Timestamp:   now.UTC(),
		Uptime:      now.Sub(c.startedAt).Round(time.Second).String(),
	}
	if c.Totals != nil {
		totals, err := c.Totals.Totals()
		if err != nil {
			c.Logger.WarnContext(r.Context(), "gather metrics", "err", err)
		} else {
			resp.Metrics = &totals
		}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, resp)
}

// NotFound answers unmatched routes with the JSON envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "route "+r.Method+" "+r.URL.Path+" not found")
}
