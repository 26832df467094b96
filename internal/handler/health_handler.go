package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Store         string `json:"store"`
	Subscriptions int    `json:"subscriptions"`
}

// HealthHandler reports liveness and store reachability.
type HealthHandler struct {
	ping   func(ctx context.Context) error
	active func() int
	logger zerolog.Logger
}

// NewHealthHandler creates a health handler. ping may be nil when the store
// has nothing to ping.
func NewHealthHandler(ping func(ctx context.Context) error, active func() int, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		ping:   ping,
		active: active,
		logger: logger.With().Str("handler", "health").Logger(),
	}
}

// Check handles GET /health requests.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Store: "ok", Subscriptions: h.active()}

	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("store ping failed")
			resp.Status = "degraded"
			resp.Store = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
