package handler

import (
	"context"
	"net/http"
	"strings"

	"campus-eats/internal/model"
	"campus-eats/internal/pickup"

	"github.com/rs/zerolog"
)

// ScanRequest is the payload sent by the staff scanner.
type ScanRequest struct {
	Code string `json:"code"`
}

// Scanner resolves scanner input to a pickup outcome.
type Scanner interface {
	Scan(ctx context.Context, raw string, actor model.Actor) (pickup.Result, error)
}

// PickupHandler handles the staff scan endpoint.
type PickupHandler struct {
	scanner Scanner
	logger  zerolog.Logger
}

// NewPickupHandler creates a new pickup handler.
func NewPickupHandler(scanner Scanner, logger zerolog.Logger) *PickupHandler {
	return &PickupHandler{
		scanner: scanner,
		logger:  logger.With().Str("handler", "pickup").Logger(),
	}
}

// Scan handles POST /api/pickup/scan requests.
func (h *PickupHandler) Scan(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	var req ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "code is required", h.logger)
		return
	}

	result, err := h.scanner.Scan(r.Context(), req.Code, a)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, statusForOutcome(result.Outcome), result)
}

func statusForOutcome(o pickup.Outcome) int {
	switch o {
	case pickup.OutcomeCompleted:
		return http.StatusOK
	case pickup.OutcomeNotReady:
		return http.StatusConflict
	case pickup.OutcomeNotFound:
		return http.StatusNotFound
	case pickup.OutcomeUnreadable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
