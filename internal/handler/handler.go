package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"campus-eats/internal/lifecycle"
	"campus-eats/internal/middleware"
	"campus-eats/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 64 << 10

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps a service error onto an HTTP status and error code.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		code := model.ErrCodeInvalidTransition
		if te.Stale {
			code = model.ErrCodeStaleStatus
		}
		logger.Warn().Err(err).Str("code", code).Msg("transition rejected")
		writeJSON(w, http.StatusConflict, model.ErrorResponse{Error: code, Message: te.Error(), Current: te.Current})
		return
	}

	var de *model.DomainError
	if errors.As(err, &de) {
		status := statusForCode(de.Code)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("code", de.Code).Msg("service error")
		}
		writeError(w, status, de.Code, de.Message, logger)
		return
	}

	logger.Error().Err(err).Msg("unexpected service error")
	writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeInvalidJSON,
		model.ErrCodeMissingField,
		model.ErrCodeInvalidQuantity,
		model.ErrCodeInvalidStatus,
		model.ErrCodeMenuItemNotFound,
		model.ErrCodeUnknownCanteen:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidTransition,
		model.ErrCodeStaleStatus,
		model.ErrCodeDuplicateOrder,
		model.ErrCodeNotReady:
		return http.StatusConflict
	case model.ErrCodeScanUnreadable:
		return http.StatusUnprocessableEntity
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeRepository:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// actor returns the authenticated caller or writes 401.
func actor(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (model.Actor, bool) {
	a, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "authentication required", logger)
	}
	return a, ok
}

// orderID parses the {id} path value or writes 400.
func orderID(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (uuid.UUID, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "order ID is required", logger)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "invalid order ID format", logger)
		return uuid.Nil, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// orderFilter builds a filter from the status and canteenId query parameters.
func orderFilter(r *http.Request) (model.OrderFilter, error) {
	q := r.URL.Query()
	filter := model.OrderFilter{CanteenID: q.Get("canteenId")}
	if raw := q.Get("status"); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			return model.OrderFilter{}, err
		}
		filter.Status = status
	}
	return filter, nil
}
