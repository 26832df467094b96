package handler

import (
	"net/http"

	"campus-eats/internal/canteen"
	"campus-eats/internal/model"
	"campus-eats/internal/service"

	"github.com/rs/zerolog"
)

// MenuHandler handles menu and canteen HTTP requests.
type MenuHandler struct {
	service  service.MenuService
	canteens canteen.Validator
	logger   zerolog.Logger
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(service service.MenuService, canteens canteen.Validator, logger zerolog.Logger) *MenuHandler {
	return &MenuHandler{
		service:  service,
		canteens: canteens,
		logger:   logger.With().Str("handler", "menu").Logger(),
	}
}

// List handles GET /api/menu requests with pagination.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "invalid limit parameter", h.logger)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "invalid offset parameter", h.logger)
		return
	}

	items, err := h.service.ListMenu(r.Context(), r.URL.Query().Get("canteenId"), limit, offset)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// Canteens handles GET /api/canteens requests.
func (h *MenuHandler) Canteens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.canteens.Canteens())
}
