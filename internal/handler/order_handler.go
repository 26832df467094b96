package handler

import (
	"net/http"
	"strconv"

	"campus-eats/internal/model"
	"campus-eats/internal/qr"
	"campus-eats/internal/service"

	"github.com/rs/zerolog"
)

const (
	minQRSize = 64
	maxQRSize = 1024
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), a, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /api/orders requests for the staff queue.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	filter, err := orderFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidStatus, err.Error(), h.logger)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), a, filter)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := orderID(w, r, h.logger)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), a, id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Actions handles GET /api/orders/{id}/actions requests.
func (h *OrderHandler) Actions(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := orderID(w, r, h.logger)
	if !ok {
		return
	}

	resp, err := h.service.Actions(r.Context(), a, id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Transition handles POST /api/orders/{id}/transitions requests.
func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := orderID(w, r, h.logger)
	if !ok {
		return
	}

	var req model.TransitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.Transition(r.Context(), a, id, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// QRCode handles GET /api/orders/{id}/qr requests, rendering the pickup
// token as a PNG.
func (h *OrderHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := orderID(w, r, h.logger)
	if !ok {
		return
	}

	size, err := queryInt(r, "size", qr.DefaultImageSize)
	if err != nil || size < minQRSize || size > maxQRSize {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField,
			"size must be between "+strconv.Itoa(minQRSize)+" and "+strconv.Itoa(maxQRSize), h.logger)
		return
	}

	order, err := h.service.GetOrder(r.Context(), a, id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	png, err := qr.PNG(order.QRCode, size)
	if err != nil {
		h.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to render QR code")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to render QR code", h.logger)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// MyOrders handles GET /api/me/orders requests.
func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	resp, err := h.service.MyOrders(r.Context(), a)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Summary handles GET /api/staff/summary requests.
func (h *OrderHandler) Summary(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	summary, err := h.service.StaffSummary(r.Context(), a, r.URL.Query().Get("canteenId"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
