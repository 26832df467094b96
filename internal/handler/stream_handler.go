package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"campus-eats/internal/lifecycle"
	"campus-eats/internal/livesync"
	"campus-eats/internal/model"
	"campus-eats/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const heartbeatInterval = 15 * time.Second

// LiveViews opens live order subscriptions.
type LiveViews interface {
	SubscribeOrders(ctx context.Context, filter model.OrderFilter) (*livesync.Subscription[[]model.Order], error)
	SubscribeOrder(ctx context.Context, id uuid.UUID) (*livesync.Subscription[*model.Order], error)
}

// StreamHandler serves live order views as server-sent events. Each
// "snapshot" event carries the full current view; an "error" event means
// the view may be stale until the next snapshot.
type StreamHandler struct {
	views     LiveViews
	orders    service.OrderService
	heartbeat time.Duration
	logger    zerolog.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(views LiveViews, orders service.OrderService, logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		views:     views,
		orders:    orders,
		heartbeat: heartbeatInterval,
		logger:    logger.With().Str("handler", "stream").Logger(),
	}
}

// Orders handles GET /api/orders/stream, the staff dashboard feed.
func (h *StreamHandler) Orders(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.logger)
	if !ok {
		return
	}
	if !a.Role.IsStaff() {
		writeServiceError(w, model.ErrForbidden, h.logger)
		return
	}

	filter, err := orderFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidStatus, err.Error(), h.logger)
		return
	}

	sub, err := h.views.SubscribeOrders(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	stream(w, r, sub, func(orders []model.Order) any { return orders }, h.heartbeat, h.logger)
}

// MyOrders handles GET /api/me/orders/stream, the customer's own orders split
// into active and history.
func (h *StreamHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.logger)
	if !ok {
		return
	}

	sub, err := h.views.SubscribeOrders(r.Context(), model.OrderFilter{UserID: a.ID})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	stream(w, r, sub, func(orders []model.Order) any {
		active, history := lifecycle.Partition(orders)
		if active == nil {
			active = []model.Order{}
		}
		if history == nil {
			history = []model.Order{}
		}
		return model.MyOrdersResponse{Active: active, History: history}
	}, h.heartbeat, h.logger)
}

// Order handles GET /api/orders/{id}/stream, the tracking screen for one
// order. A null snapshot means the order no longer exists.
func (h *StreamHandler) Order(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := orderID(w, r, h.logger)
	if !ok {
		return
	}

	// Access is checked once against the order as it stands now.
	if _, err := h.orders.GetOrder(r.Context(), a, id); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	sub, err := h.views.SubscribeOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	stream(w, r, sub, func(o *model.Order) any { return o }, h.heartbeat, h.logger)
}

// stream copies sub's updates to w until the client goes away or the
// subscription ends.
func stream[T any](w http.ResponseWriter, r *http.Request, sub *livesync.Subscription[T], render func(T) any, heartbeat time.Duration, logger zerolog.Logger) {
	defer sub.Unsubscribe()

	rc := http.NewResponseController(w)
	// Streams outlive the server write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Warn().Err(err).Msg("failed to clear write deadline")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.Error().Err(err).Msg("response does not support streaming")
		return
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, err = fmt.Fprint(w, ": ping\n\n")
		case u, ok := <-sub.Updates():
			if !ok {
				return
			}
			if u.Err != nil {
				err = writeEvent(w, "error", model.ErrorResponse{Error: model.ErrCodeRepository, Message: model.ErrRepository.Message})
			} else {
				err = writeEvent(w, "snapshot", render(u.Value))
			}
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			logger.Debug().Err(err).Msg("stream client went away")
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err
}
