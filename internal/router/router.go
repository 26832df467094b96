package router

import (
	"net/http"

	"campus-eats/internal/handler"
	"campus-eats/internal/middleware"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers the router dispatches to.
type Handlers struct {
	Menu   *handler.MenuHandler
	Order  *handler.OrderHandler
	Stream *handler.StreamHandler
	Pickup *handler.PickupHandler
	Health *handler.HealthHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, jwtSecret []byte, scanLimiter *middleware.RateLimiter, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	staff := middleware.RequireStaff

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", h.Health.Check)

	mux.HandleFunc("GET /api/menu", h.Menu.List)
	mux.HandleFunc("GET /api/canteens", h.Menu.Canteens)

	// Customer routes
	mux.HandleFunc("POST /api/orders", h.Order.Create)
	mux.HandleFunc("GET /api/orders/{id}", h.Order.GetByID)
	mux.HandleFunc("GET /api/orders/{id}/qr", h.Order.QRCode)
	mux.HandleFunc("GET /api/orders/{id}/actions", h.Order.Actions)
	mux.HandleFunc("GET /api/orders/{id}/stream", h.Stream.Order)
	mux.HandleFunc("GET /api/me/orders", h.Order.MyOrders)
	mux.HandleFunc("GET /api/me/orders/stream", h.Stream.MyOrders)

	// Staff routes
	mux.Handle("GET /api/orders", staff(http.HandlerFunc(h.Order.List)))
	mux.Handle("GET /api/orders/stream", staff(http.HandlerFunc(h.Stream.Orders)))
	mux.Handle("POST /api/orders/{id}/transitions", staff(http.HandlerFunc(h.Order.Transition)))
	mux.Handle("GET /api/staff/summary", staff(http.HandlerFunc(h.Order.Summary)))
	mux.Handle("POST /api/pickup/scan", staff(scanLimiter.Handler(http.HandlerFunc(h.Pickup.Scan))))

	// Apply middleware in order: Recovery -> Logging -> CORS -> JWTAuth
	var handler http.Handler = mux
	handler = middleware.JWTAuth(jwtSecret, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
