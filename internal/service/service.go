package service

import (
	"context"

	"campus-eats/internal/lifecycle"
	"campus-eats/internal/model"

	"github.com/google/uuid"
)

// MenuService defines read access to the menu for ordering.
type MenuService interface {
	// ListMenu retrieves available items, optionally for one canteen, with pagination.
	ListMenu(ctx context.Context, canteenID string, limit, offset int) ([]model.MenuItem, error)
}

// OrderService defines order placement, queries and staff actions.
type OrderService interface {
	// CreateOrder prices the requested items and stores a new pending order
	// owned by actor.
	CreateOrder(ctx context.Context, actor model.Actor, req *model.CreateOrderRequest) (*model.Order, error)

	// GetOrder retrieves an order. Students may only read their own orders.
	GetOrder(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error)

	// ListOrders returns the staff queue, newest first.
	ListOrders(ctx context.Context, actor model.Actor, filter model.OrderFilter) ([]model.Order, error)

	// MyOrders splits the actor's own orders into active and history.
	MyOrders(ctx context.Context, actor model.Actor) (*model.MyOrdersResponse, error)

	// StaffSummary counts queue sizes and today's throughput for a canteen.
	StaffSummary(ctx context.Context, actor model.Actor, canteenID string) (*lifecycle.Summary, error)

	// Transition applies a staff status change.
	Transition(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.TransitionRequest) (*model.Order, error)

	// Actions lists the transitions actor may perform on an order.
	Actions(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ActionsResponse, error)
}

// Transitioner is the lifecycle engine surface the order service drives.
type Transitioner interface {
	Transition(ctx context.Context, id uuid.UUID, expected *model.Status, next model.Status, actor model.Actor) (*model.Order, error)
	AvailableActions(order *model.Order, actor model.Actor) []model.Status
}
