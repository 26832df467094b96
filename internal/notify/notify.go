// Package notify publishes order status changes to interested listeners
// (customer notification workers, kitchen displays).
package notify

import (
	"context"
	"time"
)

// StatusChanged is emitted after every successful status transition.
type StatusChanged struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      string    `json:"user_id"`
	CanteenID   string    `json:"canteen_id"`
	OldStatus   string    `json:"old_status"`
	NewStatus   string    `json:"new_status"`
	ChangedBy   string    `json:"changed_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher sends status change events.
type Publisher interface {
	Publish(ctx context.Context, event StatusChanged) error
	Close() error
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, StatusChanged) error { return nil }
func (NopPublisher) Close() error                                  { return nil }
