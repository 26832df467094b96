package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle stage of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusPreparing,
	StatusReady,
	StatusCompleted,
	StatusCancelled,
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// IsTerminal reports whether no further transition is permitted from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Order represents a customer's pre-order for pickup at a canteen.
type Order struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	OrderNumber         string          `json:"orderNumber" db:"order_number"`
	UserID              string          `json:"userId" db:"user_id"`
	Items               []LineItem      `json:"items" db:"items"`
	Total               decimal.Decimal `json:"total" db:"total"`
	Status              Status          `json:"status" db:"status"`
	PickupTime          string          `json:"pickupTime,omitempty" db:"pickup_time"`
	SpecialInstructions string          `json:"specialInstructions,omitempty" db:"special_instructions"`
	QRCode              string          `json:"qrCode" db:"qr_code"`
	CanteenID           string          `json:"canteenId" db:"canteen_id"`
	CreatedAt           time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time       `json:"updatedAt" db:"updated_at"`
}

// LineItem is a single menu item within an order, priced at creation time.
type LineItem struct {
	MenuItemID     string          `json:"menuItemId"`
	Name           string          `json:"name,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Customizations map[string]any  `json:"customizations,omitempty"`
}

// Subtotal returns quantity × unit price.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// OrderFilter narrows order queries. Zero values match everything.
type OrderFilter struct {
	Status    Status
	CanteenID string
	UserID    string
}

// Matches reports whether o satisfies the filter.
func (f OrderFilter) Matches(o *Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.CanteenID != "" && o.CanteenID != f.CanteenID {
		return false
	}
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	return true
}

// CreateOrderRequest represents the request payload for placing an order.
type CreateOrderRequest struct {
	CanteenID           string             `json:"canteenId"`
	PickupTime          string             `json:"pickupTime,omitempty"`
	SpecialInstructions string             `json:"specialInstructions,omitempty"`
	Items               []OrderItemRequest `json:"items"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	MenuItemID     string         `json:"menuItemId"`
	Quantity       int            `json:"quantity"`
	Customizations map[string]any `json:"customizations,omitempty"`
}

// TransitionRequest is the payload for a staff status change.
type TransitionRequest struct {
	Status         Status  `json:"status"`
	ExpectedStatus *Status `json:"expectedStatus,omitempty"`
}

// MyOrdersResponse splits a customer's orders into active and history buckets.
type MyOrdersResponse struct {
	Active  []Order `json:"active"`
	History []Order `json:"history"`
}

// ActionsResponse lists the transitions the caller may perform on an order.
type ActionsResponse struct {
	OrderID uuid.UUID `json:"orderId"`
	Status  Status    `json:"status"`
	Actions []Status  `json:"actions"`
}
