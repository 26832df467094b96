package repository

import (
	"context"
	"time"

	"campus-eats/internal/model"

	"github.com/google/uuid"
)

// MenuRepository defines read access to the menu catalogue used for pricing.
type MenuRepository interface {
	// GetAll retrieves available menu items, optionally scoped to a canteen.
	GetAll(ctx context.Context, canteenID string, limit, offset int) ([]model.MenuItem, error)

	// GetByIDs retrieves multiple menu items by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.MenuItem, error)
}

// OrderRepository defines the document-store operations on the orders collection.
type OrderRepository interface {
	// Create inserts a new order. Returns model.ErrDuplicateOrder when the
	// order number or QR code is already taken.
	Create(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order by its ID. Returns nil, nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByOrderNumber retrieves an order by its human-readable number.
	// Returns nil, nil when absent.
	GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)

	// List returns orders matching filter, newest first.
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// UpdateStatus sets status and updated_at in a single conditional write
	// that only succeeds while the stored status equals expected. Returns
	// model.ErrStatusConflict when it does not, and nil, nil when the order
	// does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next model.Status, at time.Time) (*model.Order, error)
}

// ChangeEvent is a single notification from a ChangeFeed.
type ChangeEvent struct {
	// OrderID is the document that changed. Zero for Err and Resync events.
	OrderID uuid.UUID
	// Err reports that the feed lost its connection; consumers may be stale
	// until a Resync event arrives.
	Err error
	// Resync asks consumers to re-read everything after a reconnect.
	Resync bool
}

// ChangeFeed delivers change notifications for the orders collection.
type ChangeFeed interface {
	// Listen registers fn and returns a function that detaches it. fn is
	// called from the feed's goroutine and must not block.
	Listen(fn func(ChangeEvent)) (detach func())
}
