package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"campus-eats/internal/model"

	"github.com/google/uuid"
)

// MemoryOrderRepository is an in-process OrderRepository that also acts as
// its own ChangeFeed. Every successful write notifies listeners after the
// lock is released.
type MemoryOrderRepository struct {
	mu        sync.RWMutex
	orders    map[uuid.UUID]*model.Order
	byNumber  map[string]uuid.UUID
	byQR      map[string]uuid.UUID
	listeners map[int]func(ChangeEvent)
	nextID    int
}

// Verify interface compliance
var (
	_ OrderRepository = (*MemoryOrderRepository)(nil)
	_ ChangeFeed      = (*MemoryOrderRepository)(nil)
)

// NewMemoryOrderRepository creates an empty in-memory order store.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders:    make(map[uuid.UUID]*model.Order),
		byNumber:  make(map[string]uuid.UUID),
		byQR:      make(map[string]uuid.UUID),
		listeners: make(map[int]func(ChangeEvent)),
	}
}

// Create inserts a copy of order.
func (r *MemoryOrderRepository) Create(ctx context.Context, order *model.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	if _, ok := r.orders[order.ID]; ok {
		r.mu.Unlock()
		return model.ErrDuplicateOrder
	}
	if _, ok := r.byNumber[order.OrderNumber]; ok {
		r.mu.Unlock()
		return model.ErrDuplicateOrder
	}
	if _, ok := r.byQR[order.QRCode]; ok && order.QRCode != "" {
		r.mu.Unlock()
		return model.ErrDuplicateOrder
	}

	stored := cloneOrder(order)
	r.orders[order.ID] = stored
	r.byNumber[order.OrderNumber] = order.ID
	if order.QRCode != "" {
		r.byQR[order.QRCode] = order.ID
	}
	r.mu.Unlock()

	r.broadcast(ChangeEvent{OrderID: order.ID})
	return nil
}

// GetByID retrieves a copy of the order, or nil when absent.
func (r *MemoryOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

// GetByOrderNumber retrieves a copy of the order, or nil when absent.
func (r *MemoryOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byNumber[orderNumber]
	if !ok {
		return nil, nil
	}
	return cloneOrder(r.orders[id]), nil
}

// List returns copies of matching orders, newest first.
func (r *MemoryOrderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	orders := make([]model.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if filter.Matches(o) {
			orders = append(orders, *cloneOrder(o))
		}
	}
	r.mu.RUnlock()

	sortNewestFirst(orders)
	return orders, nil
}

// UpdateStatus performs a compare-and-set of the order status.
func (r *MemoryOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next model.Status, at time.Time) (*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	o, ok := r.orders[id]
	if !ok {
		r.mu.Unlock()
		return nil, nil
	}
	if o.Status != expected {
		r.mu.Unlock()
		return nil, model.ErrStatusConflict
	}
	o.Status = next
	o.UpdatedAt = at
	updated := cloneOrder(o)
	r.mu.Unlock()

	r.broadcast(ChangeEvent{OrderID: id})
	return updated, nil
}

// Listen registers fn for change notifications.
func (r *MemoryOrderRepository) Listen(fn func(ChangeEvent)) func() {
	r.mu.Lock()
	key := r.nextID
	r.nextID++
	r.listeners[key] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, key)
			r.mu.Unlock()
		})
	}
}

// Fail simulates a lost connection by delivering err to every listener.
func (r *MemoryOrderRepository) Fail(err error) {
	r.broadcast(ChangeEvent{Err: err})
}

func (r *MemoryOrderRepository) broadcast(ev ChangeEvent) {
	r.mu.RLock()
	fns := make([]func(ChangeEvent), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// MemoryMenuRepository is an in-process MenuRepository.
type MemoryMenuRepository struct {
	mu    sync.RWMutex
	items map[string]model.MenuItem
}

var _ MenuRepository = (*MemoryMenuRepository)(nil)

// NewMemoryMenuRepository creates a menu store seeded with items.
func NewMemoryMenuRepository(items ...model.MenuItem) *MemoryMenuRepository {
	r := &MemoryMenuRepository{items: make(map[string]model.MenuItem, len(items))}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

// Put adds or replaces a menu item.
func (r *MemoryMenuRepository) Put(item model.MenuItem) {
	r.mu.Lock()
	r.items[item.ID] = item
	r.mu.Unlock()
}

// GetAll retrieves available menu items ordered by category and name.
func (r *MemoryMenuRepository) GetAll(ctx context.Context, canteenID string, limit, offset int) ([]model.MenuItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	items := make([]model.MenuItem, 0, len(r.items))
	for _, it := range r.items {
		if it.Available && (canteenID == "" || it.CanteenID == canteenID) {
			items = append(items, it)
		}
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Name < items[j].Name
	})

	if offset >= len(items) {
		return []model.MenuItem{}, nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

// GetByIDs retrieves the menu items whose IDs are listed. Unknown IDs are skipped.
func (r *MemoryMenuRepository) GetByIDs(ctx context.Context, ids []string) ([]model.MenuItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []model.MenuItem{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if it, ok := r.items[id]; ok && !seen[id] {
			seen[id] = true
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func sortNewestFirst(orders []model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID.String() < orders[j].ID.String()
	})
}

func cloneOrder(o *model.Order) *model.Order {
	c := *o
	c.Items = make([]model.LineItem, len(o.Items))
	for i, it := range o.Items {
		c.Items[i] = it
		c.Items[i].Customizations = cloneMap(it.Customizations)
	}
	return &c
}

// cloneMap deep-copies JSON-shaped customization values.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return out
}
