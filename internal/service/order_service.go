package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"campus-eats/internal/canteen"
	"campus-eats/internal/lifecycle"
	"campus-eats/internal/model"
	"campus-eats/internal/qr"
	"campus-eats/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	orderNumberPrefix = "ORD-"
	maxCreateAttempts = 3
	maxOrderItems     = 50
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	menuRepo  repository.MenuRepository
	canteens  canteen.Validator
	engine    Transitioner
	numbers   *orderNumbers
	now       func() time.Time
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	menuRepo repository.MenuRepository,
	canteens canteen.Validator,
	engine Transitioner,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		menuRepo:  menuRepo,
		canteens:  canteens,
		engine:    engine,
		numbers:   &orderNumbers{},
		now:       time.Now,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder validates and prices the request, then stores a pending order.
func (s *orderService) CreateOrder(ctx context.Context, actor model.Actor, req *model.CreateOrderRequest) (*model.Order, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	if err := s.canteens.Validate(ctx, req.CanteenID); err != nil {
		s.logger.Warn().
			Str("canteen_id", req.CanteenID).
			Err(err).
			Msg("canteen validation failed")
		return nil, err
	}

	items, total, err := s.priceItems(ctx, req)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		createdAt := s.now().UTC().Truncate(time.Microsecond)
		number := s.numbers.next(createdAt)

		order := &model.Order{
			ID:                  uuid.New(),
			OrderNumber:         number,
			UserID:              actor.ID,
			Items:               items,
			Total:               total,
			Status:              model.StatusPending,
			PickupTime:          req.PickupTime,
			SpecialInstructions: req.SpecialInstructions,
			QRCode:              qr.Encode(number, actor.ID, createdAt),
			CanteenID:           req.CanteenID,
			CreatedAt:           createdAt,
			UpdatedAt:           createdAt,
		}

		err := s.orderRepo.Create(ctx, order)
		if err == nil {
			s.logger.Info().
				Str("order_id", order.ID.String()).
				Str("order_number", order.OrderNumber).
				Str("user_id", actor.ID).
				Str("canteen_id", order.CanteenID).
				Str("total", order.Total.StringFixed(2)).
				Int("item_count", len(order.Items)).
				Msg("order created")
			return order, nil
		}

		if errors.Is(err, model.ErrDuplicateOrder) && attempt < maxCreateAttempts {
			s.logger.Warn().
				Str("order_number", number).
				Int("attempt", attempt).
				Msg("order number collision, retrying")
			continue
		}
		if errors.Is(err, model.ErrDuplicateOrder) {
			return nil, err
		}

		s.logger.Error().Err(err).Str("order_number", number).Msg("failed to create order")
		return nil, fmt.Errorf("%w: failed to create order: %w", model.ErrRepository, err)
	}
}

// priceItems looks up every requested menu item and snapshots its price.
func (s *orderService) priceItems(ctx context.Context, req *model.CreateOrderRequest) ([]model.LineItem, decimal.Decimal, error) {
	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.MenuItemID)
	}

	menu, err := s.menuRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("item_count", len(ids)).Msg("failed to load menu items")
		return nil, decimal.Zero, fmt.Errorf("%w: failed to load menu items: %w", model.ErrRepository, err)
	}

	byID := make(map[string]model.MenuItem, len(menu))
	for _, m := range menu {
		byID[m.ID] = m
	}

	items := make([]model.LineItem, 0, len(req.Items))
	total := decimal.Zero
	for _, reqItem := range req.Items {
		m, ok := byID[reqItem.MenuItemID]
		if !ok || !m.Available || m.CanteenID != req.CanteenID {
			s.logger.Warn().
				Str("menu_item_id", reqItem.MenuItemID).
				Str("canteen_id", req.CanteenID).
				Msg("menu item not orderable")
			return nil, decimal.Zero, model.ErrMenuItemNotFound
		}

		line := model.LineItem{
			MenuItemID:     m.ID,
			Name:           m.Name,
			Quantity:       reqItem.Quantity,
			UnitPrice:      m.Price,
			Customizations: reqItem.Customizations,
		}
		items = append(items, line)
		total = total.Add(line.Subtotal())
	}

	return items, total, nil
}

// validateCreateRequest validates the order request.
func (s *orderService) validateCreateRequest(req *model.CreateOrderRequest) error {
	if req == nil {
		return model.NewDomainError(model.ErrCodeMissingField, "Request body is required")
	}
	if strings.TrimSpace(req.CanteenID) == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "Canteen ID is required")
	}
	if len(req.Items) == 0 {
		return model.NewDomainError(model.ErrCodeMissingField, "Order must contain at least one item")
	}
	if len(req.Items) > maxOrderItems {
		return model.NewDomainError(model.ErrCodeInvalidQuantity, fmt.Sprintf("Order cannot contain more than %d items", maxOrderItems))
	}

	for i, item := range req.Items {
		if strings.TrimSpace(item.MenuItemID) == "" {
			return model.NewDomainError(model.ErrCodeMissingField, fmt.Sprintf("Item %d: menu item ID is required", i))
		}
		if item.Quantity <= 0 {
			return model.ErrInvalidQuantity
		}
	}

	return nil
}

// GetOrder retrieves an order visible to actor.
func (s *orderService) GetOrder(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("%w: failed to get order: %w", model.ErrRepository, err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if !CanView(actor, order) {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("user_id", actor.ID).
			Msg("order read denied")
		return nil, model.ErrForbidden
	}
	return order, nil
}

// CanView reports whether actor may read order. Staff see every order;
// students only their own.
func CanView(actor model.Actor, order *model.Order) bool {
	return actor.Role.IsStaff() || order.UserID == actor.ID
}

// ListOrders returns orders matching filter for staff.
func (s *orderService) ListOrders(ctx context.Context, actor model.Actor, filter model.OrderFilter) ([]model.Order, error) {
	if !actor.Role.IsStaff() {
		return nil, model.ErrForbidden
	}

	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).
			Str("status", string(filter.Status)).
			Str("canteen_id", filter.CanteenID).
			Msg("failed to list orders")
		return nil, fmt.Errorf("%w: failed to list orders: %w", model.ErrRepository, err)
	}
	return orders, nil
}

// MyOrders partitions the actor's own orders into active and history.
func (s *orderService) MyOrders(ctx context.Context, actor model.Actor) (*model.MyOrdersResponse, error) {
	orders, err := s.orderRepo.List(ctx, model.OrderFilter{UserID: actor.ID})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", actor.ID).Msg("failed to list own orders")
		return nil, fmt.Errorf("%w: failed to list orders: %w", model.ErrRepository, err)
	}

	active, history := lifecycle.Partition(orders)
	if active == nil {
		active = []model.Order{}
	}
	if history == nil {
		history = []model.Order{}
	}
	return &model.MyOrdersResponse{Active: active, History: history}, nil
}

// StaffSummary counts the queue for a canteen, or all canteens when empty.
func (s *orderService) StaffSummary(ctx context.Context, actor model.Actor, canteenID string) (*lifecycle.Summary, error) {
	orders, err := s.ListOrders(ctx, actor, model.OrderFilter{CanteenID: canteenID})
	if err != nil {
		return nil, err
	}
	summary := lifecycle.Summarize(orders, s.now())
	return &summary, nil
}

// Transition applies a staff status change through the lifecycle engine.
func (s *orderService) Transition(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.TransitionRequest) (*model.Order, error) {
	if req == nil || req.Status == "" {
		return nil, model.NewDomainError(model.ErrCodeMissingField, "Target status is required")
	}
	if _, err := model.ParseStatus(string(req.Status)); err != nil {
		return nil, model.NewDomainError(model.ErrCodeInvalidStatus, err.Error())
	}
	if !actor.Role.IsStaff() {
		return nil, model.ErrForbidden
	}

	order, err := s.engine.Transition(ctx, id, req.ExpectedStatus, req.Status, actor)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Actions lists what actor may do next with an order.
func (s *orderService) Actions(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ActionsResponse, error) {
	order, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &model.ActionsResponse{
		OrderID: order.ID,
		Status:  order.Status,
		Actions: s.engine.AvailableActions(order, actor),
	}, nil
}

// orderNumbers hands out "ORD-<unix millis>" numbers that never repeat
// within the process, even when two orders land in the same millisecond.
type orderNumbers struct {
	mu   sync.Mutex
	last int64
}

func (n *orderNumbers) next(at time.Time) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ms := at.UnixMilli()
	if ms <= n.last {
		ms = n.last + 1
	}
	n.last = ms
	return fmt.Sprintf("%s%d", orderNumberPrefix, ms)
}
