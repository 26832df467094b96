package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-eats/internal/model"
	"campus-eats/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderStore is the slice of the order repository the engine writes through.
type OrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next model.Status, at time.Time) (*model.Order, error)
}

// Engine validates and applies status transitions.
type Engine struct {
	store     OrderStore
	policy    Policy
	publisher notify.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for updatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPublisher sets where status-change events are sent.
func WithPublisher(p notify.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// NewEngine creates a lifecycle engine writing through store.
func NewEngine(store OrderStore, policy Policy, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		policy:    policy,
		publisher: notify.NopPublisher{},
		now:       time.Now,
		logger:    logger.With().Str("component", "lifecycle").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the role policy the engine enforces.
func (e *Engine) Policy() Policy {
	return e.policy
}

// AvailableActions returns the transitions actor may perform on order.
func (e *Engine) AvailableActions(order *model.Order, actor model.Actor) []model.Status {
	return e.policy.AvailableActions(order.Status, actor.Role)
}

// ApplyTransition moves order to next on behalf of actor.
//
// The write is conditional on the stored status still being order.Status. If
// another session changed it in between, the order is re-read and a stale
// *TransitionError carrying the stored status is returned; the caller should
// refresh before retrying.
func (e *Engine) ApplyTransition(ctx context.Context, order *model.Order, next model.Status, actor model.Actor) (*model.Order, error) {
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	log := e.logger.With().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("from", string(order.Status)).
		Str("to", string(next)).
		Str("actor_id", actor.ID).
		Logger()

	if !CanTransition(order.Status, next) {
		log.Warn().Msg("rejected invalid transition")
		return nil, &TransitionError{Current: order.Status, Attempted: next}
	}

	if !e.policy.Allows(order.Status, next, actor.Role) {
		log.Warn().Str("role", string(actor.Role)).Msg("actor not allowed to transition order")
		return nil, model.ErrForbidden
	}

	at := e.now().UTC()
	if !at.After(order.UpdatedAt) {
		at = order.UpdatedAt.Add(time.Microsecond)
	}

	updated, err := e.store.UpdateStatus(ctx, order.ID, order.Status, next, at)
	if err != nil {
		if errors.Is(err, model.ErrStatusConflict) {
			return nil, e.staleError(ctx, order.ID, next, log)
		}
		log.Error().Err(err).Msg("failed to persist transition")
		return nil, fmt.Errorf("%w: failed to update order status: %w", model.ErrRepository, err)
	}
	if updated == nil {
		log.Warn().Msg("order disappeared before transition")
		return nil, model.ErrOrderNotFound
	}

	log.Info().Msg("order status updated")

	event := notify.StatusChanged{
		OrderID:     updated.ID.String(),
		OrderNumber: updated.OrderNumber,
		UserID:      updated.UserID,
		CanteenID:   updated.CanteenID,
		OldStatus:   string(order.Status),
		NewStatus:   string(updated.Status),
		ChangedBy:   actor.ID,
		Timestamp:   updated.UpdatedAt,
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Msg("failed to publish status change")
	}

	return updated, nil
}

// Transition is the by-id entry point: it reads the live order, optionally
// checks it against the status the caller last saw, then applies next.
func (e *Engine) Transition(ctx context.Context, id uuid.UUID, expected *model.Status, next model.Status, actor model.Actor) (*model.Order, error) {
	order, err := e.store.GetByID(ctx, id)
	if err != nil {
		e.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to read order")
		return nil, fmt.Errorf("%w: failed to get order: %w", model.ErrRepository, err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if expected != nil && *expected != order.Status {
		return nil, &TransitionError{Current: order.Status, Attempted: next, Stale: true}
	}

	return e.ApplyTransition(ctx, order, next, actor)
}

func (e *Engine) staleError(ctx context.Context, id uuid.UUID, next model.Status, log zerolog.Logger) error {
	current, err := e.store.GetByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("failed to re-read order after conflict")
		return fmt.Errorf("%w: failed to re-read order: %w", model.ErrRepository, err)
	}
	if current == nil {
		return model.ErrOrderNotFound
	}
	log.Info().Str("stored", string(current.Status)).Msg("transition lost race with another session")
	return &TransitionError{Current: current.Status, Attempted: next, Stale: true}
}
