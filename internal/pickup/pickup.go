// Package pickup implements the staff scan-to-complete flow.
package pickup

import (
	"context"
	"errors"
	"fmt"

	"campus-eats/internal/lifecycle"
	"campus-eats/internal/model"
	"campus-eats/internal/qr"

	"github.com/rs/zerolog"
)

// Outcome classifies a scan.
type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeNotReady   Outcome = "not_ready"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeUnreadable Outcome = "unreadable"
)

// Result is the answer shown to the scanning staff member. Order is set for
// Completed and NotReady; CurrentStatus is set for NotReady.
type Result struct {
	Outcome       Outcome      `json:"outcome"`
	Order         *model.Order `json:"order,omitempty"`
	CurrentStatus model.Status `json:"currentStatus,omitempty"`
}

// OrderFinder looks up the live order a token names.
type OrderFinder interface {
	GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)
}

// Transitioner applies the completion.
type Transitioner interface {
	ApplyTransition(ctx context.Context, order *model.Order, next model.Status, actor model.Actor) (*model.Order, error)
}

// Service verifies pickup tokens against the store.
type Service struct {
	orders OrderFinder
	engine Transitioner
	logger zerolog.Logger
}

// NewService creates a pickup service.
func NewService(orders OrderFinder, engine Transitioner, logger zerolog.Logger) *Service {
	return &Service{
		orders: orders,
		engine: engine,
		logger: logger.With().Str("service", "pickup").Logger(),
	}
}

// Scan resolves raw scanner input to an order and completes it if it is
// ready. Only a point read of the stored order decides the outcome; the
// token's embedded fields are never trusted.
//
// An error is returned only for store failures and for a completion that
// lost a race (a *lifecycle.TransitionError), never for bad input.
func (s *Service) Scan(ctx context.Context, raw string, actor model.Actor) (Result, error) {
	decoded, err := qr.Decode(raw)
	if err != nil {
		if !qr.IsUnreadable(err) {
			return Result{}, err
		}
		s.logger.Debug().Int("input_length", len(raw)).Msg("unreadable scan")
		return Result{Outcome: OutcomeUnreadable}, nil
	}

	log := s.logger.With().
		Str("order_number", decoded.OrderNumber).
		Bool("literal", decoded.Literal).
		Str("actor_id", actor.ID).
		Logger()

	order, err := s.orders.GetByOrderNumber(ctx, decoded.OrderNumber)
	if err != nil {
		log.Error().Err(err).Msg("failed to look up scanned order")
		return Result{}, fmt.Errorf("%w: failed to look up order: %w", model.ErrRepository, err)
	}
	if order == nil {
		log.Info().Msg("scanned order not found")
		return Result{Outcome: OutcomeNotFound}, nil
	}

	if order.Status != model.StatusReady {
		log.Info().Str("status", string(order.Status)).Msg("scanned order not ready for pickup")
		return Result{Outcome: OutcomeNotReady, Order: order, CurrentStatus: order.Status}, nil
	}

	completed, err := s.engine.ApplyTransition(ctx, order, model.StatusCompleted, actor)
	if err != nil {
		var te *lifecycle.TransitionError
		if errors.As(err, &te) {
			log.Info().Str("status", string(te.Current)).Msg("pickup lost race with another session")
		}
		return Result{}, err
	}

	log.Info().Str("order_id", completed.ID.String()).Msg("order picked up")
	return Result{Outcome: OutcomeCompleted, Order: completed}, nil
}
