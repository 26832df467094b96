// Package lifecycle implements the order status state machine shared by the
// staff, customer and pickup surfaces.
package lifecycle

import (
	"campus-eats/internal/model"
)

// successor is the happy-path chain. Cancellation is handled separately.
var successor = map[model.Status]model.Status{
	model.StatusPending:   model.StatusPreparing,
	model.StatusPreparing: model.StatusReady,
	model.StatusReady:     model.StatusCompleted,
}

// Next returns the happy-path successor of current, if any.
func Next(current model.Status) (model.Status, bool) {
	next, ok := successor[current]
	return next, ok
}

// CanTransition reports whether moving from current to next is permitted:
// either next is the immediate successor of current, or next is cancelled
// and current is not terminal. Self-transitions and skips are rejected.
func CanTransition(current, next model.Status) bool {
	if current.IsTerminal() {
		return false
	}
	if _, known := successor[current]; !known {
		return false
	}
	if next == model.StatusCancelled {
		return true
	}
	s, ok := successor[current]
	return ok && s == next
}

// Bucket is the coarse classification of an order.
type Bucket string

const (
	BucketActive  Bucket = "active"
	BucketHistory Bucket = "history"
)

// Classify places a status into exactly one bucket.
func Classify(status model.Status) Bucket {
	if status.IsTerminal() {
		return BucketHistory
	}
	return BucketActive
}

// Partition splits orders into active and history, preserving input order.
func Partition(orders []model.Order) (active, history []model.Order) {
	active = make([]model.Order, 0, len(orders))
	history = make([]model.Order, 0)
	for _, o := range orders {
		if Classify(o.Status) == BucketActive {
			active = append(active, o)
		} else {
			history = append(history, o)
		}
	}
	return active, history
}

// Policy gates which roles may perform which transitions.
type Policy struct {
	// StaffCanCancel allows staff (not only admins) to cancel non-terminal orders.
	StaffCanCancel bool
}

// DefaultPolicy lets both staff and admins cancel.
func DefaultPolicy() Policy {
	return Policy{StaffCanCancel: true}
}

// AvailableActions returns the statuses role may move an order in status to.
// Customers never get actions; terminal orders have none.
func (p Policy) AvailableActions(status model.Status, role model.Role) []model.Status {
	if !role.IsStaff() || status.IsTerminal() {
		return []model.Status{}
	}

	actions := make([]model.Status, 0, 2)
	if next, ok := successor[status]; ok {
		actions = append(actions, next)
	}
	if role == model.RoleAdmin || p.StaffCanCancel {
		actions = append(actions, model.StatusCancelled)
	}
	return actions
}

// Allows reports whether role may move an order from status to next.
func (p Policy) Allows(status, next model.Status, role model.Role) bool {
	for _, s := range p.AvailableActions(status, role) {
		if s == next {
			return true
		}
	}
	return false
}
