package lifecycle

import (
	"fmt"

	"campus-eats/internal/model"
)

// TransitionError reports a rejected status change.
type TransitionError struct {
	Current   model.Status
	Attempted model.Status
	// Stale is set when the stored status no longer matched the expected one,
	// meaning another session moved the order first.
	Stale bool
}

func (e *TransitionError) Error() string {
	if e.Stale {
		return fmt.Sprintf("order status changed concurrently: now %s, cannot apply %s", e.Current, e.Attempted)
	}
	return fmt.Sprintf("invalid transition from %s to %s", e.Current, e.Attempted)
}

// Unwrap lets callers match with errors.Is(err, model.ErrInvalidTransition).
// Stale errors also match model.ErrStatusConflict.
func (e *TransitionError) Unwrap() []error {
	if e.Stale {
		return []error{model.ErrInvalidTransition, model.ErrStatusConflict}
	}
	return []error{model.ErrInvalidTransition}
}
