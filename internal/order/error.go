package order

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrNotOwned      = errors.New("order does not belong to the user")

	ErrCartNotFound = errors.New("cart not found")
	ErrCartEmpty    = errors.New("cart is empty")
	ErrCartNotOwned = errors.New("cart does not belong to the user")

	ErrStockUnavailable = errors.New("insufficient stock for order")
)

// InvalidTransitionError is returned when a state-machine guard is violated.
// It carries the current status so callers can see why the call failed.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// IsInvalidTransition reports whether err is a transition guard violation.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
