package inventory

import "errors"

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUnavailable covers transport failures and 5xx responses from the
	// item service.
	ErrUnavailable = errors.New("inventory service unavailable")
)
