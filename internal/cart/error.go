package cart

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidOwner    = errors.New("either user id or session id must be provided")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")

	// -- Resource State --
	ErrCartNotFound     = errors.New("cart not found")
	ErrActiveCartExists = errors.New("active cart already exists for owner")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrNotOwned         = errors.New("cart item does not belong to owner's cart")
	ErrCartFull         = errors.New("cart has reached maximum item limit")

	// -- Business rules against the inventory gateway --
	ErrItemNotFound         = errors.New("item not found in catalog")
	ErrStockUnavailable     = errors.New("requested quantity exceeds available stock")
	ErrInventoryUnavailable = errors.New("inventory gateway unreachable")

	// -- Constants (External Systems) --
	PgUniqueViolation = "23505"
)
