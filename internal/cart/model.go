package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusExpired   Status = "EXPIRED"
	StatusConverted Status = "CONVERTED"
	StatusAbandoned Status = "ABANDONED"
)

// Owner identifies who a cart belongs to: an authenticated user XOR a guest
// session. Exactly one side is set.
type Owner struct {
	UserID    *int64
	SessionID *string
}

func UserOwner(userID int64) Owner {
	return Owner{UserID: &userID}
}

func GuestOwner(sessionID string) Owner {
	return Owner{SessionID: &sessionID}
}

func (o Owner) Valid() bool {
	return (o.UserID != nil) != (o.SessionID != nil)
}

func (o Owner) IsGuest() bool {
	return o.SessionID != nil && o.UserID == nil
}

type Cart struct {
	ID          uuid.UUID
	UserID      *int64
	SessionID   *string
	Status      Status
	TotalAmount decimal.Decimal
	TotalItems  int
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Items       []CartItem
}

type CartItem struct {
	ID                uuid.UUID
	CartID            uuid.UUID
	ItemID            int64
	ItemName          string
	ItemDescription   *string
	ItemImageURL      *string
	SellerID          int64
	SellerName        string
	ProductAttributes string
	Price             decimal.Decimal
	Quantity          int
	Subtotal          decimal.Decimal
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CalculateSubtotal refreshes the derived subtotal after any price or
// quantity change.
func (i *CartItem) CalculateSubtotal() {
	i.Subtotal = i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (c *Cart) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

func (c *Cart) IsGuest() bool {
	return c.SessionID != nil && c.UserID == nil
}

// UpdateTotals recomputes the denormalized totals from the loaded items.
// The repository performs the same recomputation in SQL after each mutation;
// this keeps in-memory carts consistent with what was persisted.
func (c *Cart) UpdateTotals() {
	total := decimal.Zero
	count := 0
	for i := range c.Items {
		total = total.Add(c.Items[i].Subtotal)
		count += c.Items[i].Quantity
	}
	c.TotalAmount = total
	c.TotalItems = count
}
