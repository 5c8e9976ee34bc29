package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending        Status = "PENDING"
	StatusConfirmed      Status = "CONFIRMED"
	StatusProcessing     Status = "PROCESSING"
	StatusShipped        Status = "SHIPPED"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
	StatusReturned       Status = "RETURNED"
	StatusRefunded       Status = "REFUNDED"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard      PaymentMethod = "DEBIT_CARD"
	PaymentPaypal         PaymentMethod = "PAYPAL"
	PaymentStripe         PaymentMethod = "STRIPE"
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentBankTransfer   PaymentMethod = "BANK_TRANSFER"
)

// ReturnWindow bounds how long after delivery a return may be requested.
const ReturnWindow = 30 * 24 * time.Hour

// validTransitions is the status graph. Forced transitions driven by payment
// failure bypass this table; every user/admin-facing operation goes through it.
var validTransitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusProcessing, StatusShipped, StatusCancelled},
	StatusProcessing:     {StatusShipped},
	StatusShipped:        {StatusOutForDelivery, StatusDelivered},
	StatusOutForDelivery: {StatusDelivered},
	StatusDelivered:      {StatusReturned},
	StatusReturned:       {StatusRefunded},
	StatusCancelled:      {StatusRefunded},
	StatusRefunded:       {},
}

func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Address struct {
	Line1   string `json:"addressLine1"`
	Line2   string `json:"addressLine2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type Order struct {
	ID            uuid.UUID
	UserID        int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	Status        Status
	PaymentStatus PaymentStatus

	TotalAmount    decimal.Decimal
	ShippingCost   decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalAmount    decimal.Decimal

	ShippingAddress Address
	BillingAddress  Address

	PaymentMethod        PaymentMethod
	PaymentTransactionID *string

	TrackingNumber        *string
	EstimatedDeliveryDate *time.Time
	ActualDeliveryDate    *time.Time

	Notes *string

	CreatedAt time.Time
	UpdatedAt time.Time

	Items         []OrderItem
	StatusHistory []StatusEvent
}

// OrderItem is a financial snapshot taken at order-creation time. Price,
// name and seller fields are immutable afterwards: later catalog changes
// must never alter a placed order.
type OrderItem struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	ItemID            int64
	ItemName          string
	ItemDescription   *string
	ImageURL          *string
	SellerID          int64
	SellerName        string
	ProductAttributes string
	Price             decimal.Decimal
	Quantity          int
	Subtotal          decimal.Decimal
}

// StatusEvent is one entry of the append-only status ledger.
type StatusEvent struct {
	Status    Status
	Reason    string
	Timestamp time.Time
}

func (o *Order) CanBeCancelled() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

// CanBeReturned reports whether a return is allowed: delivered, and within
// the return window measured from actual delivery. The boundary is
// inclusive: exactly ReturnWindow after delivery still qualifies.
func (o *Order) CanBeReturned(now time.Time) bool {
	if o.Status != StatusDelivered || o.ActualDeliveryDate == nil {
		return false
	}
	return now.Sub(*o.ActualDeliveryDate) <= ReturnWindow
}

// CalculateTotals rederives totalAmount from item subtotals and finalAmount
// from the cost components.
func (o *Order) CalculateTotals() {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Subtotal)
	}
	o.TotalAmount = total
	o.CalculateFinalAmount()
}

func (o *Order) CalculateFinalAmount() {
	o.FinalAmount = o.TotalAmount.
		Add(o.ShippingCost).
		Add(o.TaxAmount).
		Sub(o.DiscountAmount)
}

func (o *Order) TotalItems() int {
	count := 0
	for i := range o.Items {
		count += o.Items[i].Quantity
	}
	return count
}
