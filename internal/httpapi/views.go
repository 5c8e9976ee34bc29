package httpapi

import (
	"time"

	"pasarku-be/internal/cart"
	"pasarku-be/internal/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// View models keep the wire format stable and camelCase regardless of how
// the domain structs evolve.

type CartView struct {
	ID          uuid.UUID       `json:"id"`
	UserID      *int64          `json:"userId,omitempty"`
	SessionID   *string         `json:"sessionId,omitempty"`
	Status      cart.Status     `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	TotalItems  int             `json:"totalItems"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	Items       []CartItemView  `json:"items"`
}

type CartItemView struct {
	ID                uuid.UUID       `json:"id"`
	ItemID            int64           `json:"itemId"`
	ItemName          string          `json:"itemName"`
	ItemDescription   *string         `json:"itemDescription,omitempty"`
	ItemImageURL      *string         `json:"itemImageUrl,omitempty"`
	SellerID          int64           `json:"sellerId"`
	SellerName        string          `json:"sellerName"`
	ProductAttributes string          `json:"productAttributes,omitempty"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int             `json:"quantity"`
	Subtotal          decimal.Decimal `json:"subtotal"`
}

func toCartView(c *cart.Cart) CartView {
	view := CartView{
		ID:          c.ID,
		UserID:      c.UserID,
		SessionID:   c.SessionID,
		Status:      c.Status,
		TotalAmount: c.TotalAmount,
		TotalItems:  c.TotalItems,
		ExpiresAt:   c.ExpiresAt,
		Items:       make([]CartItemView, 0, len(c.Items)),
	}
	for i := range c.Items {
		item := &c.Items[i]
		view.Items = append(view.Items, CartItemView{
			ID:                item.ID,
			ItemID:            item.ItemID,
			ItemName:          item.ItemName,
			ItemDescription:   item.ItemDescription,
			ItemImageURL:      item.ItemImageURL,
			SellerID:          item.SellerID,
			SellerName:        item.SellerName,
			ProductAttributes: item.ProductAttributes,
			Price:             item.Price,
			Quantity:          item.Quantity,
			Subtotal:          item.Subtotal,
		})
	}
	return view
}

type OrderView struct {
	ID                    uuid.UUID           `json:"id"`
	UserID                int64               `json:"userId"`
	CustomerName          string              `json:"customerName"`
	CustomerEmail         string              `json:"customerEmail"`
	CustomerPhone         string              `json:"customerPhone,omitempty"`
	Status                order.Status        `json:"status"`
	PaymentStatus         order.PaymentStatus `json:"paymentStatus"`
	PaymentMethod         order.PaymentMethod `json:"paymentMethod"`
	PaymentTransactionID  *string             `json:"paymentTransactionId,omitempty"`
	TotalAmount           decimal.Decimal     `json:"totalAmount"`
	ShippingCost          decimal.Decimal     `json:"shippingCost"`
	TaxAmount             decimal.Decimal     `json:"taxAmount"`
	DiscountAmount        decimal.Decimal     `json:"discountAmount"`
	FinalAmount           decimal.Decimal     `json:"finalAmount"`
	ShippingAddress       order.Address       `json:"shippingAddress"`
	BillingAddress        order.Address       `json:"billingAddress"`
	TrackingNumber        *string             `json:"trackingNumber,omitempty"`
	EstimatedDeliveryDate *time.Time          `json:"estimatedDeliveryDate,omitempty"`
	ActualDeliveryDate    *time.Time          `json:"actualDeliveryDate,omitempty"`
	Notes                 *string             `json:"notes,omitempty"`
	CreatedAt             time.Time           `json:"createdAt"`
	Items                 []OrderItemView     `json:"items,omitempty"`
	StatusHistory         []StatusEventView   `json:"statusHistory,omitempty"`
}

type OrderItemView struct {
	ID                uuid.UUID       `json:"id"`
	ItemID            int64           `json:"itemId"`
	ItemName          string          `json:"itemName"`
	ItemDescription   *string         `json:"itemDescription,omitempty"`
	ImageURL          *string         `json:"imageUrl,omitempty"`
	SellerID          int64           `json:"sellerId"`
	SellerName        string          `json:"sellerName"`
	ProductAttributes string          `json:"productAttributes,omitempty"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int             `json:"quantity"`
	Subtotal          decimal.Decimal `json:"subtotal"`
}

type StatusEventView struct {
	Status    order.Status `json:"status"`
	Reason    string       `json:"reason"`
	Timestamp time.Time    `json:"timestamp"`
}

func toOrderView(o *order.Order) OrderView {
	view := OrderView{
		ID:                    o.ID,
		UserID:                o.UserID,
		CustomerName:          o.CustomerName,
		CustomerEmail:         o.CustomerEmail,
		CustomerPhone:         o.CustomerPhone,
		Status:                o.Status,
		PaymentStatus:         o.PaymentStatus,
		PaymentMethod:         o.PaymentMethod,
		PaymentTransactionID:  o.PaymentTransactionID,
		TotalAmount:           o.TotalAmount,
		ShippingCost:          o.ShippingCost,
		TaxAmount:             o.TaxAmount,
		DiscountAmount:        o.DiscountAmount,
		FinalAmount:           o.FinalAmount,
		ShippingAddress:       o.ShippingAddress,
		BillingAddress:        o.BillingAddress,
		TrackingNumber:        o.TrackingNumber,
		EstimatedDeliveryDate: o.EstimatedDeliveryDate,
		ActualDeliveryDate:    o.ActualDeliveryDate,
		Notes:                 o.Notes,
		CreatedAt:             o.CreatedAt,
	}
	for i := range o.Items {
		item := &o.Items[i]
		view.Items = append(view.Items, OrderItemView{
			ID:                item.ID,
			ItemID:            item.ItemID,
			ItemName:          item.ItemName,
			ItemDescription:   item.ItemDescription,
			ImageURL:          item.ImageURL,
			SellerID:          item.SellerID,
			SellerName:        item.SellerName,
			ProductAttributes: item.ProductAttributes,
			Price:             item.Price,
			Quantity:          item.Quantity,
			Subtotal:          item.Subtotal,
		})
	}
	for i := range o.StatusHistory {
		event := &o.StatusHistory[i]
		view.StatusHistory = append(view.StatusHistory, StatusEventView{
			Status:    event.Status,
			Reason:    event.Reason,
			Timestamp: event.Timestamp,
		})
	}
	return view
}
