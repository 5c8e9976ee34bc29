package inventory

import "github.com/shopspring/decimal"

// Item is the catalog snapshot served by the item service.
type Item struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	ImageURL      string          `json:"imageUrl"`
	SellerID      int64           `json:"sellerId"`
	SellerName    string          `json:"sellerName"`
	Category      string          `json:"category"`
	Status        string          `json:"status"`
}

type Availability struct {
	ItemID            int64  `json:"itemId"`
	Available         bool   `json:"available"`
	AvailableQuantity int    `json:"availableQuantity"`
	Message           string `json:"message"`
}

type reservationRequest struct {
	ItemID   int64 `json:"itemId"`
	Quantity int   `json:"quantity"`
}
