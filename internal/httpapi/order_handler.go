package httpapi

import (
	"net/http"
	"time"

	"pasarku-be/internal/middleware"
	"pasarku-be/internal/order"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const callbackTokenHeader = "X-Callback-Token"

type OrderHandler struct {
	orders order.Service

	// callbackToken authenticates the payment collaborator webhook. Empty
	// disables the check (local development).
	callbackToken string
}

func NewOrderHandler(orders order.Service, callbackToken string) *OrderHandler {
	return &OrderHandler{orders: orders, callbackToken: callbackToken}
}

func (h *OrderHandler) Routes(r chi.Router) {
	r.Get("/track/{trackingNumber}", h.track)
	r.Post("/{id}/payment-callback", h.paymentCallback)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Post("/{id}/cancel", h.cancel)
		r.Post("/{id}/return", h.requestReturn)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Put("/{id}/status", h.changeStatus)
		r.Post("/{id}/confirm", h.confirm)
		r.Post("/{id}/ship", h.ship)
		r.Post("/{id}/deliver", h.deliver)
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		if !middleware.IsAdmin(r.Context()) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}

type createOrderRequest struct {
	CartID          uuid.UUID           `json:"cartId"`
	CustomerName    string              `json:"customerName"`
	CustomerEmail   string              `json:"customerEmail"`
	CustomerPhone   string              `json:"customerPhone"`
	ShippingAddress order.Address       `json:"shippingAddress"`
	BillingAddress  *order.Address      `json:"billingAddress"`
	PaymentMethod   order.PaymentMethod `json:"paymentMethod"`
	ShippingCost    decimal.Decimal     `json:"shippingCost"`
	TaxAmount       decimal.Decimal     `json:"taxAmount"`
	DiscountAmount  decimal.Decimal     `json:"discountAmount"`
	Notes           *string             `json:"notes"`
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CartID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "cartId is required")
		return
	}

	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	o, err := h.orders.CreateFromCart(r.Context(), userID, order.CreateOrderParams{
		CartID:          req.CartID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		PaymentMethod:   req.PaymentMethod,
		ShippingCost:    req.ShippingCost,
		TaxAmount:       req.TaxAmount,
		DiscountAmount:  req.DiscountAmount,
		Notes:           req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderView(o))
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var status *order.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := order.Status(raw)
		status = &s
	}

	orders, err := h.orders.ListByUser(r.Context(), userID, status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var o *order.Order
	var err error
	if middleware.IsAdmin(r.Context()) {
		o, err = h.orders.GetByID(r.Context(), orderID)
	} else {
		o, err = h.orders.GetByIDAndUser(r.Context(), orderID, userID)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (h *OrderHandler) track(w http.ResponseWriter, r *http.Request) {
	trackingNumber := chi.URLParam(r, "trackingNumber")

	o, err := h.orders.TrackByNumber(r.Context(), trackingNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) cancel(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req reasonRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.Cancel(r.Context(), orderID, userID, middleware.IsAdmin(r.Context()), req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (h *OrderHandler) requestReturn(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req reasonRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.RequestReturn(r.Context(), orderID, userID, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (h *OrderHandler) confirm(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Confirm(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

type shipRequest struct {
	TrackingNumber        string     `json:"trackingNumber"`
	EstimatedDeliveryDate *time.Time `json:"estimatedDeliveryDate"`
}

func (h *OrderHandler) ship(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req shipRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TrackingNumber == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "trackingNumber is required")
		return
	}

	o, err := h.orders.Ship(r.Context(), orderID, req.TrackingNumber, req.EstimatedDeliveryDate)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

type deliverRequest struct {
	ActualDeliveryDate *time.Time `json:"actualDeliveryDate"`
}

func (h *OrderHandler) deliver(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req deliverRequest
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.Deliver(r.Context(), orderID, req.ActualDeliveryDate)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

type changeStatusRequest struct {
	Status         order.Status `json:"status"`
	Reason         string       `json:"reason"`
	TrackingNumber string       `json:"trackingNumber"`
}

func (h *OrderHandler) changeStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req changeStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "status is required")
		return
	}

	o, err := h.orders.ChangeStatus(r.Context(), orderID, req.Status, req.Reason, req.TrackingNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

type paymentCallbackRequest struct {
	Status        string  `json:"status"`
	TransactionID *string `json:"transactionId"`
}

// paymentCallback is the inbound webhook from the payment collaborator. It is
// authenticated by a shared token header rather than a user session.
func (h *OrderHandler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	if h.callbackToken != "" && r.Header.Get(callbackTokenHeader) != h.callbackToken {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid callback token")
		return
	}

	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	var req paymentCallbackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.ProcessPaymentCallback(r.Context(), orderID, req.Status, req.TransactionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}
