package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pasarku-be/internal/cart"
	"pasarku-be/internal/inventory"
	"pasarku-be/internal/logger"
	"pasarku-be/internal/metrics"
	"pasarku-be/internal/tracing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// defaultDeliveryEstimate is the initial ETA stamped on a new order.
const defaultDeliveryEstimate = 7 * 24 * time.Hour

type CreateOrderParams struct {
	CartID          uuid.UUID
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress Address
	BillingAddress  Address
	PaymentMethod   PaymentMethod
	ShippingCost    decimal.Decimal
	TaxAmount       decimal.Decimal
	DiscountAmount  decimal.Decimal
	Notes           *string
}

type Service interface {
	CreateFromCart(ctx context.Context, userID int64, params CreateOrderParams) (*Order, error)

	GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error)
	GetByIDAndUser(ctx context.Context, orderID uuid.UUID, userID int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64, status *Status) ([]*Order, error)
	TrackByNumber(ctx context.Context, trackingNumber string) (*Order, error)

	Confirm(ctx context.Context, orderID uuid.UUID) (*Order, error)
	Ship(ctx context.Context, orderID uuid.UUID, trackingNumber string, eta *time.Time) (*Order, error)
	Deliver(ctx context.Context, orderID uuid.UUID, deliveredAt *time.Time) (*Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, userID int64, isAdmin bool, reason string) (*Order, error)
	RequestReturn(ctx context.Context, orderID uuid.UUID, userID int64, reason string) (*Order, error)
	ChangeStatus(ctx context.Context, orderID uuid.UUID, status Status, reason, trackingNumber string) (*Order, error)

	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status PaymentStatus, transactionID *string) (*Order, error)
	ProcessPaymentCallback(ctx context.Context, orderID uuid.UUID, rawStatus string, transactionID *string) (*Order, error)

	ProcessAutomaticStatusUpdates(ctx context.Context, olderThan time.Duration) (int, error)
}

type service struct {
	repo    Repository
	carts   cart.Service
	gateway inventory.Gateway
}

func NewService(repo Repository, carts cart.Service, gateway inventory.Gateway) Service {
	return &service{repo: repo, carts: carts, gateway: gateway}
}

// CreateFromCart converts the user's cart into a PENDING order: item data is
// snapshotted, stock is reserved per item, and the cart is retired. A failed
// reservation releases everything reserved so far before reporting failure.
func (s *service) CreateFromCart(ctx context.Context, userID int64, params CreateOrderParams) (*Order, error) {
	ctx, span := tracing.Start(ctx, "order.create_from_cart")
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.Int64("user_id", userID),
		zap.String("cart_id", params.CartID.String()),
	)

	c, err := s.carts.GetByID(ctx, params.CartID)
	if errors.Is(err, cart.ErrCartNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.UserID == nil || *c.UserID != userID {
		return nil, ErrCartNotOwned
	}
	if len(c.Items) == 0 {
		return nil, ErrCartEmpty
	}

	now := time.Now()
	eta := now.Add(defaultDeliveryEstimate)

	o := &Order{
		ID:                    uuid.New(),
		UserID:                userID,
		CustomerName:          params.CustomerName,
		CustomerEmail:         params.CustomerEmail,
		CustomerPhone:         params.CustomerPhone,
		Status:                StatusPending,
		PaymentStatus:         PaymentPending,
		PaymentMethod:         params.PaymentMethod,
		ShippingCost:          params.ShippingCost,
		TaxAmount:             params.TaxAmount,
		DiscountAmount:        params.DiscountAmount,
		ShippingAddress:       params.ShippingAddress,
		BillingAddress:        params.BillingAddress,
		EstimatedDeliveryDate: &eta,
		Notes:                 params.Notes,
	}

	o.Items = make([]OrderItem, 0, len(c.Items))
	for i := range c.Items {
		ci := &c.Items[i]
		o.Items = append(o.Items, OrderItem{
			ID:                uuid.New(),
			OrderID:           o.ID,
			ItemID:            ci.ItemID,
			ItemName:          ci.ItemName,
			ItemDescription:   ci.ItemDescription,
			ImageURL:          ci.ItemImageURL,
			SellerID:          ci.SellerID,
			SellerName:        ci.SellerName,
			ProductAttributes: ci.ProductAttributes,
			Price:             ci.Price,
			Quantity:          ci.Quantity,
			Subtotal:          ci.Subtotal,
		})
	}
	o.CalculateTotals()
	o.StatusHistory = []StatusEvent{{
		Status:    StatusPending,
		Reason:    "Order created",
		Timestamp: now,
	}}

	if err := s.reserveAll(ctx, o.Items); err != nil {
		return nil, err
	}

	if err := s.repo.CreateTx(ctx, o); err != nil {
		s.releaseAll(ctx, o.Items)
		return nil, err
	}

	// Cart retirement is best-effort: the order already exists and an
	// orphaned cart is cleaned up by the retention job.
	if err := s.carts.MarkConverted(ctx, c.ID); err != nil {
		metrics.ConvertNotifyFailures.Inc()
		log.Warn("failed to retire converted cart", zap.Error(err))
	}

	metrics.OrdersCreated.Inc()
	log.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.Int("items", len(o.Items)),
		zap.String("final_amount", o.FinalAmount.String()),
	)
	return o, nil
}

// reserveAll reserves stock for every item; on failure it releases the
// reserved prefix so no stock is left decremented for an order that never
// existed.
func (s *service) reserveAll(ctx context.Context, items []OrderItem) error {
	for i := range items {
		if err := s.gateway.Reserve(ctx, items[i].ItemID, items[i].Quantity); err != nil {
			metrics.ReservationFailures.Inc()
			s.releaseAll(ctx, items[:i])

			if errors.Is(err, inventory.ErrInsufficientStock) || errors.Is(err, inventory.ErrItemNotFound) {
				return fmt.Errorf("%w: item %d", ErrStockUnavailable, items[i].ItemID)
			}
			return fmt.Errorf("failed to reserve stock for item %d: %w", items[i].ItemID, err)
		}
	}
	return nil
}

func (s *service) releaseAll(ctx context.Context, items []OrderItem) {
	log := logger.FromCtx(ctx)
	for i := range items {
		if err := s.gateway.Release(ctx, items[i].ItemID, items[i].Quantity); err != nil {
			log.Error("failed to release reserved stock",
				zap.Int64("item_id", items[i].ItemID),
				zap.Int("quantity", items[i].Quantity),
				zap.Error(err),
			)
		}
	}
}

func (s *service) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) GetByIDAndUser(ctx context.Context, orderID uuid.UUID, userID int64) (*Order, error) {
	o, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotOwned
	}
	return o, nil
}

func (s *service) ListByUser(ctx context.Context, userID int64, status *Status) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID, status)
}

func (s *service) TrackByNumber(ctx context.Context, trackingNumber string) (*Order, error) {
	o, err := s.repo.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) Confirm(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return s.transition(ctx, orderID, StatusConfirmed, "Order confirmed")
}

func (s *service) Ship(ctx context.Context, orderID uuid.UUID, trackingNumber string, eta *time.Time) (*Order, error) {
	o, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, StatusShipped) {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusShipped}
	}

	if err := s.repo.SetTracking(ctx, orderID, trackingNumber, eta); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, orderID, StatusShipped, "Order shipped"); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, orderID)
}

func (s *service) Deliver(ctx context.Context, orderID uuid.UUID, deliveredAt *time.Time) (*Order, error) {
	o, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, StatusDelivered) {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusDelivered}
	}

	when := time.Now()
	if deliveredAt != nil {
		when = *deliveredAt
	}
	if err := s.repo.SetActualDelivery(ctx, orderID, when); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, orderID, StatusDelivered, "Order delivered"); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, orderID)
}

// Cancel cancels a cancellable order. Non-admin callers must own the order.
// Reserved stock is released best-effort.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, userID int64, isAdmin bool, reason string) (*Order, error) {
	o, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && o.UserID != userID {
		return nil, ErrNotOwned
	}
	if !o.CanBeCancelled() {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusCancelled}
	}

	if reason == "" {
		reason = "Cancelled by customer"
	}
	if err := s.repo.UpdateStatus(ctx, orderID, StatusCancelled, reason); err != nil {
		return nil, err
	}

	s.releaseAll(ctx, o.Items)

	logger.FromCtx(ctx).Info("order cancelled",
		zap.String("order_id", orderID.String()),
		zap.String("reason", reason),
	)
	return s.GetByID(ctx, orderID)
}

func (s *service) RequestReturn(ctx context.Context, orderID uuid.UUID, userID int64, reason string) (*Order, error) {
	o, err := s.GetByIDAndUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if !o.CanBeReturned(time.Now()) {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusReturned}
	}

	if reason == "" {
		reason = "Return requested by customer"
	}
	if err := s.repo.UpdateStatus(ctx, orderID, StatusReturned, reason); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, orderID)
}

// ChangeStatus is the admin-facing transition, still constrained by the
// status graph. A tracking number supplied alongside the transition is
// persisted first, so moving to SHIPPED through this path behaves like Ship.
func (s *service) ChangeStatus(ctx context.Context, orderID uuid.UUID, status Status, reason, trackingNumber string) (*Order, error) {
	o, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, status) {
		return nil, &InvalidTransitionError{From: o.Status, To: status}
	}

	if trackingNumber != "" {
		if err := s.repo.SetTracking(ctx, orderID, trackingNumber, nil); err != nil {
			return nil, err
		}
	}

	if reason == "" {
		reason = fmt.Sprintf("Status changed to %s", status)
	}
	if err := s.repo.UpdateStatus(ctx, orderID, status, reason); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, orderID)
}

func (s *service) transition(ctx context.Context, orderID uuid.UUID, to Status, reason string) (*Order, error) {
	o, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, &InvalidTransitionError{From: o.Status, To: to}
	}

	if err := s.repo.UpdateStatus(ctx, orderID, to, reason); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, orderID)
}

// UpdatePaymentStatus records the payment outcome and couples it to the order
// status: a completed payment confirms a pending order, a failed payment
// force-cancels regardless of the status graph.
func (s *service) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status PaymentStatus, transactionID *string) (*Order, error) {
	o, err := s.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetPaymentStatus(ctx, orderID, status, transactionID); err != nil {
		return nil, err
	}

	switch status {
	case PaymentCompleted:
		if o.Status == StatusPending {
			if err := s.repo.UpdateStatus(ctx, orderID, StatusConfirmed, "Payment completed"); err != nil {
				return nil, err
			}
		}
	case PaymentFailed:
		if err := s.repo.UpdateStatus(ctx, orderID, StatusCancelled, "Payment failed"); err != nil {
			return nil, err
		}
		s.releaseAll(ctx, o.Items)
	}

	return s.GetByID(ctx, orderID)
}

// ProcessPaymentCallback maps a provider's free-form status string onto the
// payment state machine. Unrecognized statuses are treated as still in
// flight.
func (s *service) ProcessPaymentCallback(ctx context.Context, orderID uuid.UUID, rawStatus string, transactionID *string) (*Order, error) {
	logger.FromCtx(ctx).Info("payment callback received",
		zap.String("order_id", orderID.String()),
		zap.String("raw_status", rawStatus),
	)

	var status PaymentStatus
	switch strings.ToLower(rawStatus) {
	case "success", "completed":
		status = PaymentCompleted
	case "failed", "error":
		status = PaymentFailed
	default:
		status = PaymentProcessing
	}

	return s.UpdatePaymentStatus(ctx, orderID, status, transactionID)
}

// ProcessAutomaticStatusUpdates cancels PENDING orders older than the given
// age and releases their reserved stock. Returns how many were cancelled.
func (s *service) ProcessAutomaticStatusUpdates(ctx context.Context, olderThan time.Duration) (int, error) {
	ctx, span := tracing.Start(ctx, "order.auto_cancel")
	defer span.End()

	log := logger.FromCtx(ctx)

	stale, err := s.repo.FindPendingOlderThan(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale pending orders: %w", err)
	}

	cancelled := 0
	for _, o := range stale {
		if err := s.repo.UpdateStatus(ctx, o.ID, StatusCancelled, "Auto-cancelled due to timeout"); err != nil {
			log.Error("failed to auto-cancel order",
				zap.String("order_id", o.ID.String()),
				zap.Error(err),
			)
			continue
		}
		s.releaseAll(ctx, o.Items)
		metrics.OrdersAutoCancelled.Inc()
		cancelled++
	}

	if cancelled > 0 {
		log.Info("auto-cancelled stale pending orders", zap.Int("count", cancelled))
	}
	return cancelled, nil
}
