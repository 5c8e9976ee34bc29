package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pasarku-be/internal/inventory"
	"pasarku-be/internal/logger"
	"pasarku-be/internal/metrics"
	"pasarku-be/internal/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AddItemParams struct {
	ItemID            int64
	Quantity          int
	ProductAttributes string
}

// Config carries the cart business-rule knobs.
type Config struct {
	ExpirationDays int
	MaxItems       int
	RetentionDays  int
	// StrictValidate makes Validate abort on inventory gateway failures
	// instead of leaving the affected item as-is.
	StrictValidate bool
}

func (c Config) withDefaults() Config {
	if c.ExpirationDays <= 0 {
		c.ExpirationDays = 7
	}
	if c.MaxItems <= 0 {
		c.MaxItems = 50
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	return c
}

// Service defines the business logic for carts.
type Service interface {
	GetOrCreate(ctx context.Context, owner Owner) (*Cart, error)
	AddItem(ctx context.Context, owner Owner, params AddItemParams) (*Cart, error)
	UpdateItem(ctx context.Context, owner Owner, cartItemID uuid.UUID, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, owner Owner, cartItemID uuid.UUID) (*Cart, error)
	Clear(ctx context.Context, owner Owner) (*Cart, error)
	TransferGuestToUser(ctx context.Context, sessionID string, userID int64) (*Cart, error)
	Validate(ctx context.Context, owner Owner) (*Cart, error)
	ExtendExpiration(ctx context.Context, owner Owner, days int) (*Cart, error)

	// Used by the order orchestrator.
	GetByID(ctx context.Context, cartID uuid.UUID) (*Cart, error)
	MarkConverted(ctx context.Context, cartID uuid.UUID) error

	CleanupExpired(ctx context.Context) (marked, deleted int64, err error)
}

type service struct {
	repo    Repository
	gateway inventory.Gateway
	cfg     Config
}

func NewService(repo Repository, gateway inventory.Gateway, cfg Config) Service {
	return &service{repo: repo, gateway: gateway, cfg: cfg.withDefaults()}
}

func (s *service) expiry() time.Time {
	return time.Now().AddDate(0, 0, s.cfg.ExpirationDays)
}

// GetOrCreate returns the owner's ACTIVE non-expired cart, creating one when
// absent. Every successful fetch extends the expiration window.
func (s *service) GetOrCreate(ctx context.Context, owner Owner) (*Cart, error) {
	cart, err := s.activeCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Touch(ctx, cart.ID, s.expiry()); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

// activeCart fetches the owner's ACTIVE cart, retiring an expired one and
// creating a replacement when needed. Does not extend expiry.
func (s *service) activeCart(ctx context.Context, owner Owner) (*Cart, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}

	log := logger.FromCtx(ctx)

	cart, err := s.repo.GetActiveByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	if cart != nil {
		if !cart.IsExpired() {
			return cart, nil
		}
		// Mark as expired and fall through to create a fresh cart.
		if err := s.repo.SetStatus(ctx, cart.ID, StatusExpired); err != nil {
			return nil, err
		}
		log.Info("expired cart retired", zap.String("cart_id", cart.ID.String()))
	}

	created, err := s.repo.Create(ctx, owner, s.expiry())
	if errors.Is(err, ErrActiveCartExists) {
		// Lost the create race; the winner's cart is the owner's cart.
		return s.repo.GetActiveByOwner(ctx, owner)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) AddItem(ctx context.Context, owner Owner, params AddItemParams) (*Cart, error) {
	if params.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	log := logger.FromCtx(ctx).With(
		zap.Int64("item_id", params.ItemID),
		zap.Int("quantity", params.Quantity),
	)

	cart, err := s.activeCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	item, err := s.gateway.GetItem(ctx, params.ItemID)
	if err != nil {
		if errors.Is(err, inventory.ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInventoryUnavailable, err)
	}

	count, err := s.repo.CountItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if count >= s.cfg.MaxItems {
		return nil, ErrCartFull
	}

	existing, err := s.repo.GetItemByKey(ctx, cart.ID, params.ItemID, params.ProductAttributes)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		newQuantity := existing.Quantity + params.Quantity
		if err := s.validateStock(ctx, params.ItemID, newQuantity); err != nil {
			return nil, err
		}

		existing.Quantity = newQuantity
		existing.CalculateSubtotal()
		if err := s.repo.UpdateItem(ctx, existing); err != nil {
			return nil, err
		}
		log.Info("merged quantity into existing cart item",
			zap.String("cart_item_id", existing.ID.String()),
			zap.Int("new_quantity", newQuantity),
		)
	} else {
		if err := s.validateStock(ctx, params.ItemID, params.Quantity); err != nil {
			return nil, err
		}

		newItem := &CartItem{
			CartID:            cart.ID,
			ItemID:            item.ID,
			ItemName:          item.Name,
			SellerID:          item.SellerID,
			SellerName:        item.SellerName,
			ProductAttributes: params.ProductAttributes,
			Price:             item.Price,
			Quantity:          params.Quantity,
		}
		if item.Description != "" {
			newItem.ItemDescription = &item.Description
		}
		if item.ImageURL != "" {
			newItem.ItemImageURL = &item.ImageURL
		}
		newItem.CalculateSubtotal()

		created, err := s.repo.CreateItem(ctx, newItem)
		if err != nil {
			return nil, err
		}
		log.Info("item added to cart", zap.String("cart_item_id", created.ID.String()))
	}

	if err := s.repo.RecomputeTotals(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

func (s *service) UpdateItem(ctx context.Context, owner Owner, cartItemID uuid.UUID, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.activeCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.GetItem(ctx, cartItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	if item.CartID != cart.ID {
		return nil, ErrNotOwned
	}

	if err := s.validateStock(ctx, item.ItemID, quantity); err != nil {
		return nil, err
	}

	item.Quantity = quantity
	item.CalculateSubtotal()
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, err
	}

	if err := s.repo.RecomputeTotals(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, cartItemID uuid.UUID) (*Cart, error) {
	cart, err := s.activeCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.GetItem(ctx, cartItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	if item.CartID != cart.ID {
		return nil, ErrNotOwned
	}

	if err := s.repo.DeleteItem(ctx, cartItemID); err != nil {
		return nil, err
	}

	if err := s.repo.RecomputeTotals(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

func (s *service) Clear(ctx context.Context, owner Owner) (*Cart, error) {
	cart, err := s.activeCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteItems(ctx, cart.ID); err != nil {
		return nil, err
	}

	if err := s.repo.RecomputeTotals(ctx, cart.ID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

func (s *service) ExtendExpiration(ctx context.Context, owner Owner, days int) (*Cart, error) {
	if days < 1 {
		days = s.cfg.ExpirationDays
	}

	cart, err := s.activeCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Touch(ctx, cart.ID, time.Now().AddDate(0, 0, days)); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cart.ID)
}

// TransferGuestToUser merges a guest cart into the user's cart. Retrying
// after the guest cart is gone is a no-op returning the user's cart.
func (s *service) TransferGuestToUser(ctx context.Context, sessionID string, userID int64) (*Cart, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("session_id", sessionID),
		zap.Int64("user_id", userID),
	)

	guest, err := s.repo.GetActiveByOwner(ctx, GuestOwner(sessionID))
	if err != nil {
		return nil, err
	}
	if guest == nil {
		return s.GetOrCreate(ctx, UserOwner(userID))
	}

	userCart, err := s.repo.GetActiveByOwner(ctx, UserOwner(userID))
	if err != nil {
		return nil, err
	}

	if userCart == nil {
		// No user cart yet: reassign ownership wholesale.
		if err := s.repo.SetOwnerUser(ctx, guest.ID, userID); err != nil {
			return nil, err
		}
		log.Info("guest cart reassigned to user")
		return s.GetOrCreate(ctx, UserOwner(userID))
	}

	// Merge guest items into the existing user cart.
	for i := range guest.Items {
		guestItem := &guest.Items[i]

		existing, err := s.repo.GetItemByKey(ctx, userCart.ID, guestItem.ItemID, guestItem.ProductAttributes)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			existing.Quantity += guestItem.Quantity
			existing.CalculateSubtotal()
			if err := s.repo.UpdateItem(ctx, existing); err != nil {
				return nil, err
			}
		} else {
			if err := s.repo.MoveItem(ctx, guestItem.ID, userCart.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := s.repo.Delete(ctx, guest.ID); err != nil {
		return nil, err
	}
	log.Info("guest cart merged into user cart",
		zap.String("user_cart_id", userCart.ID.String()),
		zap.Int("guest_items", len(guest.Items)),
	)

	if err := s.repo.RecomputeTotals(ctx, userCart.ID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userCart.ID)
}

// Validate re-checks every cart item against the inventory gateway: vanished
// or unavailable items are removed, shrunken stock clamps quantity, changed
// prices are refreshed. In the default forgiving mode a per-item gateway
// failure leaves that item untouched.
func (s *service) Validate(ctx context.Context, owner Owner) (*Cart, error) {
	ctx, span := tracing.Start(ctx, "cart.validate")
	defer span.End()

	log := logger.FromCtx(ctx)

	cart, err := s.activeCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	changed := false

	for i := range cart.Items {
		item := &cart.Items[i]
		logItem := log.With(zap.Int64("item_id", item.ItemID))

		current, err := s.gateway.GetItem(ctx, item.ItemID)
		if errors.Is(err, inventory.ErrItemNotFound) {
			if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
				return nil, err
			}
			changed = true
			logItem.Warn("removed vanished item from cart")
			continue
		}
		if err != nil {
			if s.cfg.StrictValidate {
				return nil, fmt.Errorf("%w: %v", ErrInventoryUnavailable, err)
			}
			metrics.CartValidateItemSkips.Inc()
			logItem.Error("skipping item validation, gateway unreachable", zap.Error(err))
			continue
		}

		if !item.Price.Equal(current.Price) {
			item.Price = current.Price
			item.CalculateSubtotal()
			if err := s.repo.UpdateItem(ctx, item); err != nil {
				return nil, err
			}
			changed = true
			logItem.Info("refreshed cart item price")
		}

		availability, err := s.gateway.CheckAvailability(ctx, item.ItemID)
		if err != nil {
			if s.cfg.StrictValidate {
				return nil, fmt.Errorf("%w: %v", ErrInventoryUnavailable, err)
			}
			metrics.CartValidateItemSkips.Inc()
			logItem.Error("skipping availability check, gateway unreachable", zap.Error(err))
			continue
		}

		if !availability.Available {
			if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
				return nil, err
			}
			changed = true
			logItem.Warn("removed unavailable item from cart")
		} else if item.Quantity > availability.AvailableQuantity {
			item.Quantity = availability.AvailableQuantity
			item.CalculateSubtotal()
			if err := s.repo.UpdateItem(ctx, item); err != nil {
				return nil, err
			}
			changed = true
			logItem.Info("clamped cart item quantity to available stock",
				zap.Int("available", availability.AvailableQuantity),
			)
		}
	}

	if changed {
		if err := s.repo.RecomputeTotals(ctx, cart.ID); err != nil {
			return nil, err
		}
	}
	return s.repo.GetByID(ctx, cart.ID)
}

func (s *service) GetByID(ctx context.Context, cartID uuid.UUID) (*Cart, error) {
	cart, err := s.repo.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return cart, nil
}

// MarkConverted retires a cart whose contents became an order. The cart is
// not retained after conversion.
func (s *service) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	if err := s.repo.SetStatus(ctx, cartID, StatusConverted); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, cartID); err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("cart converted and removed", zap.String("cart_id", cartID.String()))
	return nil
}

func (s *service) CleanupExpired(ctx context.Context) (int64, int64, error) {
	ctx, span := tracing.Start(ctx, "cart.cleanup_expired")
	defer span.End()

	log := logger.FromCtx(ctx)
	now := time.Now()

	marked, err := s.repo.MarkExpired(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to mark expired carts: %w", err)
	}
	metrics.CartsExpired.Add(float64(marked))

	cutoff := now.AddDate(0, 0, -s.cfg.RetentionDays)
	deleted, err := s.repo.DeleteOld(ctx, cutoff)
	if err != nil {
		return marked, 0, fmt.Errorf("failed to delete old carts: %w", err)
	}
	metrics.CartsDeleted.Add(float64(deleted))

	log.Info("cart cleanup finished",
		zap.Int64("marked_expired", marked),
		zap.Int64("deleted", deleted),
	)
	return marked, deleted, nil
}

// validateStock checks requested quantity against current availability.
// Gateway failures are tolerated here, matching add-to-cart semantics: the
// authoritative check happens again at checkout.
func (s *service) validateStock(ctx context.Context, itemID int64, quantity int) error {
	availability, err := s.gateway.CheckAvailability(ctx, itemID)
	if err != nil {
		logger.FromCtx(ctx).Warn("unable to check stock availability",
			zap.Int64("item_id", itemID),
			zap.Error(err),
		)
		return nil
	}

	if !availability.Available {
		return ErrStockUnavailable
	}
	if quantity > availability.AvailableQuantity {
		return ErrStockUnavailable
	}
	return nil
}
