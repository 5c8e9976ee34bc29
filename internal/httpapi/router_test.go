package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pasarku-be/internal/cart"
	"pasarku-be/internal/middleware"
	"pasarku-be/internal/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fakes override only the methods a test exercises; the embedded interface
// panics on anything unexpected.

type fakeCartService struct {
	cart.Service
	getOrCreate func(ctx context.Context, owner cart.Owner) (*cart.Cart, error)
	addItem     func(ctx context.Context, owner cart.Owner, params cart.AddItemParams) (*cart.Cart, error)
	transfer    func(ctx context.Context, sessionID string, userID int64) (*cart.Cart, error)
}

func (f *fakeCartService) GetOrCreate(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
	return f.getOrCreate(ctx, owner)
}

func (f *fakeCartService) AddItem(ctx context.Context, owner cart.Owner, params cart.AddItemParams) (*cart.Cart, error) {
	return f.addItem(ctx, owner, params)
}

func (f *fakeCartService) TransferGuestToUser(ctx context.Context, sessionID string, userID int64) (*cart.Cart, error) {
	return f.transfer(ctx, sessionID, userID)
}

type fakeOrderService struct {
	order.Service
	create       func(ctx context.Context, userID int64, params order.CreateOrderParams) (*order.Order, error)
	cancel       func(ctx context.Context, orderID uuid.UUID, userID int64, isAdmin bool, reason string) (*order.Order, error)
	confirm      func(ctx context.Context, orderID uuid.UUID) (*order.Order, error)
	changeStatus func(ctx context.Context, orderID uuid.UUID, status order.Status, reason, trackingNumber string) (*order.Order, error)
	callback     func(ctx context.Context, orderID uuid.UUID, rawStatus string, transactionID *string) (*order.Order, error)
	track        func(ctx context.Context, trackingNumber string) (*order.Order, error)
}

func (f *fakeOrderService) CreateFromCart(ctx context.Context, userID int64, params order.CreateOrderParams) (*order.Order, error) {
	return f.create(ctx, userID, params)
}

func (f *fakeOrderService) Cancel(ctx context.Context, orderID uuid.UUID, userID int64, isAdmin bool, reason string) (*order.Order, error) {
	return f.cancel(ctx, orderID, userID, isAdmin, reason)
}

func (f *fakeOrderService) Confirm(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	return f.confirm(ctx, orderID)
}

func (f *fakeOrderService) ChangeStatus(ctx context.Context, orderID uuid.UUID, status order.Status, reason, trackingNumber string) (*order.Order, error) {
	return f.changeStatus(ctx, orderID, status, reason, trackingNumber)
}

func (f *fakeOrderService) ProcessPaymentCallback(ctx context.Context, orderID uuid.UUID, rawStatus string, transactionID *string) (*order.Order, error) {
	return f.callback(ctx, orderID, rawStatus, transactionID)
}

func (f *fakeOrderService) TrackByNumber(ctx context.Context, trackingNumber string) (*order.Order, error) {
	return f.track(ctx, trackingNumber)
}

func guestCart(sessionID string) *cart.Cart {
	return &cart.Cart{
		ID:        uuid.New(),
		SessionID: &sessionID,
		Status:    cart.StatusActive,
		ExpiresAt: time.Now().AddDate(0, 0, 7),
		Items:     []cart.CartItem{},
	}
}

func asUser(r *http.Request, userID int64, role string) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), userID, role))
}

func TestGetCart(t *testing.T) {
	t.Run("AnonymousGetsSessionCookie", func(t *testing.T) {
		var seenOwner cart.Owner
		carts := &fakeCartService{
			getOrCreate: func(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
				seenOwner = owner
				return guestCart(*owner.SessionID), nil
			},
		}
		router := NewRouter(carts, &fakeOrderService{}, "")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.True(t, seenOwner.IsGuest())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "cart_session", cookies[0].Name)
		assert.Equal(t, *seenOwner.SessionID, cookies[0].Value)
	})

	t.Run("SessionHeaderWinsOverCookie", func(t *testing.T) {
		var seenOwner cart.Owner
		carts := &fakeCartService{
			getOrCreate: func(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
				seenOwner = owner
				return guestCart(*owner.SessionID), nil
			},
		}
		router := NewRouter(carts, &fakeOrderService{}, "")

		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("X-Session-ID", "sess-header")
		req.AddCookie(&http.Cookie{Name: "cart_session", Value: "sess-cookie"})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "sess-header", *seenOwner.SessionID)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("AuthenticatedUserWins", func(t *testing.T) {
		var seenOwner cart.Owner
		carts := &fakeCartService{
			getOrCreate: func(ctx context.Context, owner cart.Owner) (*cart.Cart, error) {
				seenOwner = owner
				userID := *owner.UserID
				return &cart.Cart{ID: uuid.New(), UserID: &userID, Status: cart.StatusActive, Items: []cart.CartItem{}}, nil
			},
		}
		router := NewRouter(carts, &fakeOrderService{}, "")

		req := asUser(httptest.NewRequest(http.MethodGet, "/cart", nil), 7, "user")
		req.Header.Set("X-Session-ID", "sess-header")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seenOwner.UserID)
		assert.Equal(t, int64(7), *seenOwner.UserID)
	})
}

func TestAddItem_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"ItemNotFound", cart.ErrItemNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"CartFull", cart.ErrCartFull, http.StatusBadRequest, "BUSINESS_RULE_VIOLATION"},
		{"StockUnavailable", cart.ErrStockUnavailable, http.StatusBadRequest, "BUSINESS_RULE_VIOLATION"},
		{"GatewayDown", cart.ErrInventoryUnavailable, http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			carts := &fakeCartService{
				addItem: func(ctx context.Context, owner cart.Owner, params cart.AddItemParams) (*cart.Cart, error) {
					return nil, tc.err
				},
			}
			router := NewRouter(carts, &fakeOrderService{}, "")

			body := bytes.NewBufferString(`{"itemId": 42, "quantity": 1}`)
			req := httptest.NewRequest(http.MethodPost, "/cart/items", body)
			req.Header.Set("X-Session-ID", "sess-1")

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantCode, resp.Code)
		})
	}
}

func TestTransfer(t *testing.T) {
	t.Run("RequiresAuthentication", func(t *testing.T) {
		router := NewRouter(&fakeCartService{}, &fakeOrderService{}, "")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/transfer?guestSessionId=s1", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("MergesGuestCart", func(t *testing.T) {
		carts := &fakeCartService{
			transfer: func(ctx context.Context, sessionID string, userID int64) (*cart.Cart, error) {
				assert.Equal(t, "s1", sessionID)
				assert.Equal(t, int64(7), userID)
				uid := userID
				return &cart.Cart{ID: uuid.New(), UserID: &uid, Status: cart.StatusActive, Items: []cart.CartItem{}}, nil
			},
		}
		router := NewRouter(carts, &fakeOrderService{}, "")

		req := asUser(httptest.NewRequest(http.MethodPost, "/cart/transfer?guestSessionId=s1", nil), 7, "user")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCreateOrder(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		cartID := uuid.New()
		orders := &fakeOrderService{
			create: func(ctx context.Context, userID int64, params order.CreateOrderParams) (*order.Order, error) {
				assert.Equal(t, int64(7), userID)
				assert.Equal(t, cartID, params.CartID)
				// billing falls back to shipping when omitted
				assert.Equal(t, params.ShippingAddress, params.BillingAddress)
				return &order.Order{
					ID:          uuid.New(),
					UserID:      userID,
					Status:      order.StatusPending,
					FinalAmount: decimal.RequireFromString("57.00"),
				}, nil
			},
		}
		router := NewRouter(&fakeCartService{}, orders, "")

		payload := map[string]any{
			"cartId":        cartID,
			"customerName":  "Budi",
			"customerEmail": "budi@example.com",
			"paymentMethod": "BANK_TRANSFER",
			"shippingCost":  "5.00",
			"taxAmount":     "2.00",
			"shippingAddress": map[string]string{
				"addressLine1": "Jl. Merdeka 1", "city": "Jakarta",
				"state": "DKI", "zipCode": "10110", "country": "ID",
			},
		}
		body, _ := json.Marshal(payload)

		req := asUser(httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body)), 7, "user")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var view OrderView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, order.StatusPending, view.Status)
	})

	t.Run("AnonymousRejected", func(t *testing.T) {
		router := NewRouter(&fakeCartService{}, &fakeOrderService{}, "")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{}")))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestCancelOrder_InvalidTransition(t *testing.T) {
	orderID := uuid.New()
	orders := &fakeOrderService{
		cancel: func(ctx context.Context, id uuid.UUID, userID int64, isAdmin bool, reason string) (*order.Order, error) {
			return nil, &order.InvalidTransitionError{From: order.StatusShipped, To: order.StatusCancelled}
		},
	}
	router := NewRouter(&fakeCartService{}, orders, "")

	req := asUser(httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/cancel", nil), 7, "user")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_STATE_TRANSITION", resp.Code)
}

func TestAdminGuards(t *testing.T) {
	orderID := uuid.New()

	t.Run("NonAdminForbidden", func(t *testing.T) {
		router := NewRouter(&fakeCartService{}, &fakeOrderService{}, "")

		req := asUser(httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/confirm", nil), 7, "user")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("AdminAllowed", func(t *testing.T) {
		orders := &fakeOrderService{
			confirm: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
				return &order.Order{ID: id, Status: order.StatusConfirmed}, nil
			},
		}
		router := NewRouter(&fakeCartService{}, orders, "")

		req := asUser(httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/confirm", nil), 1, "admin")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("StatusUpdateForwardsTrackingNumber", func(t *testing.T) {
		var seenTracking string
		orders := &fakeOrderService{
			changeStatus: func(ctx context.Context, id uuid.UUID, status order.Status, reason, trackingNumber string) (*order.Order, error) {
				seenTracking = trackingNumber
				return &order.Order{ID: id, Status: status}, nil
			},
		}
		router := NewRouter(&fakeCartService{}, orders, "")

		body := bytes.NewBufferString(`{"status": "SHIPPED", "trackingNumber": "JNE-777"}`)
		req := asUser(httptest.NewRequest(http.MethodPut, "/orders/"+orderID.String()+"/status", body), 1, "admin")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "JNE-777", seenTracking)
	})
}

func TestPaymentCallback(t *testing.T) {
	orderID := uuid.New()

	t.Run("RejectsBadToken", func(t *testing.T) {
		router := NewRouter(&fakeCartService{}, &fakeOrderService{}, "secret")

		body := bytes.NewBufferString(`{"status": "success"}`)
		req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/payment-callback", body)
		req.Header.Set("X-Callback-Token", "wrong")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ProcessesWithValidToken", func(t *testing.T) {
		orders := &fakeOrderService{
			callback: func(ctx context.Context, id uuid.UUID, rawStatus string, transactionID *string) (*order.Order, error) {
				assert.Equal(t, "success", rawStatus)
				require.NotNil(t, transactionID)
				assert.Equal(t, "txn-1", *transactionID)
				return &order.Order{ID: id, Status: order.StatusConfirmed, PaymentStatus: order.PaymentCompleted}, nil
			},
		}
		router := NewRouter(&fakeCartService{}, orders, "secret")

		body := bytes.NewBufferString(`{"status": "success", "transactionId": "txn-1"}`)
		req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/payment-callback", body)
		req.Header.Set("X-Callback-Token", "secret")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var view OrderView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, order.PaymentCompleted, view.PaymentStatus)
	})
}

func TestTrackOrder(t *testing.T) {
	t.Run("PublicLookup", func(t *testing.T) {
		orders := &fakeOrderService{
			track: func(ctx context.Context, trackingNumber string) (*order.Order, error) {
				assert.Equal(t, "JNE-123", trackingNumber)
				tn := trackingNumber
				return &order.Order{ID: uuid.New(), Status: order.StatusShipped, TrackingNumber: &tn}, nil
			},
		}
		router := NewRouter(&fakeCartService{}, orders, "")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/track/JNE-123", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("UnknownNumber", func(t *testing.T) {
		orders := &fakeOrderService{
			track: func(ctx context.Context, trackingNumber string) (*order.Order, error) {
				return nil, order.ErrOrderNotFound
			},
		}
		router := NewRouter(&fakeCartService{}, orders, "")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/track/NOPE", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	router := NewRouter(&fakeCartService{}, &fakeOrderService{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
