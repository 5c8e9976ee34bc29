package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderColumnNames = []string{
	"id", "user_id", "customer_name", "customer_email", "customer_phone",
	"status", "payment_status", "payment_method", "payment_transaction_id",
	"total_amount", "shipping_cost", "tax_amount", "discount_amount", "final_amount",
	"shipping_line1", "shipping_line2", "shipping_city", "shipping_state", "shipping_zip_code", "shipping_country",
	"billing_line1", "billing_line2", "billing_city", "billing_state", "billing_zip_code", "billing_country",
	"tracking_number", "estimated_delivery_date", "actual_delivery_date", "notes",
	"created_at", "updated_at",
}

var orderItemColumnNames = []string{
	"id", "order_id", "item_id", "item_name", "item_description", "image_url",
	"seller_id", "seller_name", "product_attributes", "price", "quantity", "subtotal",
}

var historyColumnNames = []string{"status", "reason", "created_at"}

func newOrderRow(orderID uuid.UUID, status Status) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(orderColumnNames).AddRow(
		orderID.String(), int64(1), "Budi", "budi@example.com", "+62811111111",
		status, PaymentPending, PaymentBankTransfer, nil,
		"100.00", "10.00", "5.00", "0", "115.00",
		"Jl. Merdeka 1", nil, "Jakarta", "DKI", "10110", "ID",
		"Jl. Merdeka 1", nil, "Jakarta", "DKI", "10110", "ID",
		nil, now.AddDate(0, 0, 7), nil, nil,
		now, now,
	)
}

func TestRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1`).
			WithArgs(orderID).
			WillReturnRows(newOrderRow(orderID, StatusPending))
		mock.ExpectQuery(`SELECT .* FROM order_items\s+WHERE order_id = \$1`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows(orderItemColumnNames).AddRow(
				uuid.NewString(), orderID.String(), int64(42), "Arabica Beans", nil, nil,
				int64(7), "Kopi Nusantara", "", "50.00", 2, "100.00",
			))
		mock.ExpectQuery(`SELECT status, reason, created_at\s+FROM order_status_history`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows(historyColumnNames).
				AddRow(StatusPending, "Order created", time.Now()))

		o, err := repo.GetByID(ctx, orderID)
		assert.NoError(t, err)
		require.NotNil(t, o)
		assert.Equal(t, StatusPending, o.Status)
		assert.Len(t, o.Items, 1)
		assert.Len(t, o.StatusHistory, 1)

		// NULL line2 columns scan to empty strings.
		assert.Equal(t, "", o.ShippingAddress.Line2)
		assert.Equal(t, "", o.BillingAddress.Line2)
	})

	t.Run("NotFoundReturnsNil", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows(orderColumnNames))

		o, err := repo.GetByID(ctx, orderID)
		assert.NoError(t, err)
		assert.Nil(t, o)
	})
}

func TestRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("All", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM orders WHERE user_id = \$1 ORDER BY created_at DESC`).
			WithArgs(int64(1)).
			WillReturnRows(newOrderRow(uuid.New(), StatusDelivered))

		orders, err := repo.ListByUser(ctx, 1, nil)
		assert.NoError(t, err)
		assert.Len(t, orders, 1)
	})

	t.Run("FilteredByStatus", func(t *testing.T) {
		status := StatusPending
		mock.ExpectQuery(`SELECT .* FROM orders WHERE user_id = \$1 AND status = \$2 ORDER BY created_at DESC`).
			WithArgs(int64(1), status).
			WillReturnRows(newOrderRow(uuid.New(), StatusPending))

		orders, err := repo.ListByUser(ctx, 1, &status)
		assert.NoError(t, err)
		assert.Len(t, orders, 1)
	})
}

func TestRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("AppendsHistoryAndMutatesAtomically", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM orders WHERE id = \$1 FOR UPDATE`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusPending))
		mock.ExpectExec(`INSERT INTO order_status_history`).
			WithArgs(orderID, StatusConfirmed, "Payment completed").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`UPDATE orders SET status = \$1`).
			WithArgs(StatusConfirmed, orderID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.UpdateStatus(ctx, orderID, StatusConfirmed, "Payment completed")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SameStatusIsNoOp", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM orders WHERE id = \$1 FOR UPDATE`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusConfirmed))
		mock.ExpectCommit()

		err := repo.UpdateStatus(ctx, orderID, StatusConfirmed, "noop")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownOrder", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM orders WHERE id = \$1 FOR UPDATE`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))
		mock.ExpectRollback()

		err := repo.UpdateStatus(ctx, orderID, StatusConfirmed, "x")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("HistoryInsertFailureRollsBack", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM orders WHERE id = \$1 FOR UPDATE`).
			WithArgs(orderID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusPending))
		mock.ExpectExec(`INSERT INTO order_status_history`).
			WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		err := repo.UpdateStatus(ctx, orderID, StatusConfirmed, "x")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_CreateTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	o := &Order{
		ID:     uuid.New(),
		UserID: 1,
		Status: StatusPending,
		Items: []OrderItem{
			{ID: uuid.New(), ItemID: 42, ItemName: "Arabica Beans", Quantity: 2},
		},
		StatusHistory: []StatusEvent{
			{Status: StatusPending, Reason: "Order created", Timestamp: time.Now()},
		},
	}
	o.Items[0].OrderID = o.ID

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO order_status_history`).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.CreateTx(ctx, o))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ItemInsertFailureRollsBack", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO order_items`).WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		assert.Error(t, repo.CreateTx(ctx, o))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_SetTracking(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("WithoutEta", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET tracking_number = \$1, updated_at = NOW\(\) WHERE id = \$2`).
			WithArgs("JNE-123", orderID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SetTracking(ctx, orderID, "JNE-123", nil))
	})

	t.Run("WithEta", func(t *testing.T) {
		eta := time.Now().AddDate(0, 0, 3)
		mock.ExpectExec(`UPDATE orders SET tracking_number = \$1, estimated_delivery_date = \$2`).
			WithArgs("JNE-123", eta, orderID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SetTracking(ctx, orderID, "JNE-123", &eta))
	})

	t.Run("UnknownOrder", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders SET tracking_number`).
			WithArgs("JNE-123", orderID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetTracking(ctx, orderID, "JNE-123", nil)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}
