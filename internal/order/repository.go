package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pasarku-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	CreateTx(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*Order, error)
	ListByUser(ctx context.Context, userID int64, status *Status) ([]*Order, error)

	// UpdateStatus is the single transition primitive: when the new status
	// differs from the current one it appends a history entry and mutates
	// the status column in the same transaction, so ledger and current
	// state cannot diverge.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status Status, reason string) error

	SetTracking(ctx context.Context, orderID uuid.UUID, trackingNumber string, eta *time.Time) error
	SetActualDelivery(ctx context.Context, orderID uuid.UUID, deliveredAt time.Time) error
	SetPaymentStatus(ctx context.Context, orderID uuid.UUID, status PaymentStatus, transactionID *string) error

	FindPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*Order, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	id,
	user_id,
	customer_name,
	customer_email,
	customer_phone,
	status,
	payment_status,
	payment_method,
	payment_transaction_id,
	total_amount,
	shipping_cost,
	tax_amount,
	discount_amount,
	final_amount,
	shipping_line1,
	shipping_line2,
	shipping_city,
	shipping_state,
	shipping_zip_code,
	shipping_country,
	billing_line1,
	billing_line2,
	billing_city,
	billing_state,
	billing_zip_code,
	billing_country,
	tracking_number,
	estimated_delivery_date,
	actual_delivery_date,
	notes,
	created_at,
	updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	// line2 is nullable in the schema.
	var shippingLine2, billingLine2 sql.NullString
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.CustomerPhone,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentMethod,
		&o.PaymentTransactionID,
		&o.TotalAmount,
		&o.ShippingCost,
		&o.TaxAmount,
		&o.DiscountAmount,
		&o.FinalAmount,
		&o.ShippingAddress.Line1,
		&shippingLine2,
		&o.ShippingAddress.City,
		&o.ShippingAddress.State,
		&o.ShippingAddress.ZipCode,
		&o.ShippingAddress.Country,
		&o.BillingAddress.Line1,
		&billingLine2,
		&o.BillingAddress.City,
		&o.BillingAddress.State,
		&o.BillingAddress.ZipCode,
		&o.BillingAddress.Country,
		&o.TrackingNumber,
		&o.EstimatedDeliveryDate,
		&o.ActualDeliveryDate,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.ShippingAddress.Line2 = shippingLine2.String
	o.BillingAddress.Line2 = billingLine2.String
	return &o, nil
}

func (r *repository) CreateTx(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateTx"),
		zap.String("order_id", o.ID.String()),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, customer_name, customer_email, customer_phone,
			status, payment_status, payment_method, payment_transaction_id,
			total_amount, shipping_cost, tax_amount, discount_amount, final_amount,
			shipping_line1, shipping_line2, shipping_city, shipping_state, shipping_zip_code, shipping_country,
			billing_line1, billing_line2, billing_city, billing_state, billing_zip_code, billing_country,
			tracking_number, estimated_delivery_date, actual_delivery_date, notes
		)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26,
			$27, $28, $29, $30
		)
	`,
		o.ID, o.UserID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.Status, o.PaymentStatus, o.PaymentMethod, o.PaymentTransactionID,
		o.TotalAmount, o.ShippingCost, o.TaxAmount, o.DiscountAmount, o.FinalAmount,
		o.ShippingAddress.Line1, o.ShippingAddress.Line2, o.ShippingAddress.City,
		o.ShippingAddress.State, o.ShippingAddress.ZipCode, o.ShippingAddress.Country,
		o.BillingAddress.Line1, o.BillingAddress.Line2, o.BillingAddress.City,
		o.BillingAddress.State, o.BillingAddress.ZipCode, o.BillingAddress.Country,
		o.TrackingNumber, o.EstimatedDeliveryDate, o.ActualDeliveryDate, o.Notes,
	)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return err
	}

	for i := range o.Items {
		item := &o.Items[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, item_id, item_name, item_description, image_url,
				seller_id, seller_name, product_attributes, price, quantity, subtotal
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			item.ID, o.ID, item.ItemID, item.ItemName, item.ItemDescription, item.ImageURL,
			item.SellerID, item.SellerName, item.ProductAttributes,
			item.Price, item.Quantity, item.Subtotal,
		)
		if err != nil {
			log.Error("failed to insert order item", zap.Error(err))
			return err
		}
	}

	for i := range o.StatusHistory {
		event := &o.StatusHistory[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_status_history (order_id, status, reason, created_at)
			VALUES ($1, $2, $3, $4)
		`, o.ID, event.Status, event.Reason, event.Timestamp)
		if err != nil {
			log.Error("failed to insert status history", zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info("order persisted", zap.Int("items", len(o.Items)))
	return nil
}

func (r *repository) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE tracking_number = $1`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, trackingNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByUser returns order summaries (no items or history) newest first.
func (r *repository) ListByUser(ctx context.Context, userID int64, status *Status) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1`
	args := []any{userID}

	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status Status, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current Status
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}

	if current == status {
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, status, reason, created_at)
		VALUES ($1, $2, $3, NOW())
	`, orderID, status, reason)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return tx.Commit()
}

func (r *repository) SetTracking(ctx context.Context, orderID uuid.UUID, trackingNumber string, eta *time.Time) error {
	query := `UPDATE orders SET tracking_number = $1, updated_at = NOW() WHERE id = $2`
	args := []any{trackingNumber, orderID}

	if eta != nil {
		query = `UPDATE orders SET tracking_number = $1, estimated_delivery_date = $2, updated_at = NOW() WHERE id = $3`
		args = []any{trackingNumber, *eta, orderID}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

func (r *repository) SetActualDelivery(ctx context.Context, orderID uuid.UUID, deliveredAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET actual_delivery_date = $1, updated_at = NOW() WHERE id = $2
	`, deliveredAt, orderID)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

func (r *repository) SetPaymentStatus(ctx context.Context, orderID uuid.UUID, status PaymentStatus, transactionID *string) error {
	var res sql.Result
	var err error

	if transactionID != nil {
		res, err = r.db.ExecContext(ctx, `
			UPDATE orders SET payment_status = $1, payment_transaction_id = $2, updated_at = NOW() WHERE id = $3
		`, status, *transactionID, orderID)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2
		`, status, orderID)
	}
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

func (r *repository) FindPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM orders WHERE status = 'PENDING' AND created_at < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orders := make([]*Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if o != nil {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (r *repository) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, item_id, item_name, item_description, image_url,
		       seller_id, seller_name, product_attributes, price, quantity, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	o.Items = make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ItemID,
			&item.ItemName,
			&item.ItemDescription,
			&item.ImageURL,
			&item.SellerID,
			&item.SellerName,
			&item.ProductAttributes,
			&item.Price,
			&item.Quantity,
			&item.Subtotal,
		); err != nil {
			return err
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func (r *repository) loadHistory(ctx context.Context, o *Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, reason, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	o.StatusHistory = make([]StatusEvent, 0)
	for rows.Next() {
		var event StatusEvent
		if err := rows.Scan(&event.Status, &event.Reason, &event.Timestamp); err != nil {
			return err
		}
		o.StatusHistory = append(o.StatusHistory, event)
	}
	return rows.Err()
}

func requireRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
