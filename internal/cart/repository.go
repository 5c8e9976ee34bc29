package cart

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pasarku-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	GetActiveByOwner(ctx context.Context, owner Owner) (*Cart, error)
	GetByID(ctx context.Context, cartID uuid.UUID) (*Cart, error)
	Create(ctx context.Context, owner Owner, expiresAt time.Time) (*Cart, error)
	SetStatus(ctx context.Context, cartID uuid.UUID, status Status) error
	SetOwnerUser(ctx context.Context, cartID uuid.UUID, userID int64) error
	Touch(ctx context.Context, cartID uuid.UUID, expiresAt time.Time) error
	Delete(ctx context.Context, cartID uuid.UUID) error

	GetItem(ctx context.Context, cartItemID uuid.UUID) (*CartItem, error)
	GetItemByKey(ctx context.Context, cartID uuid.UUID, itemID int64, attributes string) (*CartItem, error)
	CreateItem(ctx context.Context, item *CartItem) (*CartItem, error)
	UpdateItem(ctx context.Context, item *CartItem) error
	MoveItem(ctx context.Context, cartItemID, destCartID uuid.UUID) error
	DeleteItem(ctx context.Context, cartItemID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
	CountItems(ctx context.Context, cartID uuid.UUID) (int, error)

	RecomputeTotals(ctx context.Context, cartID uuid.UUID) error

	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteOld(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const cartColumns = `
	id,
	user_id,
	session_id,
	status,
	total_amount,
	total_items,
	expires_at,
	created_at,
	updated_at
`

const cartItemColumns = `
	id,
	cart_id,
	item_id,
	item_name,
	item_description,
	item_image_url,
	seller_id,
	seller_name,
	product_attributes,
	price,
	quantity,
	subtotal,
	created_at,
	updated_at
`

func scanCart(row *sql.Row) (*Cart, error) {
	var c Cart
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.SessionID,
		&c.Status,
		&c.TotalAmount,
		&c.TotalItems,
		&c.ExpiresAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCartItem(row *sql.Row) (*CartItem, error) {
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ItemID,
		&i.ItemName,
		&i.ItemDescription,
		&i.ItemImageURL,
		&i.SellerID,
		&i.SellerName,
		&i.ProductAttributes,
		&i.Price,
		&i.Quantity,
		&i.Subtotal,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *repository) GetActiveByOwner(ctx context.Context, owner Owner) (*Cart, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}

	var query string
	var arg any
	if owner.UserID != nil {
		query = `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1 AND status = 'ACTIVE'`
		arg = *owner.UserID
	} else {
		query = `SELECT ` + cartColumns + ` FROM carts WHERE session_id = $1 AND status = 'ACTIVE'`
		arg = *owner.SessionID
	}

	c, err := scanCart(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.Items, err = r.listItems(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repository) GetByID(ctx context.Context, cartID uuid.UUID) (*Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE id = $1`

	c, err := scanCart(r.db.QueryRowContext(ctx, query, cartID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.Items, err = r.listItems(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new ACTIVE cart. The partial unique index on
// (user_id|session_id) WHERE status='ACTIVE' closes the read-then-create race
// between concurrent first requests; the loser gets ErrActiveCartExists and
// the service re-reads.
func (r *repository) Create(ctx context.Context, owner Owner, expiresAt time.Time) (*Cart, error) {
	if !owner.Valid() {
		return nil, ErrInvalidOwner
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
	)

	query := `
	INSERT INTO carts (id, user_id, session_id, status, total_amount, total_items, expires_at)
	VALUES ($1, $2, $3, 'ACTIVE', 0, 0, $4)
	RETURNING ` + cartColumns

	c, err := scanCart(r.db.QueryRowContext(ctx, query, uuid.New(), owner.UserID, owner.SessionID, expiresAt))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == PgUniqueViolation {
			return nil, ErrActiveCartExists
		}
		log.Error("failed to create cart", zap.Error(err))
		return nil, err
	}

	log.Info("cart created", zap.String("cart_id", c.ID.String()))
	c.Items = []CartItem{}
	return c, nil
}

func (r *repository) SetStatus(ctx context.Context, cartID uuid.UUID, status Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE carts
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, cartID)
	if err != nil {
		return err
	}
	return requireRowsAffected(res, ErrCartNotFound)
}

func (r *repository) SetOwnerUser(ctx context.Context, cartID uuid.UUID, userID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE carts
		SET user_id = $1, session_id = NULL, updated_at = NOW()
		WHERE id = $2
	`, userID, cartID)
	if err != nil {
		return err
	}
	return requireRowsAffected(res, ErrCartNotFound)
}

func (r *repository) Touch(ctx context.Context, cartID uuid.UUID, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE carts
		SET expires_at = $1, updated_at = NOW()
		WHERE id = $2
	`, expiresAt, cartID)
	if err != nil {
		return err
	}
	return requireRowsAffected(res, ErrCartNotFound)
}

func (r *repository) Delete(ctx context.Context, cartID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return err
	}
	return requireRowsAffected(res, ErrCartNotFound)
}

func (r *repository) GetItem(ctx context.Context, cartItemID uuid.UUID) (*CartItem, error) {
	query := `SELECT ` + cartItemColumns + ` FROM cart_items WHERE id = $1`

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, cartItemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

func (r *repository) GetItemByKey(ctx context.Context, cartID uuid.UUID, itemID int64, attributes string) (*CartItem, error) {
	query := `
	SELECT ` + cartItemColumns + `
	FROM cart_items
	WHERE cart_id = $1 AND item_id = $2 AND product_attributes = $3
	`

	item, err := scanCartItem(r.db.QueryRowContext(ctx, query, cartID, itemID, attributes))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

func (r *repository) CreateItem(ctx context.Context, item *CartItem) (*CartItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateItem"),
		zap.String("cart_id", item.CartID.String()),
		zap.Int64("item_id", item.ItemID),
	)

	query := `
	INSERT INTO cart_items (
		id,
		cart_id,
		item_id,
		item_name,
		item_description,
		item_image_url,
		seller_id,
		seller_name,
		product_attributes,
		price,
		quantity,
		subtotal
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING ` + cartItemColumns

	created, err := scanCartItem(r.db.QueryRowContext(
		ctx,
		query,
		uuid.New(),
		item.CartID,
		item.ItemID,
		item.ItemName,
		item.ItemDescription,
		item.ItemImageURL,
		item.SellerID,
		item.SellerName,
		item.ProductAttributes,
		item.Price,
		item.Quantity,
		item.Subtotal,
	))
	if err != nil {
		log.Error("failed to create cart item", zap.Error(err))
		return nil, err
	}

	log.Info("cart item created", zap.String("cart_item_id", created.ID.String()))
	return created, nil
}

func (r *repository) UpdateItem(ctx context.Context, item *CartItem) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items
		SET quantity = $1, price = $2, subtotal = $3, updated_at = NOW()
		WHERE id = $4
	`, item.Quantity, item.Price, item.Subtotal, item.ID)
	if err != nil {
		return err
	}
	return requireRowsAffected(res, ErrCartItemNotFound)
}

func (r *repository) MoveItem(ctx context.Context, cartItemID, destCartID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cart_items
		SET cart_id = $1, updated_at = NOW()
		WHERE id = $2
	`, destCartID, cartItemID)
	if err != nil {
		return err
	}
	return requireRowsAffected(res, ErrCartItemNotFound)
}

func (r *repository) DeleteItem(ctx context.Context, cartItemID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, cartItemID)
	if err != nil {
		return err
	}
	return requireRowsAffected(res, ErrCartItemNotFound)
}

func (r *repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

func (r *repository) CountItems(ctx context.Context, cartID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cart_items WHERE cart_id = $1`, cartID,
	).Scan(&count)
	return count, err
}

// RecomputeTotals rederives total_amount/total_items from the cart's rows so
// the denormalized columns can never drift from the items.
func (r *repository) RecomputeTotals(ctx context.Context, cartID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE carts
		SET total_amount = COALESCE((SELECT SUM(subtotal) FROM cart_items WHERE cart_id = $1), 0),
		    total_items  = COALESCE((SELECT SUM(quantity) FROM cart_items WHERE cart_id = $1), 0),
		    updated_at   = NOW()
		WHERE id = $1
	`, cartID)
	if err != nil {
		return err
	}
	return requireRowsAffected(res, ErrCartNotFound)
}

func (r *repository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE carts
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE status = 'ACTIVE' AND expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) DeleteOld(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM carts
		WHERE status IN ('EXPIRED', 'ABANDONED') AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) listItems(ctx context.Context, cartID uuid.UUID) ([]CartItem, error) {
	query := `
	SELECT ` + cartItemColumns + `
	FROM cart_items
	WHERE cart_id = $1
	ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]CartItem, 0)
	for rows.Next() {
		var i CartItem
		if err := rows.Scan(
			&i.ID,
			&i.CartID,
			&i.ItemID,
			&i.ItemName,
			&i.ItemDescription,
			&i.ItemImageURL,
			&i.SellerID,
			&i.SellerName,
			&i.ProductAttributes,
			&i.Price,
			&i.Quantity,
			&i.Subtotal,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}

	return items, rows.Err()
}

func requireRowsAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
