package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct {
	DB      *pgxpool.Pool
	Pricing PricingConfig
}

// cartRow is one cart line joined with its product, read under row lock.
type cartRow struct {
	productID int64
	quantity  int
	price     decimal.Decimal
	stock     int
	name      string
	seller    string
	category  string
	imageURL  string
}

// PlaceOrder turns the user's cart into an order: header, price-snapshotted
// items, stock decrements and cart clearing happen in one transaction or not
// at all.
//
// The cart/product join takes FOR UPDATE locks on the product rows (in
// product id order, so two placements over the same products cannot deadlock),
// which pins stock between validation and decrement. The decrement itself is
// still conditional on stock >= quantity as a second guard.
func (r *Repo) PlaceOrder(ctx context.Context, userID int64) (*Order, error) {
	// Cheap pre-check so an empty cart never opens a transaction.
	var n int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM cart WHERE user_id=$1`, userID).Scan(&n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrEmptyCart
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lines, err := lockCartLines(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Validate against the stock we just locked.
	priced := make([]PricedLine, 0, len(lines))
	for _, l := range lines {
		if l.quantity > l.stock {
			return nil, &InsufficientStockError{
				ProductID: l.productID,
				Name:      l.name,
				Requested: l.quantity,
				Available: l.stock,
			}
		}
		priced = append(priced, PricedLine{UnitPrice: l.price, Quantity: l.quantity})
	}

	pricing := Quote(priced, r.Pricing)

	order := &Order{
		UserID:   userID,
		Status:   StatusPending,
		Subtotal: pricing.Subtotal,
		Shipping: pricing.Shipping,
		Tax:      pricing.Tax,
		Total:    pricing.Total,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(user_id, status, subtotal, shipping, tax, total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		userID, StatusPending, pricing.Subtotal, pricing.Shipping, pricing.Tax, pricing.Total,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}

	for _, l := range lines {
		item := Item{
			OrderID:   order.ID,
			ProductID: l.productID,
			Name:      l.name,
			Seller:    l.seller,
			Category:  l.category,
			ImageURL:  l.imageURL,
			Quantity:  l.quantity,
			Price:     l.price,
			Subtotal:  l.price.Mul(decimal.NewFromInt(int64(l.quantity))),
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, price, subtotal)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			order.ID, l.productID, l.quantity, item.Price, item.Subtotal,
		).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
		}

		ct, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2`, l.productID, l.quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
		}
		if ct.RowsAffected() != 1 {
			return nil, &InsufficientStockError{
				ProductID: l.productID,
				Name:      l.name,
				Requested: l.quantity,
				Available: l.stock,
			}
		}

		order.Items = append(order.Items, item)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart WHERE user_id=$1`, userID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderPersistence, err)
	}
	return order, nil
}

func lockCartLines(ctx context.Context, tx pgx.Tx, userID int64) ([]cartRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT c.product_id, c.quantity, p.price, p.stock, p.name, p.seller,
		       cat.name, p.image_url
		FROM cart c
		INNER JOIN products p ON c.product_id = p.id
		INNER JOIN categories cat ON p.category_id = cat.id
		WHERE c.user_id = $1
		ORDER BY c.product_id
		FOR UPDATE OF p`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cartRow
	for rows.Next() {
		var l cartRow
		if err := rows.Scan(&l.productID, &l.quantity, &l.price, &l.stock, &l.name,
			&l.seller, &l.category, &l.imageURL); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const orderColumns = `o.id, o.user_id, o.status, o.subtotal, o.shipping, o.tax, o.total, o.created_at`

// ListForUser returns the user's orders, newest first, items included.
func (r *Repo) ListForUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return r.collectOrders(ctx, rows, false)
}

// ListAll returns every order with the buyer's name and email, newest first.
func (r *Repo) ListAll(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderColumns+`, u.name, u.email
		FROM orders o
		INNER JOIN users u ON o.user_id = u.id
		ORDER BY o.created_at DESC`)
	if err != nil {
		return nil, err
	}
	return r.collectOrders(ctx, rows, true)
}

func (r *Repo) collectOrders(ctx context.Context, rows pgx.Rows, withUser bool) ([]Order, error) {
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		dest := []any{&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Shipping, &o.Tax, &o.Total, &o.CreatedAt}
		if withUser {
			dest = append(dest, &o.UserName, &o.UserEmail)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := r.loadItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// Get loads one order regardless of owner; callers enforce authorization.
func (r *Repo) Get(ctx context.Context, orderID int64) (*Order, error) {
	return r.get(ctx, `
		SELECT `+orderColumns+`, u.name, u.email
		FROM orders o
		INNER JOIN users u ON o.user_id = u.id
		WHERE o.id = $1`, true, orderID)
}

// GetForUser loads one order only if it belongs to the user.
func (r *Repo) GetForUser(ctx context.Context, orderID, userID int64) (*Order, error) {
	return r.get(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.id = $1 AND o.user_id = $2`, false, orderID, userID)
}

func (r *Repo) get(ctx context.Context, query string, withUser bool, args ...any) (*Order, error) {
	var o Order
	dest := []any{&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Shipping, &o.Tax, &o.Total, &o.CreatedAt}
	if withUser {
		dest = append(dest, &o.UserName, &o.UserEmail)
	}
	err := r.DB.QueryRow(ctx, query, args...).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *Repo) loadItems(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, p.seller, cat.name,
		       p.image_url, oi.quantity, oi.price, oi.subtotal
		FROM order_items oi
		INNER JOIN products p ON oi.product_id = p.id
		INNER JOIN categories cat ON p.category_id = cat.id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Seller,
			&it.Category, &it.ImageURL, &it.Quantity, &it.Price, &it.Subtotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpdateStatus is the only mutation an order accepts after creation.
func (r *Repo) UpdateStatus(ctx context.Context, orderID int64, status Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$1 WHERE id=$2`, status, orderID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
