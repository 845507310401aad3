package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Line is one pending (product, quantity) entry joined with the live product
// record for display. Prices here are informational; the order workflow
// re-reads them under lock.
type Line struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	ImageURL  string
	Stock     int
	Seller    string
	Category  string
	Quantity  int
}

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrLineNotFound      = errors.New("product not in cart")
	ErrInsufficientStock = errors.New("not enough stock available")
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Lines(ctx context.Context, userID int64) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT c.product_id, p.name, p.price, p.image_url, p.stock, p.seller,
		       cat.name, c.quantity
		FROM cart c
		INNER JOIN products p ON c.product_id = p.id
		INNER JOIN categories cat ON p.category_id = cat.id
		WHERE c.user_id = $1
		ORDER BY c.product_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Price, &l.ImageURL, &l.Stock,
			&l.Seller, &l.Category, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Add merges into an existing line instead of duplicating: the (user_id,
// product_id) primary key plus the ON CONFLICT arithmetic keep one line per
// product even under concurrent adds.
func (r *Repo) Add(ctx context.Context, userID, productID int64, qty int) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stock int
	err = tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}

	var existing int
	err = tx.QueryRow(ctx, `
		SELECT quantity FROM cart
		WHERE user_id=$1 AND product_id=$2
		FOR UPDATE`, userID, productID).Scan(&existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if existing+qty > stock {
		return ErrInsufficientStock
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO cart(user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart.quantity + EXCLUDED.quantity`,
		userID, productID, qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SetQuantity replaces a line's quantity. Zero removes the line.
func (r *Repo) SetQuantity(ctx context.Context, userID, productID int64, qty int) error {
	if qty == 0 {
		return r.Remove(ctx, userID, productID)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stock int
	err = tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}
	if qty > stock {
		return ErrInsufficientStock
	}

	ct, err := tx.Exec(ctx, `
		UPDATE cart SET quantity=$1
		WHERE user_id=$2 AND product_id=$3`, qty, userID, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return tx.Commit(ctx)
}

// Remove is idempotent; deleting an absent line is not an error.
func (r *Repo) Remove(ctx context.Context, userID, productID int64) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart WHERE user_id=$1 AND product_id=$2`, userID, productID)
	return err
}

func (r *Repo) Clear(ctx context.Context, userID int64) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart WHERE user_id=$1`, userID)
	return err
}
