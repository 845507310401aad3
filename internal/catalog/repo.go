package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const (
	SortName      = "name"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortRating    = "rating"
)

// OrderBy maps a client sort key onto a whitelisted ORDER BY clause; anything
// unknown falls back to name. Never interpolate the raw key into SQL.
func OrderBy(sort string) string {
	switch sort {
	case SortPriceLow:
		return "p.price ASC"
	case SortPriceHigh:
		return "p.price DESC"
	case SortRating:
		return "p.rating DESC"
	default:
		return "p.name ASC"
	}
}

type Filter struct {
	Search   string
	Category string
	Sort     string
}

const productColumns = `p.id, p.name, p.description, p.price, c.name, p.seller,
	p.stock, p.image_url, p.rating, p.reviews_count, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.Seller,
		&p.Stock, &p.ImageURL, &p.Rating, &p.Reviews, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		INNER JOIN categories c ON p.category_id = c.id
		WHERE 1=1`
	var args []any

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (p.name ILIKE $%d OR p.description ILIKE $%d OR p.seller ILIKE $%d)", n, n, n)
	}
	if f.Category != "" && f.Category != "all" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND c.name = $%d", len(args))
	}
	query += " ORDER BY " + OrderBy(f.Sort)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+`
		FROM products p
		INNER JOIN categories c ON p.category_id = c.id
		WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) categoryID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `SELECT id FROM categories WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrCategoryNotFound
	}
	return id, err
}

// Create inserts a new product. New products start with the default rating and
// no reviews, matching the storefront's seeded look.
func (r *Repo) Create(ctx context.Context, in ProductInput) (Product, error) {
	catID, err := r.categoryID(ctx, in.Category)
	if err != nil {
		return Product{}, err
	}
	var id int64
	err = r.DB.QueryRow(ctx, `
		INSERT INTO products(name, description, price, category_id, seller, stock, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		in.Name, in.Description, in.Price, catID, in.Seller, in.Stock, in.ImageURL,
	).Scan(&id)
	if err != nil {
		return Product{}, err
	}
	return r.Get(ctx, id)
}

func (r *Repo) Update(ctx context.Context, id int64, in ProductInput) (Product, error) {
	catID, err := r.categoryID(ctx, in.Category)
	if err != nil {
		return Product{}, err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE products
		SET name=$1, description=$2, price=$3, category_id=$4, seller=$5, stock=$6,
		    image_url=$7, updated_at=now()
		WHERE id=$8`,
		in.Name, in.Description, in.Price, catID, in.Seller, in.Stock, in.ImageURL, id)
	if err != nil {
		return Product{}, err
	}
	if ct.RowsAffected() == 0 {
		return Product{}, ErrProductNotFound
	}
	return r.Get(ctx, id)
}

// Delete refuses to remove a product that appears on an order; order items
// are historical records and keep their product reference.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrProductReferenced
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
