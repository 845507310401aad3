package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Repo runs the admin panel aggregations. Read-only; never touched by the
// order workflow.
type Repo struct{ DB *pgxpool.Pool }

type Stats struct {
	TotalSales      decimal.Decimal
	CompletedOrders int
	ProductsSold    int
	TotalProducts   int
	ProductsInStock int
	TotalCategories int
	PendingOrders   int
}

// Stats runs the seven dashboard counters concurrently; each query is
// independent so there is no point serializing them.
func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.DB.QueryRow(ctx,
			`SELECT COALESCE(SUM(total), 0) FROM orders WHERE status != 'cancelled'`,
		).Scan(&s.TotalSales)
	})
	g.Go(func() error {
		return r.DB.QueryRow(ctx,
			`SELECT COUNT(*) FROM orders WHERE status = 'delivered'`,
		).Scan(&s.CompletedOrders)
	})
	g.Go(func() error {
		return r.DB.QueryRow(ctx, `
			SELECT COALESCE(SUM(oi.quantity), 0)
			FROM order_items oi
			INNER JOIN orders o ON oi.order_id = o.id
			WHERE o.status != 'cancelled'`,
		).Scan(&s.ProductsSold)
	})
	g.Go(func() error {
		return r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&s.TotalProducts)
	})
	g.Go(func() error {
		return r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE stock > 0`).Scan(&s.ProductsInStock)
	})
	g.Go(func() error {
		return r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&s.TotalCategories)
	})
	g.Go(func() error {
		return r.DB.QueryRow(ctx,
			`SELECT COUNT(*) FROM orders WHERE status = 'pending'`,
		).Scan(&s.PendingOrders)
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return s, nil
}

type MonthlySales struct {
	Month       string // YYYY-MM
	OrdersCount int
	TotalSales  decimal.Decimal
}

// Sales returns per-month order counts and revenue for the last 12 months,
// excluding cancelled orders.
func (r *Repo) Sales(ctx context.Context) ([]MonthlySales, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT to_char(created_at, 'YYYY-MM') AS month,
		       COUNT(*),
		       COALESCE(SUM(total), 0)
		FROM orders
		WHERE status != 'cancelled'
		GROUP BY to_char(created_at, 'YYYY-MM')
		ORDER BY month DESC
		LIMIT 12`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonthlySales
	for rows.Next() {
		var m MonthlySales
		if err := rows.Scan(&m.Month, &m.OrdersCount, &m.TotalSales); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type TopProduct struct {
	ID           int64
	Name         string
	Price        decimal.Decimal
	TotalSold    int
	TotalRevenue decimal.Decimal
}

func (r *Repo) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.name, p.price,
		       COALESCE(SUM(oi.quantity), 0) AS total_sold,
		       COALESCE(SUM(oi.subtotal), 0) AS total_revenue
		FROM products p
		LEFT JOIN order_items oi ON p.id = oi.product_id
		LEFT JOIN orders o ON oi.order_id = o.id AND o.status != 'cancelled'
		GROUP BY p.id, p.name, p.price
		ORDER BY total_sold DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var p TopProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.TotalSold, &p.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
