package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/greenmarket/storefront/internal/redisx"
	"github.com/greenmarket/storefront/internal/reports"
)

type ReportStore interface {
	Stats(ctx context.Context) (reports.Stats, error)
	Sales(ctx context.Context) ([]reports.MonthlySales, error)
	TopProducts(ctx context.Context, limit int) ([]reports.TopProduct, error)
}

type ReportsHandler struct {
	Reports ReportStore
	Redis   *redis.Client // optional stats cache; nil disables caching
}

func (h *ReportsHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Get("/api/reports/stats", h.stats)
		r.Get("/api/reports/sales", h.sales)
		r.Get("/api/reports/top-products", h.topProducts)
	})
}

type statsJSON struct {
	TotalSales      float64 `json:"totalSales"`
	CompletedOrders int     `json:"completedOrders"`
	ProductsSold    int     `json:"productsSold"`
	TotalProducts   int     `json:"totalProducts"`
	ProductsInStock int     `json:"productsInStock"`
	TotalCategories int     `json:"totalCategories"`
	PendingOrders   int     `json:"pendingOrders"`
}

func (h *ReportsHandler) stats(w http.ResponseWriter, r *http.Request) {
	// Dashboard stats are expensive-ish and tolerate staleness; serve the
	// cached copy when present.
	if h.Redis != nil {
		if b, err := h.Redis.Get(r.Context(), redisx.KeyReportStats).Bytes(); err == nil {
			var cached statsJSON
			if json.Unmarshal(b, &cached) == nil {
				respondData(w, cached)
				return
			}
		}
	}

	s, err := h.Reports.Stats(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	out := statsJSON{
		TotalSales:      money(s.TotalSales),
		CompletedOrders: s.CompletedOrders,
		ProductsSold:    s.ProductsSold,
		TotalProducts:   s.TotalProducts,
		ProductsInStock: s.ProductsInStock,
		TotalCategories: s.TotalCategories,
		PendingOrders:   s.PendingOrders,
	}

	if h.Redis != nil {
		if b, err := json.Marshal(out); err == nil {
			_ = h.Redis.Set(r.Context(), redisx.KeyReportStats, b, redisx.TTLStatsCache).Err()
		}
	}
	respondData(w, out)
}

type monthlySalesJSON struct {
	Month       string  `json:"month"`
	OrdersCount int     `json:"orders_count"`
	TotalSales  float64 `json:"total_sales"`
}

func (h *ReportsHandler) sales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Reports.Sales(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	out := make([]monthlySalesJSON, 0, len(sales))
	for _, s := range sales {
		out = append(out, monthlySalesJSON{
			Month:       s.Month,
			OrdersCount: s.OrdersCount,
			TotalSales:  money(s.TotalSales),
		})
	}
	respondData(w, out)
}

type topProductJSON struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	TotalSold    int     `json:"total_sold"`
	TotalRevenue float64 `json:"total_revenue"`
}

func (h *ReportsHandler) topProducts(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	top, err := h.Reports.TopProducts(r.Context(), limit)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	out := make([]topProductJSON, 0, len(top))
	for _, p := range top {
		out = append(out, topProductJSON{
			ID:           p.ID,
			Name:         p.Name,
			Price:        money(p.Price),
			TotalSold:    p.TotalSold,
			TotalRevenue: money(p.TotalRevenue),
		})
	}
	respondData(w, out)
}
