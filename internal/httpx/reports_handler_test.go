package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmarket/storefront/internal/reports"
)

type fakeReports struct {
	stats     reports.Stats
	sales     []reports.MonthlySales
	top       []reports.TopProduct
	lastLimit int
}

func (f *fakeReports) Stats(_ context.Context) (reports.Stats, error) { return f.stats, nil }
func (f *fakeReports) Sales(_ context.Context) ([]reports.MonthlySales, error) {
	return f.sales, nil
}
func (f *fakeReports) TopProducts(_ context.Context, limit int) ([]reports.TopProduct, error) {
	f.lastLimit = limit
	return f.top, nil
}

func reportsTestServer(store *fakeReports) (http.Handler, *fakeSessions) {
	r, sessions := testRouter()
	(&ReportsHandler{Reports: store}).Register(r)
	return r, sessions
}

func TestReportsAdminOnly(t *testing.T) {
	srv, sessions := reportsTestServer(&fakeReports{})

	for _, path := range []string{"/api/reports/stats", "/api/reports/sales", "/api/reports/top-products"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)

		req = httptest.NewRequest(http.MethodGet, path, nil)
		asIdentity(req, sessions, buyer())
		rec = httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
}

func TestReportsStats(t *testing.T) {
	store := &fakeReports{stats: reports.Stats{
		TotalSales:      decimal.RequireFromString("123.45"),
		CompletedOrders: 4,
		ProductsSold:    17,
		TotalProducts:   30,
		ProductsInStock: 28,
		TotalCategories: 6,
		PendingOrders:   2,
	}}
	srv, sessions := reportsTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/stats", nil)
	asIdentity(req, sessions, admin())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data statsJSON `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 123.45, resp.Data.TotalSales)
	assert.Equal(t, 4, resp.Data.CompletedOrders)
	assert.Equal(t, 2, resp.Data.PendingOrders)
}

func TestReportsSales(t *testing.T) {
	store := &fakeReports{sales: []reports.MonthlySales{
		{Month: "2024-03", OrdersCount: 8, TotalSales: decimal.RequireFromString("210.40")},
		{Month: "2024-02", OrdersCount: 5, TotalSales: decimal.RequireFromString("98.00")},
	}}
	srv, sessions := reportsTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/sales", nil)
	asIdentity(req, sessions, admin())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []monthlySalesJSON `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "2024-03", resp.Data[0].Month)
	assert.Equal(t, 210.40, resp.Data[0].TotalSales)
}

func TestReportsTopProductsLimit(t *testing.T) {
	store := &fakeReports{top: []reports.TopProduct{{
		ID: 3, Name: "Organic Apples",
		Price:        decimal.RequireFromString("3.50"),
		TotalSold:    40,
		TotalRevenue: decimal.RequireFromString("140.00"),
	}}}
	srv, sessions := reportsTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/top-products?limit=3", nil)
	asIdentity(req, sessions, admin())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, store.lastLimit)

	var resp struct {
		Data []topProductJSON `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 140.00, resp.Data[0].TotalRevenue)
	assert.Equal(t, 40, resp.Data[0].TotalSold)
}
