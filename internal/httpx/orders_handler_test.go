package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmarket/storefront/internal/orders"
)

type fakeOrderStore struct {
	placeOrderFn   func(ctx context.Context, userID int64) (*orders.Order, error)
	listForUser    []orders.Order
	listAll        []orders.Order
	updatedStatus  orders.Status
	updateStatusID int64
	updateErr      error
	getErr         error
	order          *orders.Order
}

func (f *fakeOrderStore) PlaceOrder(ctx context.Context, userID int64) (*orders.Order, error) {
	return f.placeOrderFn(ctx, userID)
}
func (f *fakeOrderStore) ListForUser(context.Context, int64) ([]orders.Order, error) {
	return f.listForUser, nil
}
func (f *fakeOrderStore) ListAll(context.Context) ([]orders.Order, error) {
	return f.listAll, nil
}
func (f *fakeOrderStore) Get(_ context.Context, _ int64) (*orders.Order, error) {
	return f.order, f.getErr
}
func (f *fakeOrderStore) GetForUser(_ context.Context, _, _ int64) (*orders.Order, error) {
	return f.order, f.getErr
}
func (f *fakeOrderStore) UpdateStatus(_ context.Context, id int64, s orders.Status) error {
	f.updateStatusID, f.updatedStatus = id, s
	return f.updateErr
}

type fakePublisher struct {
	keys   [][]byte
	values [][]byte
}

func (f *fakePublisher) Publish(key, value []byte, _ ...kafkago.Header) {
	f.keys = append(f.keys, key)
	f.values = append(f.values, value)
}

func placedOrder() *orders.Order {
	return &orders.Order{
		ID:        42,
		UserID:    7,
		Status:    orders.StatusPending,
		Subtotal:  decimal.RequireFromString("26.00"),
		Shipping:  decimal.Zero,
		Tax:       decimal.RequireFromString("2.08"),
		Total:     decimal.RequireFromString("28.08"),
		CreatedAt: time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC),
		Items: []orders.Item{
			{
				ID: 1, OrderID: 42, ProductID: 3,
				Name: "Organic Apples", Seller: "Green Farm", Category: "Fruits",
				Quantity: 2,
				Price:    decimal.RequireFromString("10.00"),
				Subtotal: decimal.RequireFromString("20.00"),
			},
			{
				ID: 2, OrderID: 42, ProductID: 9,
				Name: "Honey", Seller: "Bee Co", Category: "Pantry",
				Quantity: 1,
				Price:    decimal.RequireFromString("6.00"),
				Subtotal: decimal.RequireFromString("6.00"),
			},
		},
	}
}

func ordersTestServer(store *fakeOrderStore, pub *fakePublisher) (http.Handler, *fakeSessions) {
	r, sessions := testRouter()
	h := &OrdersHandler{Repo: store, Producer: pub, Service: "test-api"}
	h.Register(r)
	return r, sessions
}

func TestCreateOrderSuccess(t *testing.T) {
	store := &fakeOrderStore{
		placeOrderFn: func(_ context.Context, userID int64) (*orders.Order, error) {
			require.Equal(t, int64(7), userID)
			return placedOrder(), nil
		},
	}
	pub := &fakePublisher{}
	srv, sessions := ordersTestServer(store, pub)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	asIdentity(req, sessions, buyer())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			ID       int64   `json:"id"`
			Status   string  `json:"status"`
			Subtotal float64 `json:"subtotal"`
			Shipping float64 `json:"shipping"`
			Tax      float64 `json:"tax"`
			Total    float64 `json:"total"`
			Date     string  `json:"date"`
			Items    []struct {
				ID       int64   `json:"id"`
				Name     string  `json:"name"`
				Price    float64 `json:"price"`
				Quantity int     `json:"quantity"`
			} `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, int64(42), resp.Data.ID)
	assert.Equal(t, "pending", resp.Data.Status)
	assert.Equal(t, 26.00, resp.Data.Subtotal)
	assert.Equal(t, 0.00, resp.Data.Shipping)
	assert.Equal(t, 2.08, resp.Data.Tax)
	assert.Equal(t, 28.08, resp.Data.Total)
	assert.Equal(t, "05/03/2024", resp.Data.Date)
	require.Len(t, resp.Data.Items, 2)
	assert.Equal(t, int64(3), resp.Data.Items[0].ID)
	assert.Equal(t, 2, resp.Data.Items[0].Quantity)

	// the order.created event went out, keyed by order id
	require.Len(t, pub.keys, 1)
	assert.Equal(t, "42", string(pub.keys[0]))
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(pub.values[0], &env))
	assert.Equal(t, orders.EventOrderCreated, env.EventType)
	assert.Equal(t, "42", env.CorrelationID)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	store := &fakeOrderStore{
		placeOrderFn: func(context.Context, int64) (*orders.Order, error) {
			return nil, orders.ErrEmptyCart
		},
	}
	pub := &fakePublisher{}
	srv, sessions := ordersTestServer(store, pub)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	asIdentity(req, sessions, buyer())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cart is empty")
	assert.Empty(t, pub.keys, "no event for a failed placement")
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	store := &fakeOrderStore{
		placeOrderFn: func(context.Context, int64) (*orders.Order, error) {
			return nil, &orders.InsufficientStockError{
				ProductID: 3, Name: "Organic Apples", Requested: 5, Available: 2,
			}
		},
	}
	srv, sessions := ordersTestServer(store, &fakePublisher{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	asIdentity(req, sessions, buyer())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Error     string `json:"error"`
		ProductID int64  `json:"product_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.ProductID)
	assert.Contains(t, body.Error, "Organic Apples")
}

func TestCreateOrderPersistenceFailureStaysGeneric(t *testing.T) {
	store := &fakeOrderStore{
		placeOrderFn: func(context.Context, int64) (*orders.Order, error) {
			return nil, orders.ErrOrderPersistence
		},
	}
	srv, sessions := ordersTestServer(store, &fakePublisher{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	asIdentity(req, sessions, buyer())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "server error")
	assert.NotContains(t, rec.Body.String(), "persisted")
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	srv, _ := ordersTestServer(&fakeOrderStore{}, &fakePublisher{})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	store := &fakeOrderStore{getErr: orders.ErrOrderNotFound}
	srv, sessions := ordersTestServer(store, &fakePublisher{})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/99", nil)
	asIdentity(req, sessions, buyer())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	store := &fakeOrderStore{}
	srv, sessions := ordersTestServer(store, &fakePublisher{})

	req := httptest.NewRequest(http.MethodPut, "/api/orders/42/status",
		strings.NewReader(`{"status":"confirmed"}`))
	asIdentity(req, sessions, admin())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(42), store.updateStatusID)
	assert.Equal(t, orders.StatusConfirmed, store.updatedStatus)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	srv, sessions := ordersTestServer(&fakeOrderStore{}, &fakePublisher{})

	req := httptest.NewRequest(http.MethodPut, "/api/orders/42/status",
		strings.NewReader(`{"status":"shipped"}`))
	asIdentity(req, sessions, admin())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusForbiddenForNonAdmin(t *testing.T) {
	srv, sessions := ordersTestServer(&fakeOrderStore{}, &fakePublisher{})

	req := httptest.NewRequest(http.MethodPut, "/api/orders/42/status",
		strings.NewReader(`{"status":"confirmed"}`))
	asIdentity(req, sessions, buyer())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "not authorized")
}
