package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/greenmarket/storefront/internal/auth"
	kafkax "github.com/greenmarket/storefront/internal/kafka"
	"github.com/greenmarket/storefront/internal/orders"
)

type OrderStore interface {
	PlaceOrder(ctx context.Context, userID int64) (*orders.Order, error)
	ListForUser(ctx context.Context, userID int64) ([]orders.Order, error)
	ListAll(ctx context.Context) ([]orders.Order, error)
	Get(ctx context.Context, orderID int64) (*orders.Order, error)
	GetForUser(ctx context.Context, orderID, userID int64) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status orders.Status) error
}

// EventPublisher is the fire-and-forget side of the kafka producer.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Repo     OrderStore
	Producer EventPublisher
	Service  string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/api/orders", h.create)
		r.Get("/api/orders", h.list)
		r.Get("/api/orders/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Put("/api/orders/{id}/status", h.updateStatus)
	})
}

type orderItemJSON struct {
	ID       int64   `json:"id"` // product id, for display parity with the cart
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image"`
	Seller   string  `json:"seller"`
	Category string  `json:"category"`
}

type orderJSON struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	UserName  string          `json:"user_name,omitempty"`
	UserEmail string          `json:"user_email,omitempty"`
	Status    string          `json:"status"`
	Subtotal  float64         `json:"subtotal"`
	Shipping  float64         `json:"shipping"`
	Tax       float64         `json:"tax"`
	Total     float64         `json:"total"`
	Date      string          `json:"date"`
	Items     []orderItemJSON `json:"items"`
}

func toOrderJSON(o *orders.Order) orderJSON {
	out := orderJSON{
		ID:        o.ID,
		UserID:    o.UserID,
		UserName:  o.UserName,
		UserEmail: o.UserEmail,
		Status:    string(o.Status),
		Subtotal:  money(o.Subtotal),
		Shipping:  money(o.Shipping),
		Tax:       money(o.Tax),
		Total:     money(o.Total),
		Date:      o.CreatedAt.Format("02/01/2006"),
		Items:     make([]orderItemJSON, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, orderItemJSON{
			ID:       it.ProductID,
			Name:     it.Name,
			Price:    money(it.Price),
			Quantity: it.Quantity,
			Image:    it.ImageURL,
			Seller:   it.Seller,
			Category: it.Category,
		})
	}
	return out
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	o, err := h.Repo.PlaceOrder(r.Context(), uid)
	if err != nil {
		var stockErr *orders.InsufficientStockError
		switch {
		case errors.Is(err, orders.ErrEmptyCart):
			respondError(w, http.StatusBadRequest, "cart is empty")
		case errors.As(err, &stockErr):
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":      stockErr.Error(),
				"product_id": stockErr.ProductID,
			})
		case errors.Is(err, orders.ErrOrderPersistence):
			respondInternal(w, r, err)
		default:
			respondInternal(w, r, err)
		}
		return
	}

	h.publishCreated(r, o)
	respondMessage(w, "order placed", toOrderJSON(o))
}

// publishCreated emits the order.created event after the transaction has
// committed. Publication is best effort; the order is already durable.
func (h *OrdersHandler) publishCreated(r *http.Request, o *orders.Order) {
	if h.Producer == nil {
		return
	}
	items := make([]orders.ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: string(orders.PartitionKey(o.ID)),
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID: o.ID,
			UserID:  o.UserID,
			Items:   items,
			Total:   o.Total,
		}),
	}
	h.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())

	var (
		list []orders.Order
		err  error
	)
	if id.IsAdmin() {
		list, err = h.Repo.ListAll(r.Context())
	} else {
		list, err = h.Repo.ListForUser(r.Context(), id.UserID)
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]orderJSON, 0, len(list))
	for i := range list {
		out = append(out, toOrderJSON(&list[i]))
	}
	respondData(w, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "order id required")
		return
	}
	id, _ := auth.IdentityFrom(r.Context())

	var o *orders.Order
	if id.IsAdmin() {
		o, err = h.Repo.Get(r.Context(), orderID)
	} else {
		o, err = h.Repo.GetForUser(r.Context(), orderID, id.UserID)
	}
	if errors.Is(err, orders.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondData(w, toOrderJSON(o))
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "order id required")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	status, err := orders.ParseStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	err = h.Repo.UpdateStatus(r.Context(), orderID, status)
	if errors.Is(err, orders.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondMessage(w, "order status updated", nil)
}
