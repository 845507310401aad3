package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/greenmarket/storefront/internal/auth"
	"github.com/greenmarket/storefront/internal/cart"
)

type CartStore interface {
	Lines(ctx context.Context, userID int64) ([]cart.Line, error)
	Add(ctx context.Context, userID, productID int64, qty int) error
	SetQuantity(ctx context.Context, userID, productID int64, qty int) error
	Remove(ctx context.Context, userID, productID int64) error
	Clear(ctx context.Context, userID int64) error
}

type CartHandler struct {
	Cart CartStore
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Get("/api/cart", h.get)
		r.Post("/api/cart/items", h.add)
		r.Put("/api/cart/items/{productID}", h.setQuantity)
		r.Delete("/api/cart/items/{productID}", h.remove)
		r.Delete("/api/cart", h.clear)
	})
}

type cartLineJSON struct {
	ID       int64   `json:"id"` // product id; the cart has no identity of its own
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Stock    int     `json:"stock"`
	Seller   string  `json:"seller"`
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
}

func userID(r *http.Request) int64 {
	id, _ := auth.IdentityFrom(r.Context()) // RequireAuth guarantees presence
	return id.UserID
}

func pathProductID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Cart.Lines(r.Context(), userID(r))
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	out := make([]cartLineJSON, 0, len(lines))
	for _, l := range lines {
		out = append(out, cartLineJSON{
			ID:       l.ProductID,
			Name:     l.Name,
			Price:    money(l.Price),
			Image:    l.ImageURL,
			Stock:    l.Stock,
			Seller:   l.Seller,
			Category: l.Category,
			Quantity: l.Quantity,
		})
	}
	respondData(w, out)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int64 `json:"productId"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.ProductID <= 0 || req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "valid product and quantity are required")
		return
	}

	err := h.Cart.Add(r.Context(), userID(r), req.ProductID, req.Quantity)
	if h.respondCartError(w, r, err) {
		return
	}
	respondMessage(w, "product added to cart", nil)
}

func (h *CartHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := pathProductID(r)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "product id required")
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	err = h.Cart.SetQuantity(r.Context(), userID(r), productID, req.Quantity)
	if h.respondCartError(w, r, err) {
		return
	}
	if req.Quantity == 0 {
		respondMessage(w, "product removed from cart", nil)
		return
	}
	respondMessage(w, "quantity updated", nil)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	productID, err := pathProductID(r)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "product id required")
		return
	}
	if err := h.Cart.Remove(r.Context(), userID(r), productID); err != nil {
		respondInternal(w, r, err)
		return
	}
	respondMessage(w, "product removed from cart", nil)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Cart.Clear(r.Context(), userID(r)); err != nil {
		respondInternal(w, r, err)
		return
	}
	respondMessage(w, "cart cleared", nil)
}

// respondCartError maps cart store failures onto the API surface; returns true
// when a response was written.
func (h *CartHandler) respondCartError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, cart.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, cart.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "product not in cart")
	case errors.Is(err, cart.ErrInsufficientStock):
		respondError(w, http.StatusConflict, "not enough stock available")
	default:
		respondInternal(w, r, err)
	}
	return true
}
