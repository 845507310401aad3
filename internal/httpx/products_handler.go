package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/greenmarket/storefront/internal/catalog"
)

type CatalogStore interface {
	List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error)
	Get(ctx context.Context, id int64) (catalog.Product, error)
	Create(ctx context.Context, in catalog.ProductInput) (catalog.Product, error)
	Update(ctx context.Context, id int64, in catalog.ProductInput) (catalog.Product, error)
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]string, error)
}

type ProductsHandler struct {
	Catalog CatalogStore
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Get("/api/products", h.list)
	r.Get("/api/products/{id}", h.get)
	r.Get("/api/categories", h.categories)

	r.Group(func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Post("/api/products", h.create)
		r.Put("/api/products/{id}", h.update)
		r.Delete("/api/products/{id}", h.delete)
	})
}

type productJSON struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Seller      string  `json:"seller"`
	Stock       int     `json:"stock"`
	Image       string  `json:"image"`
	Rating      float64 `json:"rating"`
	Reviews     int     `json:"reviews"`
}

func toProductJSON(p catalog.Product) productJSON {
	return productJSON{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		Category:    p.Category,
		Seller:      p.Seller,
		Stock:       p.Stock,
		Image:       p.ImageURL,
		Rating:      p.Rating,
		Reviews:     p.Reviews,
	}
}

func toProductListJSON(ps []catalog.Product) []productJSON {
	out := make([]productJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductJSON(p))
	}
	return out
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	f := catalog.Filter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
		Sort:     r.URL.Query().Get("sort"),
	}
	ps, err := h.Catalog.List(r.Context(), f)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondData(w, toProductListJSON(ps))
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "product id required")
		return
	}
	p, err := h.Catalog.Get(r.Context(), id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondData(w, toProductJSON(p))
}

func (h *ProductsHandler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Catalog.Categories(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondData(w, cats)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.Catalog.Create(r.Context(), in)
	if errors.Is(err, catalog.ErrCategoryNotFound) {
		respondError(w, http.StatusBadRequest, "invalid category")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondMessage(w, "product created", toProductJSON(p))
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "product id required")
		return
	}
	var in catalog.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.Catalog.Update(r.Context(), id, in)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product not found")
		return
	case errors.Is(err, catalog.ErrCategoryNotFound):
		respondError(w, http.StatusBadRequest, "invalid category")
		return
	case err != nil:
		respondInternal(w, r, err)
		return
	}
	respondMessage(w, "product updated", toProductJSON(p))
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "product id required")
		return
	}
	err = h.Catalog.Delete(r.Context(), id)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product not found")
		return
	case errors.Is(err, catalog.ErrProductReferenced):
		respondError(w, http.StatusBadRequest, "product has existing orders")
		return
	case err != nil:
		respondInternal(w, r, err)
		return
	}
	respondMessage(w, "product deleted", nil)
}
