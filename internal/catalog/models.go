package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Seller      string
	Stock       int
	ImageURL    string
	Rating      float64
	Reviews     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Category struct {
	ID   int64
	Name string
}

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrProductReferenced = errors.New("product is referenced by existing orders")
)

// ProductInput is the admin create/update payload. Category is referenced by
// name and resolved to an id by the repo.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Seller      string          `json:"seller"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image"`
}

func (in ProductInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("name is required")
	case strings.TrimSpace(in.Description) == "":
		return fmt.Errorf("description is required")
	case !in.Price.IsPositive():
		return fmt.Errorf("price must be greater than zero")
	case strings.TrimSpace(in.Category) == "":
		return fmt.Errorf("category is required")
	case strings.TrimSpace(in.Seller) == "":
		return fmt.Errorf("seller is required")
	case in.Stock < 0:
		return fmt.Errorf("stock must not be negative")
	}
	return nil
}
