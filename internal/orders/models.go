package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the aggregate root: the header plus its immutable, price-snapshotted
// items. Everything except Status is frozen at creation.
type Order struct {
	ID        int64
	UserID    int64
	UserName  string // populated on admin reads only
	UserEmail string
	Status    Status
	Subtotal  decimal.Decimal
	Shipping  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
	Items     []Item
}

// Item carries the unit price and line subtotal as they were at purchase time;
// later price changes on the product do not touch it. Name, seller, category
// and image come from the live product row for display.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Name      string
	Seller    string
	Category  string
	ImageURL  string
	Quantity  int
	Price     decimal.Decimal
	Subtotal  decimal.Decimal
}
