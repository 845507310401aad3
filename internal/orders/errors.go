package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart: nothing to order; no transaction is opened.
	ErrEmptyCart = errors.New("cart is empty")

	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrOrderPersistence wraps any failure inside the atomic commit. The
	// transaction has rolled back; no partial order is visible.
	ErrOrderPersistence = errors.New("order could not be persisted")
)

// InsufficientStockError aborts the whole placement; no partial order is
// created even for lines that had sufficient stock.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d",
		e.Name, e.Requested, e.Available)
}
