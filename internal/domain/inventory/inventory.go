package inventory

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("inventory: record not found")
	ErrInvalidQuantity = errors.New("inventory: quantity must be greater than zero")
)

// InsufficientError reports the first line item a reservation could not
// satisfy.
type InsufficientError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientError) Code() string { return "INSUFFICIENT_INVENTORY" }

// Record tracks on-hand and reserved stock for one product. Reservation moves
// units from Quantity to Reserved; Quantity never reflects reserved stock.
// Invariant: Quantity >= 0 and Reserved >= 0 at all times.
type Record struct {
	ProductID         string
	Quantity          int
	Reserved          int
	WarehouseLocation string
	LastRestocked     time.Time
}

func NewRecord(productID string, quantity int, warehouse string) (*Record, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Record{
		ProductID:         productID,
		Quantity:          quantity,
		WarehouseLocation: warehouse,
		LastRestocked:     time.Now().UTC(),
	}, nil
}

// Reserve moves n units from on-hand to reserved, failing without mutation
// when fewer than n units are on hand.
func (r *Record) Reserve(n int) error {
	if n <= 0 {
		return ErrInvalidQuantity
	}
	if n > r.Quantity {
		return &InsufficientError{ProductID: r.ProductID, Requested: n, Available: r.Quantity}
	}
	r.Quantity -= n
	r.Reserved += n
	return nil
}

// Release reverses a reservation. It is safe to call with the exact set
// previously reserved; releasing more than is reserved clamps at zero so a
// duplicate compensation cannot drive Reserved negative.
func (r *Record) Release(n int) error {
	if n <= 0 {
		return ErrInvalidQuantity
	}
	if n > r.Reserved {
		n = r.Reserved
	}
	r.Reserved -= n
	r.Quantity += n
	return nil
}

// Restock adds n units to on-hand stock.
func (r *Record) Restock(n int) error {
	if n <= 0 {
		return ErrInvalidQuantity
	}
	r.Quantity += n
	r.LastRestocked = time.Now().UTC()
	return nil
}
