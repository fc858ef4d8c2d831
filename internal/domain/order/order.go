package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: already exists")
	ErrNoItems                = errors.New("order: at least one line item is required")
	ErrInvalidQuantity        = errors.New("order: quantity must be greater than zero")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusConfirmed       Status = "confirmed"
	StatusPaymentFailed   Status = "payment_failed"
	StatusInventoryFailed Status = "inventory_failed"
	StatusShipped         Status = "shipped"
	StatusDelivered       Status = "delivered"
)

// LineItem is a product/quantity pair. The order owns its item list: copied
// at creation, never mutated afterwards.
type LineItem struct {
	ProductID string
	Quantity  int
}

// Order is the unit of saga state. It is created in pending status and only
// ever status-transitioned, never deleted.
type Order struct {
	ID            string
	CustomerID    string
	Items         []LineItem
	Total         decimal.Decimal
	Status        Status
	PaymentMethod string
	TransactionID string
	CreatedAt     time.Time
	ConfirmedAt   *time.Time
	ShippedAt     *time.Time
}

func New(id, customerID string, items []LineItem, total decimal.Decimal, paymentMethod string) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	return &Order{
		ID:            id,
		CustomerID:    customerID,
		Items:         append([]LineItem(nil), items...),
		Total:         total,
		Status:        StatusPending,
		PaymentMethod: paymentMethod,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Confirm transitions pending -> confirmed, stamping ConfirmedAt and the
// capture's transaction id. ConfirmedAt is set on this transition only.
func (o *Order) Confirm(transactionID string) error {
	next, err := o.state().OnPaymentSucceeded(o)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	o.ConfirmedAt = &now
	o.TransactionID = transactionID
	o.Status = next.Status()
	return nil
}

// MarkPaymentFailed transitions pending -> payment_failed.
func (o *Order) MarkPaymentFailed() error {
	next, err := o.state().OnPaymentFailed(o)
	if err != nil {
		return err
	}
	o.Status = next.Status()
	return nil
}

// MarkInventoryFailed transitions pending -> inventory_failed.
func (o *Order) MarkInventoryFailed() error {
	next, err := o.state().OnInventoryFailed(o)
	if err != nil {
		return err
	}
	o.Status = next.Status()
	return nil
}

// Ship transitions confirmed -> shipped, stamping ShippedAt. Not driven by
// the order-placement saga, but part of the representable lifecycle.
func (o *Order) Ship() error {
	next, err := o.state().OnShipped(o)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	o.ShippedAt = &now
	o.Status = next.Status()
	return nil
}

// Deliver transitions shipped -> delivered.
func (o *Order) Deliver() error {
	next, err := o.state().OnDelivered(o)
	if err != nil {
		return err
	}
	o.Status = next.Status()
	return nil
}

func (o *Order) Clone() *Order {
	clone := *o
	clone.Items = append([]LineItem(nil), o.Items...)
	if o.ConfirmedAt != nil {
		t := *o.ConfirmedAt
		clone.ConfirmedAt = &t
	}
	if o.ShippedAt != nil {
		t := *o.ShippedAt
		clone.ShippedAt = &t
	}
	return &clone
}

type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	// RecentByCustomer returns up to limit orders for the customer, most
	// recently created first.
	RecentByCustomer(ctx context.Context, customerID string, limit int) ([]*Order, error)
	ListByStatus(ctx context.Context, status Status) ([]*Order, error)
}
