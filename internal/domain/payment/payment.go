package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("payment: record not found")
	ErrDuplicateTxn    = errors.New("payment: transaction id already recorded")
	ErrInvalidAmount   = errors.New("payment: amount must be greater than zero")
	ErrMethodRequired  = errors.New("payment: payment method is required")
	ErrOrderIDRequired = errors.New("payment: order id is required")
)

// DeclinedError is the business failure returned when the gateway refuses a
// capture.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string { return "payment declined: " + e.Reason }

func (e *DeclinedError) Code() string { return "PAYMENT_FAILED" }

const ReasonInsufficientFunds = "INSUFFICIENT_FUNDS"

type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Record is the ledger-of-payments entry, created only after a successful
// gateway capture.
type Record struct {
	ID            string
	OrderID       string
	Amount        decimal.Decimal
	Method        string
	TransactionID string
	Status        Status
	ProcessedAt   time.Time
}

// Gateway abstracts the external capture call. Implementations may inject
// faults; a nil error means the charge was authorized.
type Gateway interface {
	Charge(ctx context.Context, orderID string, amount decimal.Decimal, method string) error
}

type Repository interface {
	// Insert persists a record, enforcing transaction-id uniqueness.
	Insert(ctx context.Context, r *Record) error
	FindByOrder(ctx context.Context, orderID string) ([]*Record, error)
	FindByTransaction(ctx context.Context, transactionID string) (*Record, error)
}
