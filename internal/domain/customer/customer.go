package customer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidEmail = errors.New("customer: email is required")
	ErrInvalidName  = errors.New("customer: name is required")
)

// NotFoundError is raised when a referenced customer does not exist.
type NotFoundError struct {
	CustomerID string
}

func (e *NotFoundError) Error() string { return "customer not found: " + e.CustomerID }

func (e *NotFoundError) Code() string { return "CUSTOMER_NOT_FOUND" }

// Customer is immutable after creation within the fulfillment core.
type Customer struct {
	ID          string
	Name        string
	Email       string
	CreditLimit decimal.Decimal
	CreatedAt   time.Time
}

func New(id, name, email string, creditLimit decimal.Decimal) (*Customer, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if strings.TrimSpace(email) == "" {
		return nil, ErrInvalidEmail
	}
	return &Customer{
		ID:          id,
		Name:        name,
		Email:       email,
		CreditLimit: creditLimit,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

type Repository interface {
	Get(ctx context.Context, id string) (*Customer, error)
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	List(ctx context.Context) ([]*Customer, error)
	Save(ctx context.Context, c *Customer) error
}
