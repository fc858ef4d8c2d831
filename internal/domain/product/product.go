package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSKU  = errors.New("product: sku is required")
	ErrInvalidName = errors.New("product: name is required")
)

// NotFoundError is raised when a referenced product does not exist.
type NotFoundError struct {
	ProductID string
}

func (e *NotFoundError) Error() string { return "product not found: " + e.ProductID }

func (e *NotFoundError) Code() string { return "NOT_FOUND" }

// Product is read-only from the saga's perspective.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	SKU         string
	CreatedAt   time.Time
}

func New(id, name, description string, price decimal.Decimal, category, sku string) (*Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if strings.TrimSpace(sku) == "" {
		return nil, ErrInvalidSKU
	}
	return &Product{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		SKU:         sku,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

type Repository interface {
	Get(ctx context.Context, id string) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	ListByCategory(ctx context.Context, category string) ([]*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Save(ctx context.Context, p *Product) error
}
