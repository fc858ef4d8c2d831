package order

import (
	"fmt"

	"github.com/shopflow/fulfillment/internal/application/eligibility"
)

// ProductFetchError aborts the saga before any persistent write: one line
// item's product/inventory lookup failed.
type ProductFetchError struct {
	ProductID string
	Cause     error
}

func (e *ProductFetchError) Error() string {
	return fmt.Sprintf("order: product fetch failed for %s: %v", e.ProductID, e.Cause)
}

func (e *ProductFetchError) Code() string { return "PRODUCT_FETCH_FAILED" }

func (e *ProductFetchError) Unwrap() error { return e.Cause }

// IneligibleError aborts the saga before the order row exists: the customer
// failed the credit or history check.
type IneligibleError struct {
	Reason eligibility.Reason
}

func (e *IneligibleError) Error() string {
	return "order: customer ineligible: " + string(e.Reason)
}

func (e *IneligibleError) Code() string { return "CUSTOMER_INELIGIBLE" }

// ReservationError wraps a ledger failure once the order row already exists;
// the order has been transitioned to inventory_failed.
type ReservationError struct {
	Cause error
}

func (e *ReservationError) Error() string {
	return fmt.Sprintf("order: inventory reservation failed: %v", e.Cause)
}

func (e *ReservationError) Code() string { return "INVENTORY_RESERVATION_FAILED" }

func (e *ReservationError) Unwrap() error { return e.Cause }

// ValidationError rejects malformed input before any saga step runs.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

func (e *ValidationError) Code() string { return "INVALID_INPUT" }

func newValidation(msg string) error {
	return &ValidationError{Msg: msg}
}
