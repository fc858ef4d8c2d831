// Package eligibility evaluates whether a customer may place an order of a
// given total: a credit-limit check combined with recent payment history.
package eligibility

import (
	"context"

	domcust "github.com/shopflow/fulfillment/internal/domain/customer"
	domorder "github.com/shopflow/fulfillment/internal/domain/order"
	"github.com/shopflow/fulfillment/internal/observability"
	"github.com/shopflow/fulfillment/internal/observability/logctx"
	"github.com/shopflow/fulfillment/internal/tracing"
	"github.com/shopspring/decimal"
)

type Reason string

const (
	ReasonCreditLimitExceeded Reason = "CREDIT_LIMIT_EXCEEDED"
	ReasonPoorPaymentHistory  Reason = "POOR_PAYMENT_HISTORY"
)

const (
	// History window: the five most recent orders by creation time.
	recentOrderWindow = 5
	// Acceptable count of payment_failed orders within the window.
	maxFailedPayments = 3
)

type Result struct {
	Eligible bool
	Reason   Reason
	Customer *domcust.Customer
}

type Checker struct {
	customers domcust.Repository
	orders    domorder.Repository
	log       observability.Logger
}

func NewChecker(customers domcust.Repository, orders domorder.Repository, logger observability.Logger) *Checker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Checker{
		customers: customers,
		orders:    orders,
		log:       logger.With(observability.F("component", "eligibility_checker")),
	}
}

// Validate runs both sub-checks and ANDs them. When both fail, the credit
// reason wins.
func (c *Checker) Validate(ctx context.Context, tr *tracing.Tracer, customerID string, orderTotal decimal.Decimal) (*Result, error) {
	logger := logctx.FromOr(ctx, c.log)
	tr.Info(ctx, "validating customer eligibility", tracing.Metadata{
		"customer_id": customerID,
		"order_total": orderTotal.String(),
	})

	cust, err := c.customers.Get(ctx, customerID)
	if err != nil {
		tr.Error(ctx, "customer lookup failed", tracing.Metadata{
			"customer_id": customerID,
			"error":       err.Error(),
		})
		return nil, err
	}

	var creditOK bool
	err = tr.WithSpan(ctx, "credit_limit_check", func(ctx context.Context, sp *tracing.Tracer) error {
		creditOK = cust.CreditLimit.GreaterThanOrEqual(orderTotal)
		sp.Info(ctx, "credit limit evaluated", tracing.Metadata{
			"customer_id":  customerID,
			"credit_limit": cust.CreditLimit.String(),
			"order_total":  orderTotal.String(),
			"eligible":     creditOK,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var historyOK bool
	var failedPayments int
	err = tr.WithSpan(ctx, "payment_history_check", func(ctx context.Context, sp *tracing.Tracer) error {
		recent, err := c.orders.RecentByCustomer(ctx, customerID, recentOrderWindow)
		if err != nil {
			return err
		}
		for _, o := range recent {
			if o.Status == domorder.StatusPaymentFailed {
				failedPayments++
			}
		}
		historyOK = failedPayments <= maxFailedPayments
		sp.Info(ctx, "payment history evaluated", tracing.Metadata{
			"recent_order_count": len(recent),
			"failed_payments":    failedPayments,
			"has_good_history":   historyOK,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Eligible: creditOK && historyOK,
		Customer: cust,
	}
	switch {
	case !creditOK:
		res.Reason = ReasonCreditLimitExceeded
	case !historyOK:
		res.Reason = ReasonPoorPaymentHistory
	}

	if !res.Eligible {
		tr.Warn(ctx, "customer validation failed", tracing.Metadata{
			"customer_id": customerID,
			"reason":      string(res.Reason),
		})
		tr.Preserve(ctx)
		logger.Warn("customer_ineligible",
			observability.F("customer_id", customerID),
			observability.F("reason", string(res.Reason)),
		)
	} else {
		tr.Info(ctx, "customer validation complete", tracing.Metadata{
			"customer_id": customerID,
			"eligible":    true,
		})
	}
	return res, nil
}
