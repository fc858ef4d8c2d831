// Package payment implements payment capture: a gateway charge followed by a
// ledger-of-payments write. It never touches order or inventory state.
package payment

import (
	"context"
	"fmt"
	"time"

	dompay "github.com/shopflow/fulfillment/internal/domain/payment"
	"github.com/shopflow/fulfillment/internal/observability"
	"github.com/shopflow/fulfillment/internal/observability/logctx"
	"github.com/shopflow/fulfillment/internal/tracing"
	"github.com/shopspring/decimal"
)

type IDGenerator interface {
	NewID() string
}

type Capture struct {
	TransactionID string
	Status        string
}

const captureSucceeded = "succeeded"

type Processor struct {
	gateway  dompay.Gateway
	payments dompay.Repository
	ids      IDGenerator
	log      observability.Logger
}

func NewProcessor(gateway dompay.Gateway, payments dompay.Repository, ids IDGenerator, logger observability.Logger) *Processor {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Processor{
		gateway:  gateway,
		payments: payments,
		ids:      ids,
		log:      logger.With(observability.F("component", "payment_processor")),
	}
}

// Capture charges the gateway and, on success, records a completed
// PaymentRecord under a transaction id unique across all payments. A decline
// surfaces as *payment.DeclinedError and leaves no record behind.
func (p *Processor) Capture(ctx context.Context, tr *tracing.Tracer, orderID string, amount decimal.Decimal, method string) (*Capture, error) {
	logger := logctx.FromOr(ctx, p.log)

	if orderID == "" {
		return nil, dompay.ErrOrderIDRequired
	}
	if !amount.IsPositive() {
		return nil, dompay.ErrInvalidAmount
	}
	if method == "" {
		return nil, dompay.ErrMethodRequired
	}

	tr.Info(ctx, "initiating payment processing", tracing.Metadata{
		"order_id":       orderID,
		"amount":         amount.String(),
		"payment_method": method,
	})

	var transactionID string
	err := tr.WithSpan(ctx, "payment_gateway_call", func(ctx context.Context, sp *tracing.Tracer) error {
		sp.Info(ctx, "charging gateway", tracing.Metadata{
			"gateway":        "simulated",
			"amount":         amount.String(),
			"payment_method": method,
		})
		if err := p.gateway.Charge(ctx, orderID, amount, method); err != nil {
			sp.Error(ctx, "charge declined", tracing.Metadata{
				"order_id": orderID,
				"error":    err.Error(),
			})
			return err
		}
		transactionID = "txn_" + p.ids.NewID()
		sp.Info(ctx, "charge authorized", tracing.Metadata{
			"transaction_id": transactionID,
		})
		return nil
	})
	if err != nil {
		logger.Warn("payment_capture_failed",
			observability.F("order_id", orderID),
			observability.F("error", err.Error()),
		)
		return nil, err
	}

	rec := &dompay.Record{
		ID:            p.ids.NewID(),
		OrderID:       orderID,
		Amount:        amount,
		Method:        method,
		TransactionID: transactionID,
		Status:        dompay.StatusCompleted,
		ProcessedAt:   time.Now().UTC(),
	}
	if err := p.payments.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("payment: record: %w", err)
	}

	tr.Info(ctx, "payment recorded", tracing.Metadata{
		"transaction_id": transactionID,
	})
	logger.Info("payment_captured",
		observability.F("order_id", orderID),
		observability.F("transaction_id", transactionID),
	)
	return &Capture{TransactionID: transactionID, Status: captureSucceeded}, nil
}
