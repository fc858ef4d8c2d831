// Package gateway simulates the external payment gateway. Failure behavior
// is an injectable strategy rather than inline randomness so tests can force
// either outcome deterministically.
package gateway

import (
	"context"
	"math/rand"
	"sync"
	"time"

	domain "github.com/shopflow/fulfillment/internal/domain/payment"
	"github.com/shopflow/fulfillment/internal/observability"
	"github.com/shopspring/decimal"
)

// FaultStrategy decides the outcome of a charge attempt. A nil error means
// the charge is authorized.
type FaultStrategy interface {
	Outcome(orderID string, amount decimal.Decimal, method string) error
}

type randomFaults struct {
	mu     sync.Mutex
	rand   *rand.Rand
	rate   float64
	reason string
}

// RandomFaults declines a fixed fraction of charges, independent of amount
// and method.
func RandomFaults(rate float64, reason string) FaultStrategy {
	if reason == "" {
		reason = domain.ReasonInsufficientFunds
	}
	return &randomFaults{
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		rate:   rate,
		reason: reason,
	}
}

func (s *randomFaults) Outcome(string, decimal.Decimal, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rand.Float64() < s.rate {
		return &domain.DeclinedError{Reason: s.reason}
	}
	return nil
}

type alwaysApprove struct{}

func (alwaysApprove) Outcome(string, decimal.Decimal, string) error { return nil }

// AlwaysApprove authorizes every charge.
func AlwaysApprove() FaultStrategy { return alwaysApprove{} }

type alwaysDecline struct{ reason string }

func (s alwaysDecline) Outcome(string, decimal.Decimal, string) error {
	return &domain.DeclinedError{Reason: s.reason}
}

// AlwaysDecline refuses every charge with the given business reason.
func AlwaysDecline(reason string) FaultStrategy {
	if reason == "" {
		reason = domain.ReasonInsufficientFunds
	}
	return alwaysDecline{reason: reason}
}

// Simulated is the gateway abstraction the payment processor delegates to.
type Simulated struct {
	strategy FaultStrategy
	log      observability.Logger
}

func NewSimulated(strategy FaultStrategy, logger observability.Logger) *Simulated {
	if strategy == nil {
		strategy = AlwaysApprove()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Simulated{
		strategy: strategy,
		log:      logger.With(observability.F("component", "payment_gateway")),
	}
}

func (g *Simulated) Charge(ctx context.Context, orderID string, amount decimal.Decimal, method string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.strategy.Outcome(orderID, amount, method); err != nil {
		g.log.Warn("charge_declined",
			observability.F("order_id", orderID),
			observability.F("amount", amount.String()),
			observability.F("error", err.Error()),
		)
		return err
	}
	g.log.Debug("charge_authorized",
		observability.F("order_id", orderID),
		observability.F("amount", amount.String()),
		observability.F("method", method),
	)
	return nil
}
