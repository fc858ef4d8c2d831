// Package notify provides simulated delivery channels for order
// notifications.
package notify

import (
	"context"
	"time"

	"github.com/shopflow/fulfillment/internal/observability"
	"github.com/shopspring/decimal"
)

// Sender delivers customer-facing notifications. Both channels are
// best-effort: errors are reported, never retried here.
type Sender interface {
	SendEmail(ctx context.Context, to, template, orderID string) error
	SendSMS(ctx context.Context, orderID string, orderTotal decimal.Decimal) error
}

// Simulated models external providers with a fixed per-send latency.
type Simulated struct {
	emailLatency time.Duration
	smsLatency   time.Duration
	log          observability.Logger
}

func NewSimulated(logger observability.Logger) *Simulated {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Simulated{
		emailLatency: 300 * time.Millisecond,
		smsLatency:   500 * time.Millisecond,
		log:          logger.With(observability.F("component", "notify")),
	}
}

func (s *Simulated) SendEmail(ctx context.Context, to, template, orderID string) error {
	if err := s.wait(ctx, s.emailLatency); err != nil {
		return err
	}
	s.log.Info("email_sent",
		observability.F("to", to),
		observability.F("template", template),
		observability.F("order_id", orderID),
	)
	return nil
}

func (s *Simulated) SendSMS(ctx context.Context, orderID string, orderTotal decimal.Decimal) error {
	if err := s.wait(ctx, s.smsLatency); err != nil {
		return err
	}
	s.log.Info("sms_sent",
		observability.F("order_id", orderID),
		observability.F("order_total", orderTotal.String()),
	)
	return nil
}

func (s *Simulated) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
