package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConfirmedEvent is emitted after the saga commits a confirmed order. It
// carries the originating trace/span identifiers so out-of-band handlers
// (notification dispatch) link their spans under the order-creation trace.
type ConfirmedEvent struct {
	OrderID       string
	CustomerID    string
	CustomerEmail string
	Total         decimal.Decimal
	TraceID       string
	SpanID        string
	OccurredAt    time.Time
}

func (ConfirmedEvent) EventName() string { return "order.confirmed" }

func NewConfirmedEvent(o *Order, customerEmail, traceID, spanID string) ConfirmedEvent {
	return ConfirmedEvent{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		CustomerEmail: customerEmail,
		Total:         o.Total,
		TraceID:       traceID,
		SpanID:        spanID,
		OccurredAt:    time.Now().UTC(),
	}
}
