// Package notification dispatches post-commit order notifications. It runs
// detached from the saga's call chain: failures are logged and traced, never
// propagated back to the already-committed order.
package notification

import (
	"context"

	"github.com/shopflow/fulfillment/internal/domain/event"
	domorder "github.com/shopflow/fulfillment/internal/domain/order"
	"github.com/shopflow/fulfillment/internal/infrastructure/notify"
	"github.com/shopflow/fulfillment/internal/observability"
	"github.com/shopflow/fulfillment/internal/observability/logctx"
	"github.com/shopflow/fulfillment/internal/tracing"
	"github.com/shopspring/decimal"
)

const emailTemplate = "order_confirmation"

// DefaultSMSThreshold is the order total above which an SMS is attempted in
// addition to email.
var DefaultSMSThreshold = decimal.NewFromInt(500)

type Dispatcher struct {
	sender       notify.Sender
	recorder     tracing.Recorder
	smsThreshold decimal.Decimal
	log          observability.Logger
	sent         observability.Counter
}

func NewDispatcher(sender notify.Sender, recorder tracing.Recorder, smsThreshold decimal.Decimal, tel observability.Observability) *Dispatcher {
	if tel == nil {
		tel = observability.Nop()
	}
	if smsThreshold.IsZero() {
		smsThreshold = DefaultSMSThreshold
	}
	return &Dispatcher{
		sender:       sender,
		recorder:     recorder,
		smsThreshold: smsThreshold,
		log:          tel.Logger().With(observability.F("component", "notification_dispatcher")),
		sent:         tel.Metrics().Counter(observability.MNotificationsSent),
	}
}

// Register subscribes the dispatcher to confirmed-order events on the bus.
func (d *Dispatcher) Register(sub event.Subscriber) {
	sub.Subscribe(domorder.ConfirmedEvent{}.EventName(), d.handle)
}

func (d *Dispatcher) handle(ctx context.Context, e event.Event) error {
	evt, ok := e.(domorder.ConfirmedEvent)
	if !ok {
		return nil
	}
	d.Notify(ctx, evt)
	return nil
}

// Notify sends the email notification and, for high-value orders, an SMS.
// Spans are linked as children of the originating order-creation span via
// the trace/span ids carried on the event.
func (d *Dispatcher) Notify(ctx context.Context, evt domorder.ConfirmedEvent) {
	logger := logctx.FromOr(ctx, d.log)

	tr := tracing.Join(d.recorder, evt.TraceID, evt.SpanID)
	sp := tr.StartSpan(ctx, "send_order_notification")
	sp.Info(ctx, "sending order notification", tracing.Metadata{
		"order_id":       evt.OrderID,
		"customer_email": evt.CustomerEmail,
	})

	failed := false

	emailErr := sp.WithSpan(ctx, "send_email", func(ctx context.Context, s *tracing.Tracer) error {
		s.Info(ctx, "sending email", tracing.Metadata{
			"to":       evt.CustomerEmail,
			"template": emailTemplate,
			"order_id": evt.OrderID,
		})
		if err := d.sender.SendEmail(ctx, evt.CustomerEmail, emailTemplate, evt.OrderID); err != nil {
			return err
		}
		s.Info(ctx, "email sent", tracing.Metadata{"provider": "simulated"})
		return nil
	})
	d.count("email", emailErr)
	if emailErr != nil {
		failed = true
		logger.Warn("email_notification_failed",
			observability.F("order_id", evt.OrderID),
			observability.F("error", emailErr.Error()),
		)
	}

	if evt.Total.GreaterThan(d.smsThreshold) {
		smsErr := sp.WithSpan(ctx, "send_sms", func(ctx context.Context, s *tracing.Tracer) error {
			s.Info(ctx, "sending sms", tracing.Metadata{
				"order_id":    evt.OrderID,
				"order_total": evt.Total.String(),
				"reason":      "high_value_order",
			})
			if err := d.sender.SendSMS(ctx, evt.OrderID, evt.Total); err != nil {
				return err
			}
			s.Info(ctx, "sms sent", tracing.Metadata{"provider": "simulated"})
			return nil
		})
		d.count("sms", smsErr)
		if smsErr != nil {
			failed = true
			logger.Warn("sms_notification_failed",
				observability.F("order_id", evt.OrderID),
				observability.F("error", smsErr.Error()),
			)
		}
	}

	if failed {
		sp.Fail(ctx, errNotifyIncomplete)
		return
	}
	sp.Info(ctx, "notifications sent", tracing.Metadata{"order_id": evt.OrderID})
	sp.Succeed(ctx, nil)
}

func (d *Dispatcher) count(channel string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	d.sent.Add(1,
		observability.L("channel", channel),
		observability.L("outcome", outcome),
	)
}

type notifyIncompleteError struct{}

func (notifyIncompleteError) Error() string { return "notification: one or more channels failed" }

var errNotifyIncomplete = notifyIncompleteError{}
