package tracing

import (
	"context"
	"fmt"
	"time"
)

// Tracer is an explicit trace handle threaded through operation signatures.
// It binds a Recorder to one trace and a current span; child handles are
// created per span so parent linkage is always an explicit field.
//
// Recording is best-effort: a failing recorder degrades the handle but never
// fails the traced operation.
type Tracer struct {
	rec     Recorder
	traceID string
	spanID  string
	now     func() time.Time
}

// Start opens a new trace plus its root span and returns the handle bound to
// that root span.
func Start(ctx context.Context, rec Recorder, source string, sampleRate float64) *Tracer {
	if rec == nil {
		return Nop()
	}
	now := time.Now
	traceID, err := rec.CreateTrace(ctx, source, sampleRate, StatusPending)
	if err != nil {
		return Nop()
	}
	t := &Tracer{rec: rec, traceID: traceID, now: now}
	spanID, err := rec.CreateSpan(ctx, traceID, SpanStart{
		Name:         source,
		FunctionName: source,
		StartTime:    now(),
	})
	if err == nil {
		t.spanID = spanID
	}
	return t
}

// Join binds a handle to an existing trace and parent span. Used to link
// out-of-band work (e.g. the detached notification dispatch) as a child of
// the span that scheduled it.
func Join(rec Recorder, traceID, parentSpanID string) *Tracer {
	if rec == nil || traceID == "" {
		return Nop()
	}
	return &Tracer{rec: rec, traceID: traceID, spanID: parentSpanID, now: time.Now}
}

// Nop returns a handle that records nothing.
func Nop() *Tracer { return &Tracer{} }

func (t *Tracer) TraceID() string {
	if t == nil {
		return ""
	}
	return t.traceID
}

func (t *Tracer) SpanID() string {
	if t == nil {
		return ""
	}
	return t.spanID
}

func (t *Tracer) active() bool { return t != nil && t.rec != nil }

type SpanOption func(*SpanStart)

func WithFunction(name string) SpanOption {
	return func(s *SpanStart) { s.FunctionName = name }
}

func WithArgs(args Metadata) SpanOption {
	return func(s *SpanStart) { s.Args = args }
}

// StartSpan opens a child span of the current span and returns a handle bound
// to it. The caller must complete it exactly once via Succeed or Fail.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) *Tracer {
	if !t.active() {
		return t
	}
	start := SpanStart{
		Name:         name,
		ParentSpanID: t.spanID,
		StartTime:    t.now(),
	}
	for _, opt := range opts {
		opt(&start)
	}
	spanID, err := t.rec.CreateSpan(ctx, t.traceID, start)
	if err != nil {
		return t
	}
	return &Tracer{rec: t.rec, traceID: t.traceID, spanID: spanID, now: t.now}
}

// Succeed completes the current span with success status.
func (t *Tracer) Succeed(ctx context.Context, result any) {
	t.complete(ctx, StatusSuccess, result, "")
}

// Fail completes the current span with error status.
func (t *Tracer) Fail(ctx context.Context, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	t.complete(ctx, StatusError, nil, msg)
}

func (t *Tracer) complete(ctx context.Context, status Status, result any, errMsg string) {
	if !t.active() || t.spanID == "" {
		return
	}
	_ = t.rec.CompleteSpan(ctx, t.spanID, SpanCompletion{
		Status:  status,
		EndTime: t.now(),
		Result:  result,
		Error:   errMsg,
	})
}

// WithSpan runs fn inside a child span, completing it exactly once whether fn
// returns normally, returns an error, or panics.
func (t *Tracer) WithSpan(ctx context.Context, name string, fn func(ctx context.Context, sp *Tracer) error) (err error) {
	sp := t.StartSpan(ctx, name)
	defer func() {
		if r := recover(); r != nil {
			sp.Fail(ctx, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()
	err = fn(ctx, sp)
	if err != nil {
		sp.Fail(ctx, err)
	} else {
		sp.Succeed(ctx, nil)
	}
	return err
}

func (t *Tracer) Debug(ctx context.Context, msg string, metadata Metadata) {
	t.log(ctx, SeverityDebug, msg, metadata)
}

func (t *Tracer) Info(ctx context.Context, msg string, metadata Metadata) {
	t.log(ctx, SeverityInfo, msg, metadata)
}

func (t *Tracer) Warn(ctx context.Context, msg string, metadata Metadata) {
	t.log(ctx, SeverityWarn, msg, metadata)
}

func (t *Tracer) Error(ctx context.Context, msg string, metadata Metadata) {
	t.log(ctx, SeverityError, msg, metadata)
}

func (t *Tracer) log(ctx context.Context, sev Severity, msg string, metadata Metadata) {
	if !t.active() || t.spanID == "" {
		return
	}
	_, _ = t.rec.AddLog(ctx, t.spanID, sev, msg, metadata)
}

// Preserve marks the whole trace for retention past the normal expiry window.
func (t *Tracer) Preserve(ctx context.Context) {
	if !t.active() {
		return
	}
	_ = t.rec.Preserve(ctx, t.traceID)
}
