package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopflow/fulfillment/internal/tracing"
	"github.com/shopflow/fulfillment/internal/tracing/memory"
)

func TestStartOpensTraceWithRootSpan(t *testing.T) {
	ctx := context.Background()
	rec := memory.NewRecorder()

	tr := tracing.Start(ctx, rec, "shop.create_order", 1)
	require.NotEmpty(t, tr.TraceID())
	require.NotEmpty(t, tr.SpanID())

	got, err := rec.GetTrace(ctx, tr.TraceID())
	require.NoError(t, err)
	assert.Equal(t, "shop.create_order", got.Source)
	assert.Equal(t, tracing.StatusPending, got.Status)
	require.Len(t, got.Spans, 1)
	assert.Empty(t, got.Spans[0].ParentSpanID)
	assert.Equal(t, "shop.create_order", got.Spans[0].Name)
}

func TestStartSpanLinksExplicitParent(t *testing.T) {
	ctx := context.Background()
	rec := memory.NewRecorder()

	root := tracing.Start(ctx, rec, "shop.create_order", 1)
	child := root.StartSpan(ctx, "credit_limit_check")
	grandchild := child.StartSpan(ctx, "reserve_item")
	grandchild.Succeed(ctx, nil)
	child.Succeed(ctx, nil)
	root.Succeed(ctx, nil)

	got, err := rec.GetTrace(ctx, root.TraceID())
	require.NoError(t, err)
	require.Len(t, got.Spans, 3)

	byName := map[string]tracing.Span{}
	for _, s := range got.Spans {
		byName[s.Name] = s
	}
	assert.Equal(t, root.SpanID(), byName["credit_limit_check"].ParentSpanID)
	assert.Equal(t, child.SpanID(), byName["reserve_item"].ParentSpanID)
	assert.Equal(t, tracing.StatusSuccess, got.Status)
}

func TestWithSpanCompletesOnError(t *testing.T) {
	ctx := context.Background()
	rec := memory.NewRecorder()
	root := tracing.Start(ctx, rec, "shop.create_order", 1)

	boom := errors.New("card declined")
	err := root.WithSpan(ctx, "payment_gateway_call", func(ctx context.Context, sp *tracing.Tracer) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := rec.GetTrace(ctx, root.TraceID())
	require.NoError(t, err)
	require.Len(t, got.Spans, 2)
	assert.Equal(t, tracing.StatusError, got.Spans[1].Status)
	assert.Equal(t, "card declined", got.Spans[1].Error)
}

func TestWithSpanCompletesOnPanic(t *testing.T) {
	ctx := context.Background()
	rec := memory.NewRecorder()
	root := tracing.Start(ctx, rec, "shop.create_order", 1)

	require.Panics(t, func() {
		_ = root.WithSpan(ctx, "create_order_record", func(ctx context.Context, sp *tracing.Tracer) error {
			panic("db gone")
		})
	})

	got, err := rec.GetTrace(ctx, root.TraceID())
	require.NoError(t, err)
	require.Len(t, got.Spans, 2)
	assert.Equal(t, tracing.StatusError, got.Spans[1].Status)
	assert.Contains(t, got.Spans[1].Error, "db gone")
}

func TestJoinLinksOutOfBandWork(t *testing.T) {
	ctx := context.Background()
	rec := memory.NewRecorder()

	root := tracing.Start(ctx, rec, "shop.create_order", 1)
	joined := tracing.Join(rec, root.TraceID(), root.SpanID())
	sp := joined.StartSpan(ctx, "send_order_notification")
	sp.Succeed(ctx, nil)
	root.Succeed(ctx, nil)

	got, err := rec.GetTrace(ctx, root.TraceID())
	require.NoError(t, err)
	require.Len(t, got.Spans, 2)
	assert.Equal(t, root.SpanID(), got.Spans[1].ParentSpanID)
}

func TestNopHandleIsSafe(t *testing.T) {
	ctx := context.Background()

	var nilTracer *tracing.Tracer
	assert.Empty(t, nilTracer.TraceID())
	assert.Empty(t, nilTracer.SpanID())

	nop := tracing.Nop()
	nop.Info(ctx, "ignored", nil)
	nop.Preserve(ctx)
	sp := nop.StartSpan(ctx, "ignored")
	sp.Succeed(ctx, nil)
	assert.NoError(t, nop.WithSpan(ctx, "ignored", func(ctx context.Context, sp *tracing.Tracer) error {
		return nil
	}))

	// A nil recorder falls back to the nop handle.
	assert.Empty(t, tracing.Start(ctx, nil, "shop.create_order", 1).TraceID())
	assert.Empty(t, tracing.Join(nil, "t", "s").TraceID())
}
