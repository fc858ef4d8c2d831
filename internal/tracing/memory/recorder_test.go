package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopflow/fulfillment/internal/tracing"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCreateTraceSamplingDecidedAtCreation(t *testing.T) {
	ctx := context.Background()

	t.Run("rate one always samples", func(t *testing.T) {
		rec := NewRecorder(WithSampleSource(func() float64 { return 0.99 }))
		id, err := rec.CreateTrace(ctx, "shop.create_order", 1, tracing.StatusPending)
		require.NoError(t, err)

		tr, err := rec.GetTrace(ctx, id)
		require.NoError(t, err)
		assert.True(t, tr.Sampled)
	})

	t.Run("rate zero never samples", func(t *testing.T) {
		rec := NewRecorder(WithSampleSource(func() float64 { return 0 }))
		id, err := rec.CreateTrace(ctx, "shop.create_order", 0, tracing.StatusPending)
		require.NoError(t, err)

		tr, err := rec.GetTrace(ctx, id)
		require.NoError(t, err)
		assert.False(t, tr.Sampled)
	})

	t.Run("fractional rate compares against the source", func(t *testing.T) {
		draw := 0.2
		rec := NewRecorder(WithSampleSource(func() float64 { return draw }))

		id, err := rec.CreateTrace(ctx, "shop.create_order", 0.5, tracing.StatusPending)
		require.NoError(t, err)
		tr, err := rec.GetTrace(ctx, id)
		require.NoError(t, err)
		assert.True(t, tr.Sampled, "0.2 < 0.5 samples in")

		draw = 0.7
		id, err = rec.CreateTrace(ctx, "shop.create_order", 0.5, tracing.StatusPending)
		require.NoError(t, err)
		tr, err = rec.GetTrace(ctx, id)
		require.NoError(t, err)
		assert.False(t, tr.Sampled, "0.7 >= 0.5 samples out")
	})
}

func TestRootSpanCompletionSettlesTraceStatus(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder()

	traceID, err := rec.CreateTrace(ctx, "shop.create_order", 1, tracing.StatusPending)
	require.NoError(t, err)

	rootID, err := rec.CreateSpan(ctx, traceID, tracing.SpanStart{Name: "shop.create_order"})
	require.NoError(t, err)
	childID, err := rec.CreateSpan(ctx, traceID, tracing.SpanStart{
		Name:         "credit_limit_check",
		ParentSpanID: rootID,
	})
	require.NoError(t, err)

	// Child completion must not settle the trace.
	require.NoError(t, rec.CompleteSpan(ctx, childID, tracing.SpanCompletion{Status: tracing.StatusError, Error: "boom"}))
	tr, err := rec.GetTrace(ctx, traceID)
	require.NoError(t, err)
	assert.Equal(t, tracing.StatusPending, tr.Status)

	require.NoError(t, rec.CompleteSpan(ctx, rootID, tracing.SpanCompletion{Status: tracing.StatusSuccess}))
	tr, err = rec.GetTrace(ctx, traceID)
	require.NoError(t, err)
	assert.Equal(t, tracing.StatusSuccess, tr.Status)
}

func TestAddLogAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	rec := NewRecorder(WithClock(clock.Now))

	traceID, err := rec.CreateTrace(ctx, "shop.create_order", 1, tracing.StatusPending)
	require.NoError(t, err)
	spanID, err := rec.CreateSpan(ctx, traceID, tracing.SpanStart{Name: "root"})
	require.NoError(t, err)

	_, err = rec.AddLog(ctx, spanID, tracing.SeverityInfo, "first", tracing.Metadata{"step": 1})
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = rec.AddLog(ctx, spanID, tracing.SeverityWarn, "second", nil)
	require.NoError(t, err)

	tr, err := rec.GetTrace(ctx, traceID)
	require.NoError(t, err)
	require.Len(t, tr.Spans, 1)
	logs := tr.Spans[0].Logs
	require.Len(t, logs, 2)
	assert.Equal(t, "first", logs[0].Message)
	assert.Equal(t, tracing.SeverityWarn, logs[1].Severity)
	assert.True(t, logs[1].Timestamp.After(logs[0].Timestamp))

	_, err = rec.AddLog(ctx, "nope", tracing.SeverityInfo, "orphan", nil)
	assert.ErrorIs(t, err, tracing.ErrSpanNotFound)
}

func TestSweepEvictsOnlyExpiredUnsampledUnpreserved(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	rec := NewRecorder(
		WithClock(clock.Now),
		WithRetention(10*time.Minute),
		WithSampleSource(func() float64 { return 0.99 }),
	)

	unsampled, err := rec.CreateTrace(ctx, "shop.create_order", 0, tracing.StatusPending)
	require.NoError(t, err)
	preserved, err := rec.CreateTrace(ctx, "shop.create_order", 0, tracing.StatusPending)
	require.NoError(t, err)
	require.NoError(t, rec.Preserve(ctx, preserved))
	sampled, err := rec.CreateTrace(ctx, "shop.create_order", 1, tracing.StatusPending)
	require.NoError(t, err)

	// Fresh traces survive a sweep regardless of sampling.
	assert.Zero(t, rec.Sweep())

	clock.Advance(11 * time.Minute)
	recent, err := rec.CreateTrace(ctx, "shop.create_order", 0, tracing.StatusPending)
	require.NoError(t, err)

	assert.Equal(t, 1, rec.Sweep())

	_, err = rec.GetTrace(ctx, unsampled)
	assert.ErrorIs(t, err, tracing.ErrTraceNotFound)
	for _, id := range []string{preserved, sampled, recent} {
		_, err := rec.GetTrace(ctx, id)
		assert.NoError(t, err)
	}
}

func TestPreserveOverridesEviction(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	rec := NewRecorder(WithClock(clock.Now), WithRetention(time.Minute), WithSampleSource(func() float64 { return 0.99 }))

	id, err := rec.CreateTrace(ctx, "shop.create_order", 0, tracing.StatusPending)
	require.NoError(t, err)
	spanID, err := rec.CreateSpan(ctx, id, tracing.SpanStart{Name: "root"})
	require.NoError(t, err)

	require.NoError(t, rec.Preserve(ctx, id))
	clock.Advance(time.Hour)
	assert.Zero(t, rec.Sweep())

	tr, err := rec.GetTrace(ctx, id)
	require.NoError(t, err)
	assert.True(t, tr.Preserved)
	require.Len(t, tr.Spans, 1)
	assert.Equal(t, spanID, tr.Spans[0].ID)

	assert.ErrorIs(t, rec.Preserve(ctx, "missing"), tracing.ErrTraceNotFound)
}

func TestListTracesFiltersAndLimits(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder()

	var orderIDs []string
	for i := 0; i < 3; i++ {
		id, err := rec.CreateTrace(ctx, "shop.create_order", 1, tracing.StatusPending)
		require.NoError(t, err)
		orderIDs = append(orderIDs, id)
	}
	catalogID, err := rec.CreateTrace(ctx, "shop.list_products", 1, tracing.StatusPending)
	require.NoError(t, err)

	rootID, err := rec.CreateSpan(ctx, orderIDs[2], tracing.SpanStart{Name: "root"})
	require.NoError(t, err)
	require.NoError(t, rec.CompleteSpan(ctx, rootID, tracing.SpanCompletion{Status: tracing.StatusError, Error: "declined"}))

	bySource, err := rec.ListTraces(ctx, tracing.Filter{Source: "shop.create_order"})
	require.NoError(t, err)
	assert.Len(t, bySource, 3)

	failed, err := rec.ListTraces(ctx, tracing.Filter{Status: tracing.StatusError})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, orderIDs[2], failed[0].ID)

	limited, err := rec.ListTraces(ctx, tracing.Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	// Newest first.
	assert.Equal(t, catalogID, limited[0].ID)
	assert.Equal(t, orderIDs[2], limited[1].ID)
}

func TestSpansAssembledInStartOrder(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	rec := NewRecorder(WithClock(clock.Now))

	traceID, err := rec.CreateTrace(ctx, "shop.create_order", 1, tracing.StatusPending)
	require.NoError(t, err)

	later := clock.Now().Add(5 * time.Second)
	_, err = rec.CreateSpan(ctx, traceID, tracing.SpanStart{Name: "late", StartTime: later})
	require.NoError(t, err)
	_, err = rec.CreateSpan(ctx, traceID, tracing.SpanStart{Name: "early", StartTime: clock.Now()})
	require.NoError(t, err)

	tr, err := rec.GetTrace(ctx, traceID)
	require.NoError(t, err)
	require.Len(t, tr.Spans, 2)
	assert.Equal(t, "early", tr.Spans[0].Name)
	assert.Equal(t, "late", tr.Spans[1].Name)
}
