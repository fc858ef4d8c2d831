// Package memory provides an in-process Recorder used as the stand-in for
// the external trace storage service. Sampling is decided once at trace
// creation; unsampled, unpreserved traces are evicted after the ephemeral
// retention window.
package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopflow/fulfillment/internal/tracing"
)

const (
	defaultRetention = 10 * time.Minute
	defaultListLimit = 50
)

type traceRecord struct {
	trace   tracing.Trace
	spanIDs []string
}

type spanRecord struct {
	span tracing.Span
}

type Recorder struct {
	mu        sync.RWMutex
	traces    map[string]*traceRecord
	spans     map[string]*spanRecord
	order     []string // trace ids in creation order
	retention time.Duration
	clock     func() time.Time
	sample    func() float64

	sweepOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
}

type Option func(*Recorder)

// WithClock injects a time source for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Recorder) { r.clock = clock }
}

// WithSampleSource injects the uniform [0,1) source used for sampling decisions.
func WithSampleSource(sample func() float64) Option {
	return func(r *Recorder) { r.sample = sample }
}

func WithRetention(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.retention = d
		}
	}
}

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		traces:    make(map[string]*traceRecord),
		spans:     make(map[string]*spanRecord),
		retention: defaultRetention,
		clock:     func() time.Time { return time.Now().UTC() },
		sample:    rand.Float64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartSweeper begins periodic eviction of expired traces. Safe to call once.
func (r *Recorder) StartSweeper(ctx context.Context, interval time.Duration) {
	r.sweepOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		bg, cancel := context.WithCancel(ctx)
		r.cancel = cancel
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-bg.Done():
					return
				case <-ticker.C:
					r.Sweep()
				}
			}
		}()
	})
}

func (r *Recorder) StopSweeper() {
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
	})
}

func (r *Recorder) CreateTrace(_ context.Context, source string, sampleRate float64, status tracing.Status) (string, error) {
	id := uuid.NewString()
	now := r.clock()

	sampled := sampleRate >= 1
	if !sampled && sampleRate > 0 {
		sampled = r.sample() < sampleRate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.traces[id] = &traceRecord{trace: tracing.Trace{
		ID:         id,
		Source:     source,
		SampleRate: sampleRate,
		Status:     status,
		Sampled:    sampled,
		StartedAt:  now,
	}}
	r.order = append(r.order, id)
	return id, nil
}

func (r *Recorder) CreateSpan(_ context.Context, traceID string, start tracing.SpanStart) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tr, ok := r.traces[traceID]
	if !ok {
		return "", tracing.ErrTraceNotFound
	}

	startedAt := start.StartTime
	if startedAt.IsZero() {
		startedAt = r.clock()
	}

	id := uuid.NewString()
	r.spans[id] = &spanRecord{span: tracing.Span{
		ID:           id,
		TraceID:      traceID,
		ParentSpanID: start.ParentSpanID,
		Name:         start.Name,
		FunctionName: start.FunctionName,
		Args:         cloneMetadata(start.Args),
		Status:       tracing.StatusPending,
		StartedAt:    startedAt,
	}}
	tr.spanIDs = append(tr.spanIDs, id)
	return id, nil
}

func (r *Recorder) CompleteSpan(_ context.Context, spanID string, end tracing.SpanCompletion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.spans[spanID]
	if !ok {
		return tracing.ErrSpanNotFound
	}

	endedAt := end.EndTime
	if endedAt.IsZero() {
		endedAt = r.clock()
	}

	rec.span.Status = end.Status
	rec.span.Result = end.Result
	rec.span.Error = end.Error
	rec.span.EndedAt = endedAt
	rec.span.Duration = endedAt.Sub(rec.span.StartedAt)

	// Root span completion settles the trace status.
	if rec.span.ParentSpanID == "" {
		if tr, ok := r.traces[rec.span.TraceID]; ok {
			tr.trace.Status = end.Status
		}
	}
	return nil
}

func (r *Recorder) AddLog(_ context.Context, spanID string, severity tracing.Severity, message string, metadata tracing.Metadata) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.spans[spanID]
	if !ok {
		return "", tracing.ErrSpanNotFound
	}

	id := uuid.NewString()
	rec.span.Logs = append(rec.span.Logs, tracing.LogEntry{
		ID:        id,
		SpanID:    spanID,
		Severity:  severity,
		Message:   message,
		Metadata:  cloneMetadata(metadata),
		Timestamp: r.clock(),
	})
	return id, nil
}

func (r *Recorder) Preserve(_ context.Context, traceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tr, ok := r.traces[traceID]
	if !ok {
		return tracing.ErrTraceNotFound
	}
	tr.trace.Preserved = true
	return nil
}

func (r *Recorder) GetTrace(_ context.Context, traceID string) (*tracing.Trace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tr, ok := r.traces[traceID]
	if !ok {
		return nil, tracing.ErrTraceNotFound
	}
	return r.assemble(tr), nil
}

func (r *Recorder) ListTraces(_ context.Context, f tracing.Filter) ([]*tracing.Trace, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*tracing.Trace, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		tr, ok := r.traces[r.order[i]]
		if !ok {
			continue
		}
		if f.Source != "" && tr.trace.Source != f.Source {
			continue
		}
		if f.Status != "" && tr.trace.Status != f.Status {
			continue
		}
		out = append(out, r.assemble(tr))
	}
	return out, nil
}

// Sweep evicts traces past the retention window unless they were sampled in
// or explicitly preserved.
func (r *Recorder) Sweep() int {
	cutoff := r.clock().Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	kept := r.order[:0]
	for _, id := range r.order {
		tr, ok := r.traces[id]
		if !ok {
			continue
		}
		if tr.trace.StartedAt.Before(cutoff) && !tr.trace.Preserved && !tr.trace.Sampled {
			for _, spanID := range tr.spanIDs {
				delete(r.spans, spanID)
			}
			delete(r.traces, id)
			evicted++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return evicted
}

// assemble builds a detached copy of the trace with spans in start order.
// Callers must hold at least a read lock.
func (r *Recorder) assemble(tr *traceRecord) *tracing.Trace {
	out := tr.trace
	out.Spans = make([]tracing.Span, 0, len(tr.spanIDs))
	for _, spanID := range tr.spanIDs {
		if rec, ok := r.spans[spanID]; ok {
			out.Spans = append(out.Spans, cloneSpan(rec.span))
		}
	}
	sort.SliceStable(out.Spans, func(i, j int) bool {
		return out.Spans[i].StartedAt.Before(out.Spans[j].StartedAt)
	})
	return &out
}

func cloneSpan(s tracing.Span) tracing.Span {
	out := s
	out.Args = cloneMetadata(s.Args)
	out.Logs = make([]tracing.LogEntry, len(s.Logs))
	for i, l := range s.Logs {
		l.Metadata = cloneMetadata(l.Metadata)
		out.Logs[i] = l
	}
	return out
}

func cloneMetadata(m tracing.Metadata) tracing.Metadata {
	if m == nil {
		return nil
	}
	out := make(tracing.Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
