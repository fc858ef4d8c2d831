// Package tracing defines the call contract against the trace/span recording
// service: hierarchical spans with explicit parent linkage, time-ordered logs
// per span, probabilistic sampling at trace granularity, and a preserve
// signal that forces retention past the normal expiry window.
package tracing

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTraceNotFound = errors.New("tracing: trace not found")
	ErrSpanNotFound  = errors.New("tracing: span not found")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type Severity string

const (
	SeverityDebug Severity = "debug"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Metadata is freeform structured context attached to log entries and spans.
type Metadata map[string]any

type LogEntry struct {
	ID        string
	SpanID    string
	Severity  Severity
	Message   string
	Metadata  Metadata
	Timestamp time.Time
}

type Span struct {
	ID           string
	TraceID      string
	ParentSpanID string
	Name         string
	FunctionName string
	Args         Metadata
	Status       Status
	Result       any
	Error        string
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
	Logs         []LogEntry
}

type Trace struct {
	ID         string
	Source     string
	SampleRate float64
	Status     Status
	Preserved  bool
	Sampled    bool
	StartedAt  time.Time
	Spans      []Span
}

// SpanStart describes a new span. ParentSpanID is the explicit causal link;
// span nesting is never inferred from call-stack state.
type SpanStart struct {
	Name         string
	ParentSpanID string
	FunctionName string
	Args         Metadata
	StartTime    time.Time
}

type SpanCompletion struct {
	Status  Status
	EndTime time.Time
	Result  any
	Error   string
}

type Filter struct {
	Source string
	Status Status
	Limit  int
}

// Recorder is the trace service contract the orchestrator drives. Storage,
// retention scanning, and visualization live on the other side of it.
type Recorder interface {
	CreateTrace(ctx context.Context, source string, sampleRate float64, status Status) (string, error)
	CreateSpan(ctx context.Context, traceID string, start SpanStart) (string, error)
	CompleteSpan(ctx context.Context, spanID string, end SpanCompletion) error
	AddLog(ctx context.Context, spanID string, severity Severity, message string, metadata Metadata) (string, error)
	Preserve(ctx context.Context, traceID string) error
	GetTrace(ctx context.Context, traceID string) (*Trace, error)
	ListTraces(ctx context.Context, f Filter) ([]*Trace, error)
}
