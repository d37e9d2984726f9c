package reqctx

import (
	"context"

	"github.com/google/uuid"
)

// Trace contains request tracing information.
type Trace struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

// WithTrace adds Trace to context.
func WithTrace(ctx context.Context, trace *Trace) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns Trace from context.
func GetTrace(ctx context.Context) *Trace {
	if v, ok := ctx.Value(traceContextKey{}).(*Trace); ok {
		return v
	}
	return nil
}

// GetRequestID returns request ID from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// NewTrace creates a new Trace with generated IDs.
func NewTrace() *Trace {
	return &Trace{
		TraceID:   uuid.New().String(),
		SpanID:    uuid.New().String()[:16],
		RequestID: uuid.New().String(),
	}
}
