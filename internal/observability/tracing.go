package observability

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one unit of work: an HTTP request or a pipeline stage. A span
// started under a context that already carries one joins its trace.
type Span struct {
	TraceID   string
	SpanID    string
	ParentID  string
	Operation string
	Start     time.Time
	Elapsed   time.Duration
	Err       error

	attrs []slog.Attr
}

type spanKey struct{}

func StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	span := &Span{
		TraceID:   newID(),
		SpanID:    newID(),
		Operation: operation,
		Start:     time.Now(),
	}
	if parent := SpanFrom(ctx); parent != nil {
		span.TraceID = parent.TraceID
		span.ParentID = parent.SpanID
	}
	return context.WithValue(ctx, spanKey{}, span), span
}

func SpanFrom(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey{}).(*Span)
	return span
}

// Set records an attribute that is emitted when the span ends.
func (s *Span) Set(key string, value any) {
	s.attrs = append(s.attrs, slog.Any(key, value))
}

// Finish stops the clock once and records err if non-nil.
func (s *Span) Finish(err error) time.Duration {
	if s.Elapsed == 0 {
		s.Elapsed = time.Since(s.Start)
	}
	if err != nil {
		s.Err = err
	}
	return s.Elapsed
}

func (s *Span) Failed() bool {
	return s.Err != nil
}

// End finishes the span and logs its outcome. Pipeline stages call it as
// `defer span.End(logger, &err)`.
func (s *Span) End(logger *slog.Logger, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	s.Finish(err)

	attrs := make([]slog.Attr, 0, len(s.attrs)+5)
	attrs = append(attrs,
		slog.String("operation", s.Operation),
		slog.String("trace_id", s.TraceID),
		slog.String("span_id", s.SpanID),
		slog.Duration("duration", s.Elapsed),
	)
	attrs = append(attrs, s.attrs...)

	if s.Failed() {
		attrs = append(attrs, slog.String("error", s.Err.Error()))
		logger.LogAttrs(context.Background(), slog.LevelError, "stage failed", attrs...)
		return
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "stage finished", attrs...)
}

func newID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:8])
}
