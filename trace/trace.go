// Package trace provides tracing instrumentation for seauto waits.
package trace

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "seauto"

// liveSpan represents the span of the window that is currently active.
//
// Waits run after a window switch belong to that window, so the tracer keeps
// the last window span per handle and parents later waits under it.
type liveSpan struct {
	ctx  context.Context
	span trace.Span
}

// Tracer generates spans for window switches and polling waits.
type Tracer struct {
	logger logrus.FieldLogger

	trace.Tracer

	metadata []attribute.KeyValue

	liveSpansMu sync.RWMutex
	liveSpans   map[string]*liveSpan
}

// NewTracer creates a new Tracer from the given TracerProvider.
func NewTracer(
	logger logrus.FieldLogger, tp trace.TracerProvider, metadata map[string]string, options ...trace.TracerOption,
) *Tracer {
	return &Tracer{
		logger:    logger,
		Tracer:    tp.Tracer(tracerName, options...),
		metadata:  buildMetadataAttributes(metadata),
		liveSpans: make(map[string]*liveSpan),
	}
}

// NewNoopTracer returns a Tracer that records nothing.
func NewNoopTracer() *Tracer {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return NewTracer(l, noop.NewTracerProvider(), nil)
}

// Start overrides the underlying OTEL tracer method to include the tracer metadata.
func (t *Tracer) Start(
	ctx context.Context, spanName string, opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	opts = append(opts, trace.WithAttributes(t.metadata...))
	return t.Tracer.Start(ctx, spanName, opts...)
}

// GetTraceID returns the trace ID of spanCtx, or an empty string.
func GetTraceID(spanCtx trace.SpanContext) string {
	if spanCtx.HasTraceID() {
		traceID := spanCtx.TraceID()
		return traceID.String()
	}
	return ""
}

// TraceWait starts a span for a polling wait. If a window span is live for
// window, the wait span becomes its child. It is the caller's
// responsibility to end the span.
func (t *Tracer) TraceWait(
	ctx context.Context, window string, spanName string, opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if t == nil {
		return ctx, NoopSpan{}
	}

	t.liveSpansMu.RLock()
	ls := t.liveSpans[window]
	t.liveSpansMu.RUnlock()

	if ls == nil {
		t.logger.Debugf("TraceWait: no live span spanName: %q window: %q", spanName, window)
		sCtx, span := t.Start(ctx, spanName, opts...)

		return sCtx, &SpanLogger{Span: span, logger: t.logger, spanName: spanName}
	}

	traceID := GetTraceID(trace.SpanContextFromContext(ls.ctx))
	t.logger.Debugf("TraceWait: with live span spanName: %q traceID: %q window: %q", spanName, traceID, window)
	sCtx, span := t.Start(ls.ctx, spanName, opts...)

	return sCtx, &SpanLogger{Span: span, logger: t.logger, spanName: spanName}
}

// TraceWindowSwitch records a new live span for window, ending the previous
// one for the same window if there was one.
func (t *Tracer) TraceWindowSwitch(
	ctx context.Context, window string, opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if t == nil {
		return ctx, NoopSpan{}
	}

	t.liveSpansMu.Lock()
	defer t.liveSpansMu.Unlock()

	ls := t.liveSpans[window]
	if ls != nil {
		ls.span.End()
	} else {
		ls = &liveSpan{}
	}

	spanName := "window"
	opts = append(opts, trace.WithAttributes(attribute.String("window.handle", window)))
	ls.ctx, ls.span = t.Start(ctx, spanName, opts...)
	t.liveSpans[window] = ls

	traceID := GetTraceID(trace.SpanContextFromContext(ls.ctx))
	t.logger.Debugf("TraceWindowSwitch: traceID: %q window: %q", traceID, window)

	return ls.ctx, &SpanLogger{Span: ls.span, logger: t.logger, spanName: spanName}
}

// Close ends every live window span.
func (t *Tracer) Close() {
	if t == nil {
		return
	}
	t.liveSpansMu.Lock()
	defer t.liveSpansMu.Unlock()

	for w, ls := range t.liveSpans {
		ls.span.End()
		delete(t.liveSpans, w)
	}
}

func buildMetadataAttributes(metadata map[string]string) []attribute.KeyValue {
	meta := make([]attribute.KeyValue, 0, len(metadata))
	for mk, mv := range metadata {
		meta = append(meta, attribute.String(mk, mv))
	}

	return meta
}

// NoopSpan represents a noop span.
type NoopSpan struct {
	trace.Span
}

// SpanContext returns a void span context.
func (NoopSpan) SpanContext() trace.SpanContext { return trace.SpanContext{} }

// IsRecording returns false.
func (NoopSpan) IsRecording() bool { return false }

// SetStatus is noop.
func (NoopSpan) SetStatus(codes.Code, string) {}

// SetAttributes is noop.
func (NoopSpan) SetAttributes(...attribute.KeyValue) {}

// End is noop.
func (NoopSpan) End(...trace.SpanEndOption) {}

// RecordError is noop.
func (NoopSpan) RecordError(error, ...trace.EventOption) {}

// AddEvent is noop.
func (NoopSpan) AddEvent(string, ...trace.EventOption) {}

// SetName is noop.
func (NoopSpan) SetName(string) {}

// TracerProvider returns a noop tracer provider.
func (NoopSpan) TracerProvider() trace.TracerProvider { return noop.NewTracerProvider() }

// SpanLogger is a Span that will log the method calls.
type SpanLogger struct {
	trace.Span
	logger   logrus.FieldLogger
	spanName string
}

// SetStatus will log some info before calling the underlying SetStatus.
func (i *SpanLogger) SetStatus(code codes.Code, description string) {
	traceID := GetTraceID(i.SpanContext())
	i.logger.Debugf("SetStatus: spanName: %q traceID: %q code: %q description: %q", i.spanName, traceID, code, description)

	i.Span.SetStatus(code, description)
}

// End will log some info before calling the underlying End.
func (i *SpanLogger) End(options ...trace.SpanEndOption) {
	traceID := GetTraceID(i.SpanContext())
	i.logger.Debugf("End: spanName: %q traceID: %q", i.spanName, traceID)

	i.Span.End(options...)
}

// RecordError will log some info before calling the underlying RecordError.
func (i *SpanLogger) RecordError(err error, options ...trace.EventOption) {
	traceID := GetTraceID(i.SpanContext())
	i.logger.Debugf("RecordError: spanName: %q traceID: %q err: %q", i.spanName, traceID, err)

	i.Span.RecordError(err, options...)
}
