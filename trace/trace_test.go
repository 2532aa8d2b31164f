package trace

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)

	return NewTracer(l, tp, map[string]string{"scenario": "checkout"}), sr
}

func TestTraceWaitParentsUnderWindow(t *testing.T) {
	t.Parallel()

	tr, sr := newRecordingTracer(t)
	ctx := context.Background()

	_, win := tr.TraceWindowSwitch(ctx, "w1")
	_, wait := tr.TraceWait(ctx, "w1", "wait")
	wait.End()
	_, orphan := tr.TraceWait(ctx, "w2", "wait")
	orphan.End()
	tr.Close()

	ended := sr.Ended()
	require.Len(t, ended, 3)

	byName := map[string][]sdktrace.ReadOnlySpan{}
	for _, s := range ended {
		byName[s.Name()] = append(byName[s.Name()], s)
	}
	require.Len(t, byName["window"], 1)
	require.Len(t, byName["wait"], 2)

	windowSpan := byName["window"][0]
	assert.Equal(t, win.SpanContext().SpanID(), windowSpan.SpanContext().SpanID())
	assert.Equal(t, windowSpan.SpanContext().SpanID(), byName["wait"][0].Parent().SpanID())
	assert.False(t, byName["wait"][1].Parent().IsValid())

	var hasMeta bool
	for _, kv := range byName["wait"][0].Attributes() {
		if string(kv.Key) == "scenario" && kv.Value.AsString() == "checkout" {
			hasMeta = true
		}
	}
	assert.True(t, hasMeta)
}

func TestTraceWindowSwitchEndsPrevious(t *testing.T) {
	t.Parallel()

	tr, sr := newRecordingTracer(t)
	ctx := context.Background()

	tr.TraceWindowSwitch(ctx, "w1")
	tr.TraceWindowSwitch(ctx, "w1")
	assert.Len(t, sr.Ended(), 1)

	tr.Close()
	assert.Len(t, sr.Ended(), 2)
}

func TestNilTracer(t *testing.T) {
	t.Parallel()

	var tr *Tracer
	ctx, span := tr.TraceWait(context.Background(), "w1", "wait")
	assert.NotNil(t, ctx)
	assert.False(t, span.IsRecording())
	assert.NotPanics(t, func() { span.End() })
	assert.NotPanics(t, tr.Close)

	_, span = NewNoopTracer().TraceWait(context.Background(), "w1", "wait")
	assert.False(t, span.IsRecording())
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	_, err := NewProvider(context.Background(), "grpc", "localhost:4317", true)
	assert.ErrorIs(t, err, ErrUnsupportedProto)

	p, err := NewProvider(context.Background(), "HTTP", "localhost:4318", true)
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))

	noopProv := NewNoopProvider()
	_, span := noopProv.Tracer("x").Start(context.Background(), "wait")
	assert.False(t, span.IsRecording())
	assert.NoError(t, noopProv.Shutdown(context.Background()))
}
