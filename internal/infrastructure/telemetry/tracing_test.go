package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	recorder := recordSpans(t)

	ctx, span := StartServiceSpan(context.Background(), "ledger", "create_sale", WithAttribute(SpanAttrItemID, "ITM-1"))
	assert.NotEmpty(t, GetTraceID(ctx))
	SetAttributes(span, SpanAttrSupplierID, "SUP-1", 42, "ignored", "count", 3)
	SetOK(span)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "ledger.create_sale", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)

	a := attrs(ended[0])
	assert.Equal(t, "create_sale", a[SpanAttrOperation].AsString())
	assert.Equal(t, "ITM-1", a[SpanAttrItemID].AsString())
	assert.Equal(t, "SUP-1", a[SpanAttrSupplierID].AsString())
	assert.Equal(t, int64(3), a["count"].AsInt64())
}

func TestRecordError(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "ledger.return_purchase")
	RecordError(span, errors.New("supplier has credit"))
	RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "supplier has credit", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, newSampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased")
}

func TestDisabledProviders(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	tp, err := NewTracerProvider(ctx, Config{Enabled: false}, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))

	mp, err := NewMeterProvider(ctx, MetricsConfig{Enabled: false}, logger)
	require.NoError(t, err)
	assert.NotNil(t, mp.Meter("x"))

	lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false}, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.False(t, lp.ZapCore(0).Enabled(0))

	p := &Providers{Tracer: tp, Meter: mp, Logs: lp}
	assert.NoError(t, p.Shutdown(ctx))
}
