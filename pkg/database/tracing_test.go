package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func TestTraceQuery_Span(t *testing.T) {
	sr := recordSpans(t)

	ctx, end := TraceQuery(context.Background(), "SaveCart", "INSERT INTO cart_snapshots")
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	end(nil)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.SaveCart", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "SaveCart", attrs["db.operation"])
	assert.Equal(t, "INSERT INTO cart_snapshots", attrs["db.statement"])
}

func TestTraceQuery_Error(t *testing.T) {
	sr := recordSpans(t)

	_, end := TraceQuery(context.Background(), "LoadCart", "SELECT payload")
	end(errors.New("connection reset"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "connection reset", spans[0].Status().Description)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestLogSlowQueries(t *testing.T) {
	t.Cleanup(func() { LogSlowQueries(0, nil) })

	tests := []struct {
		name      string
		threshold time.Duration
		sleep     time.Duration
		logged    bool
	}{
		{"slow", time.Millisecond, 5 * time.Millisecond, true},
		{"fast", time.Hour, 0, false},
		{"disabled", 0, 5 * time.Millisecond, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			LogSlowQueries(tt.threshold, slog.New(slog.NewJSONHandler(&buf, nil)))

			_, end := TraceQuery(context.Background(), "PurgeExpiredCarts", "DELETE FROM cart_snapshots")
			time.Sleep(tt.sleep)
			end(nil)

			if tt.logged {
				assert.Contains(t, buf.String(), `"msg":"slow query"`)
				assert.Contains(t, buf.String(), `"operation":"PurgeExpiredCarts"`)
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}
