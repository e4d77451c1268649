package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func useMiddleware(t *testing.T, mw Middleware) {
	t.Helper()
	Use(mw)
	t.Cleanup(ResetMiddlewares)
}

func TestMiddleware_Order(t *testing.T) {
	var trail []string
	trace := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, call *Call) error {
				trail = append(trail, name+":"+string(call.Operation))
				return next(ctx, call)
			}
		}
	}
	useMiddleware(t, trace("first"))
	useMiddleware(t, trace("second"))

	backend := newFakeBackend(KindRelational)
	_, err := NewModel[Record](backend).Insert(context.Background(), Record{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"first:insert", "second:insert"}, trail)
}

func TestMiddleware_CanAbort(t *testing.T) {
	denied := errors.New("denied")
	useMiddleware(t, func(next Handler) Handler {
		return func(ctx context.Context, call *Call) error {
			if call.Operation == OperationDelete {
				return denied
			}
			return next(ctx, call)
		}
	})

	backend := newFakeBackend(KindRelational)
	_, err := NewModel[Record](backend).Delete(context.Background(), 1)
	assert.ErrorIs(t, err, denied)
	assert.Empty(t, backend.callsOf("Delete"))
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	useMiddleware(t, LoggerMiddleware(zap.New(core)))

	backend := newFakeBackend(KindRelational)
	_, err := NewModel[Record](backend).GetAll(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("recordkit operation").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "find", fields["operation"])
	assert.Equal(t, "records", fields["source"])
}

func TestMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	mw, err := MetricsMiddleware(registry)
	require.NoError(t, err)
	useMiddleware(t, mw)

	backend := newFakeBackend(KindRelational)
	books := NewModel[Record](backend, Table("books"))
	_, err = books.Insert(context.Background(), Record{"title": "Dune"})
	require.NoError(t, err)
	_, err = books.CountAll(context.Background())
	require.NoError(t, err)

	expected := `
# HELP recordkit_operations_total Number of backend operations executed by recordkit models.
# TYPE recordkit_operations_total counter
recordkit_operations_total{operation="count",source="books",status="ok"} 1
recordkit_operations_total{operation="insert",source="books",status="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "recordkit_operations_total"))

	_, err = MetricsMiddleware(registry)
	assert.Error(t, err, "collectors register once per registry")
}

func TestTracingMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	useMiddleware(t, TracingMiddleware(provider.Tracer("recordkit-test")))

	boom := errors.New("boom")
	useMiddleware(t, func(next Handler) Handler {
		return func(ctx context.Context, call *Call) error {
			if call.Operation == OperationUpdate {
				return boom
			}
			return next(ctx, call)
		}
	})

	backend := newFakeBackend(KindRelational)
	records := NewModel[Record](backend)
	_, err := records.Get(context.Background(), 1)
	require.NoError(t, err)
	_, err = records.Update(context.Background(), 1, Record{"a": 1})
	require.ErrorIs(t, err, boom)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "recordkit.find", spans[0].Name())
	assert.Equal(t, "recordkit.update", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
