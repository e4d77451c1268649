package core

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Operation labels a backend round trip.
type Operation string

const (
	OperationInsert Operation = "insert"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationFind   Operation = "find"
	OperationCount  Operation = "count"
)

// Call describes one backend round trip as seen by middlewares.
//
// Payload is the operation input: *Where for find, Record for insert and
// update, *Condition for delete and count.
type Call struct {
	Operation Operation
	Source    *Source
	Payload   any
}

// Handler performs, or forwards, a Call.
type Handler func(ctx context.Context, call *Call) error

// Middleware decorates a Handler.
type Middleware func(next Handler) Handler

var middlewares struct {
	mu    sync.RWMutex
	chain []Middleware
}

// Use appends mw to the process-wide chain. The first registered middleware
// is the outermost.
func Use(mw Middleware) {
	middlewares.mu.Lock()
	middlewares.chain = append(middlewares.chain, mw)
	middlewares.mu.Unlock()
}

// ResetMiddlewares empties the chain.
func ResetMiddlewares() {
	middlewares.mu.Lock()
	middlewares.chain = nil
	middlewares.mu.Unlock()
}

// wrap builds the chain around final, innermost last.
func wrap(final Handler) Handler {
	middlewares.mu.RLock()
	defer middlewares.mu.RUnlock()
	h := final
	for i := len(middlewares.chain) - 1; i >= 0; i-- {
		h = middlewares.chain[i](h)
	}
	return h
}

// dispatchOperation executes exec through the global middleware chain. exec
// receives the context as passed down by the innermost middleware.
func dispatchOperation(ctx context.Context, op Operation, source *Source, payload any, exec func(ctx context.Context) error) error {
	handler := wrap(func(ctx context.Context, _ *Call) error {
		return exec(ctx)
	})
	return handler(ctx, &Call{Operation: op, Source: source, Payload: payload})
}

// LoggerMiddleware logs every operation with its duration at debug level and
// failures at warn level.
//
// Example:
//
//	core.Use(core.LoggerMiddleware(logger))
func LoggerMiddleware(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call *Call) error {
			start := time.Now()
			err := next(ctx, call)
			fields := []zap.Field{
				zap.String("operation", string(call.Operation)),
				zap.Stringer("source", call.Source),
				zap.Duration("took", time.Since(start)),
			}
			if err != nil {
				logger.Warn("recordkit operation failed", append(fields, zap.Error(err))...)
				return err
			}
			logger.Debug("recordkit operation", fields...)
			return nil
		}
	}
}

// MetricsMiddleware counts operations and observes their latency, labelled by
// operation, source and outcome. Collectors are registered on registerer.
func MetricsMiddleware(registerer prometheus.Registerer) (Middleware, error) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recordkit_operations_total",
			Help: "Number of backend operations executed by recordkit models.",
		},
		[]string{"operation", "source", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recordkit_operation_duration_seconds",
			Help:    "Latency of backend operations executed by recordkit models.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "source"},
	)
	for _, collector := range []prometheus.Collector{total, duration} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, call *Call) error {
			start := time.Now()
			err := next(ctx, call)
			status := "ok"
			if err != nil {
				status = "error"
			}
			source := call.Source.String()
			total.WithLabelValues(string(call.Operation), source, status).Inc()
			duration.WithLabelValues(string(call.Operation), source).Observe(time.Since(start).Seconds())
			return err
		}
	}, nil
}

// TracingMiddleware opens one span per operation, named "recordkit.<operation>".
// The span context is passed down so backend instrumentation nests under it.
func TracingMiddleware(tracer trace.Tracer) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call *Call) error {
			ctx, span := tracer.Start(ctx, "recordkit."+string(call.Operation),
				trace.WithAttributes(
					attribute.String("recordkit.operation", string(call.Operation)),
					attribute.String("recordkit.source", call.Source.String()),
				),
			)
			defer span.End()

			err := next(ctx, call)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		}
	}
}
