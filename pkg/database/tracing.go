package database

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/devmojahid/restu-food/pkg/database"

var queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "db_query_duration_seconds",
	Help:    "Latency of cart store queries.",
	Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
}, []string{"operation", "outcome"})

type slowLog struct {
	threshold time.Duration
	logger    *slog.Logger
}

var slowQueries atomic.Pointer[slowLog]

// LogSlowQueries makes TraceQuery warn about queries taking at least
// threshold. Zero turns it off.
func LogSlowQueries(threshold time.Duration, logger *slog.Logger) {
	if threshold <= 0 || logger == nil {
		slowQueries.Store(nil)
		return
	}
	slowQueries.Store(&slowLog{threshold: threshold, logger: logger})
}

// TraceQuery opens a client span for one statement and returns the function
// that closes it:
//
//	ctx, end := database.TraceQuery(ctx, "SaveCart", saveQuery)
//	defer func() { end(err) }()
func TraceQuery(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		elapsed := time.Since(start)
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		queryDuration.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())

		if sl := slowQueries.Load(); sl != nil && elapsed >= sl.threshold {
			sl.logger.WarnContext(ctx, "slow query",
				slog.String("operation", operation),
				slog.Duration("duration", elapsed),
				slog.String("outcome", outcome),
			)
		}
	}
}
