package db

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	SystemPostgres = "postgresql"
	SystemSQLite   = "sqlite"
)

var (
	dbMetricsEnabled bool
	dbQueryDuration  metric.Float64Histogram
	dbQueryErrors    metric.Int64Counter
	dbTracer         trace.Tracer
)

func InitTelemetry(serviceName string) {
	dbTracer = otel.Tracer(serviceName + "/db")
	meter := otel.Meter(serviceName + "/db")

	var err error
	dbQueryDuration, err = meter.Float64Histogram(
		"snipshare_db_query_duration_seconds",
		metric.WithDescription("Store query latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return
	}

	dbQueryErrors, err = meter.Int64Counter(
		"snipshare_db_query_errors_total",
		metric.WithDescription("Store query errors"),
	)
	if err != nil {
		return
	}

	dbMetricsEnabled = true
}

// Observe opens a span for one statement and returns a finish func that
// records its outcome. Finish must be called exactly once.
func Observe(ctx context.Context, system, sql string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span, op := startDBSpan(ctx, system, sql)
	return ctx, func(err error) {
		recordDBTelemetry(ctx, span, system, op, err, time.Since(start))
	}
}

// Instrument wraps a pgx pool or transaction so each statement is traced.
func Instrument(q Queryer) Queryer {
	if _, ok := q.(instrumentedQueryer); ok {
		return q
	}
	return instrumentedQueryer{q: q}
}

type instrumentedQueryer struct {
	q Queryer
}

func (i instrumentedQueryer) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	ctx, finish := Observe(ctx, SystemPostgres, sql)
	tag, err := i.q.Exec(ctx, sql, arguments...)
	finish(err)
	return tag, err
}

func (i instrumentedQueryer) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	ctx, finish := Observe(ctx, SystemPostgres, sql)
	rows, err := i.q.Query(ctx, sql, args...)
	if err != nil {
		finish(err)
		return rows, err
	}
	return &instrumentedRows{Rows: rows, finish: finish}, nil
}

func (i instrumentedQueryer) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, finish := Observe(ctx, SystemPostgres, sql)
	row := i.q.QueryRow(ctx, sql, args...)
	return &instrumentedRow{Row: row, finish: finish}
}

type instrumentedRows struct {
	pgx.Rows
	finish func(error)
	once   sync.Once
}

func (r *instrumentedRows) Close() {
	r.Rows.Close()
	r.once.Do(func() { r.finish(r.Rows.Err()) })
}

type instrumentedRow struct {
	pgx.Row
	finish func(error)
	once   sync.Once
}

func (r *instrumentedRow) Scan(dest ...any) error {
	err := r.Row.Scan(dest...)
	r.once.Do(func() {
		// no rows is an answer, not a failure
		if err == pgx.ErrNoRows {
			r.finish(nil)
			return
		}
		r.finish(err)
	})
	return err
}

func startDBSpan(ctx context.Context, system, sql string) (context.Context, trace.Span, string) {
	op := dbOperation(sql)
	tracer := dbTracer
	if tracer == nil {
		tracer = otel.Tracer("snipshare-db")
	}
	ctx, span := tracer.Start(ctx, "DB "+op)
	span.SetAttributes(
		attribute.String("db.system", system),
		attribute.String("db.operation", op),
	)
	return ctx, span, op
}

func recordDBTelemetry(ctx context.Context, span trace.Span, system, op string, err error, duration time.Duration) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "db_error")
	}
	span.End()

	if !dbMetricsEnabled {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("db.system", system),
		attribute.String("db.operation", op),
		attribute.String("db.status", statusLabel(err)),
	}
	dbQueryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if err != nil {
		dbQueryErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func dbOperation(sql string) string {
	fields := strings.Fields(strings.TrimSpace(sql))
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToUpper(fields[0])
}
