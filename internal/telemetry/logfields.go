package telemetry

import (
	"context"

	otelLog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/PabloPavan/snipshare_api/internal/apperrors"
)

func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

func LogString(key, value string) otelLog.KeyValue {
	return otelLog.String(key, value)
}

func LogInt(key string, value int) otelLog.KeyValue {
	return otelLog.Int(key, value)
}

func LogInt64(key string, value int64) otelLog.KeyValue {
	return otelLog.Int64(key, value)
}

func LogBool(key string, value bool) otelLog.KeyValue {
	return otelLog.Bool(key, value)
}

// LogEvent names the record; Log moves it into the record's event name.
func LogEvent(name string) otelLog.KeyValue {
	return otelLog.String(eventKey, name)
}

func LogSnippetID(id string) otelLog.KeyValue {
	return otelLog.String("snippet.id", id)
}

// LogErr describes err with its message and apperrors kind.
func LogErr(err error) []otelLog.KeyValue {
	if err == nil {
		return nil
	}
	return []otelLog.KeyValue{
		otelLog.String("error.kind", string(apperrors.KindOf(err))),
		otelLog.String("error.message", err.Error()),
	}
}

func logTraceID(ctx context.Context) otelLog.KeyValue {
	return otelLog.String("trace.id", TraceID(ctx))
}
