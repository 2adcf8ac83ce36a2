package telemetry

import (
	"context"
	"time"

	otelLog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

const (
	defaultLogScope = "snipshare-api"
	defaultEvent    = "app.log"
	eventKey        = "event"
)

// Log emits a structured log event. An "event" attribute becomes the record's
// event name instead of an attribute; the trace id is always attached.
func Log(ctx context.Context, severity otelLog.Severity, msg string, attrs ...otelLog.KeyValue) {
	logger := global.Logger(defaultLogScope)

	var rec otelLog.Record
	rec.SetEventName(defaultEvent)
	rec.SetTimestamp(time.Now())
	rec.SetSeverity(severity)
	rec.SetSeverityText(severityText(severity))
	rec.SetBody(otelLog.StringValue(msg))

	for _, kv := range attrs {
		if kv.Key == eventKey && kv.Value.Kind() == otelLog.KindString {
			rec.SetEventName(kv.Value.AsString())
			continue
		}
		rec.AddAttributes(kv)
	}
	if id := TraceID(ctx); id != "" {
		rec.AddAttributes(logTraceID(ctx))
	}

	logger.Emit(ctx, rec)
}

func LogInfo(ctx context.Context, msg string, attrs ...otelLog.KeyValue) {
	Log(ctx, otelLog.SeverityInfo, msg, attrs...)
}

func LogWarn(ctx context.Context, msg string, attrs ...otelLog.KeyValue) {
	Log(ctx, otelLog.SeverityWarn, msg, attrs...)
}

func LogError(ctx context.Context, msg string, attrs ...otelLog.KeyValue) {
	Log(ctx, otelLog.SeverityError, msg, attrs...)
}

func severityText(sev otelLog.Severity) string {
	switch {
	case sev >= otelLog.SeverityError:
		return "ERROR"
	case sev >= otelLog.SeverityWarn:
		return "WARN"
	default:
		return "INFO"
	}
}
