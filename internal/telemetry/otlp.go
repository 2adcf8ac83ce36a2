package telemetry

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ShutdownFunc flushes and stops one signal's provider.
type ShutdownFunc func(context.Context) error

func otlpEndpoint(signalEnv string) string {
	endpoint := strings.TrimSpace(os.Getenv(signalEnv))
	if endpoint == "" {
		endpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	}
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	return endpoint
}

// otlpInsecure reports whether exporters dial without TLS. Collectors run as
// sidecars by default, so only an explicit false turns TLS on.
func otlpInsecure() bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")))
	if err != nil {
		return true
	}
	return v
}

func serviceResource(serviceName string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)
}

// Init starts the trace, metric and log pipelines. The returned function shuts
// all of them down in reverse order. On error, pipelines already started are
// shut down before returning.
func Init(ctx context.Context, serviceName string) (ShutdownFunc, error) {
	var shutdowns []ShutdownFunc
	shutdownAll := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	for _, start := range []func(context.Context, string) (ShutdownFunc, error){
		InitTracer,
		InitMetrics,
		InitLogger,
	} {
		shutdown, err := start(ctx, serviceName)
		if err != nil {
			_ = shutdownAll(ctx)
			return nil, err
		}
		shutdowns = append(shutdowns, shutdown)
	}
	return shutdownAll, nil
}
