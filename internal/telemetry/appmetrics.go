package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CountFunc reports the current number of stored snippets and tags.
type CountFunc func(ctx context.Context) (snippets, tags int64, err error)

var (
	appMetricsEnabled bool
	submissionsTotal  metric.Int64Counter
	commentsTotal     metric.Int64Counter
)

// InitAppMetrics registers the domain instruments. The gauges are observed
// through count on every collection cycle.
func InitAppMetrics(serviceName string, count CountFunc) error {
	meter := otel.Meter(serviceName)

	var err error
	submissionsTotal, err = meter.Int64Counter(
		"snipshare_submissions_total",
		metric.WithDescription("Snippets submitted"),
	)
	if err != nil {
		return err
	}

	commentsTotal, err = meter.Int64Counter(
		"snipshare_comments_total",
		metric.WithDescription("Comments posted"),
	)
	if err != nil {
		return err
	}

	snippetGauge, err := meter.Int64ObservableGauge(
		"snipshare_snippets",
		metric.WithDescription("Stored snippets"),
	)
	if err != nil {
		return err
	}

	tagGauge, err := meter.Int64ObservableGauge(
		"snipshare_tags",
		metric.WithDescription("Distinct tags"),
	)
	if err != nil {
		return err
	}

	if count != nil {
		_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			snippets, tags, err := count(ctx)
			if err != nil {
				return err
			}
			o.ObserveInt64(snippetGauge, snippets)
			o.ObserveInt64(tagGauge, tags)
			return nil
		}, snippetGauge, tagGauge)
		if err != nil {
			return err
		}
	}

	appMetricsEnabled = true
	return nil
}

func RecordSubmission(ctx context.Context, tags int, withImage bool) {
	if !appMetricsEnabled {
		return
	}
	submissionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("snippet.has_image", withImage),
		attribute.Bool("snippet.has_tags", tags > 0),
	))
}

func RecordComment(ctx context.Context) {
	if !appMetricsEnabled {
		return
	}
	commentsTotal.Add(ctx, 1)
}
