package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics 业务指标集合
type OTelMetrics struct {
	PlansCreatedTotal   metric.Int64Counter
	PlansDeletedTotal   metric.Int64Counter
	CopiesSavedTotal    metric.Int64Counter
	FeedPagesTotal      metric.Int64Counter
	FeedPageItems       metric.Int64Histogram
	EventsPublishFailed metric.Int64Counter
}

var metrics *OTelMetrics

// InitMetrics 初始化业务指标，需在 MeterProvider 设置之后调用
func InitMetrics() error {
	meter := otel.Meter("tripplanner")
	m := &OTelMetrics{}
	var err error

	m.PlansCreatedTotal, err = meter.Int64Counter(
		"plans_created_total",
		metric.WithDescription("Total number of travel plans created"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		return err
	}

	m.PlansDeletedTotal, err = meter.Int64Counter(
		"plans_deleted_total",
		metric.WithDescription("Total number of travel plans deleted"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		return err
	}

	m.CopiesSavedTotal, err = meter.Int64Counter(
		"plan_copies_saved_total",
		metric.WithDescription("Save-copy requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	m.FeedPagesTotal, err = meter.Int64Counter(
		"feed_pages_total",
		metric.WithDescription("Public feed pages served"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return err
	}

	m.FeedPageItems, err = meter.Int64Histogram(
		"feed_page_items",
		metric.WithDescription("Number of plans per public feed page"),
		metric.WithUnit("{plan}"),
		metric.WithExplicitBucketBoundaries(0, 1, 5, 10, 20, 50, 100),
	)
	if err != nil {
		return err
	}

	m.EventsPublishFailed, err = meter.Int64Counter(
		"plan_events_publish_failed_total",
		metric.WithDescription("Plan events that could not be published"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	metrics = m
	return nil
}

// GetMetrics 获取全局指标实例，未初始化时为 nil
func GetMetrics() *OTelMetrics {
	return metrics
}

func (m *OTelMetrics) RecordPlanCreated(ctx context.Context, visibility string) {
	if m == nil {
		return
	}
	m.PlansCreatedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("visibility", visibility)))
}

func (m *OTelMetrics) RecordPlanDeleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.PlansDeletedTotal.Add(ctx, 1)
}

// RecordCopySaved alreadySaved 为 true 表示重复保存
func (m *OTelMetrics) RecordCopySaved(ctx context.Context, alreadySaved bool) {
	if m == nil {
		return
	}
	outcome := "created"
	if alreadySaved {
		outcome = "already_saved"
	}
	m.CopiesSavedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordFeedPage cached 表示首页命中缓存
func (m *OTelMetrics) RecordFeedPage(ctx context.Context, items int, cached bool) {
	if m == nil {
		return
	}
	m.FeedPagesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cached", cached)))
	m.FeedPageItems.Record(ctx, int64(items))
}

func (m *OTelMetrics) RecordPublishFailed(ctx context.Context, routingKey string) {
	if m == nil {
		return
	}
	m.EventsPublishFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("routing_key", routingKey)))
}
