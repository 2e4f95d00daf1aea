package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	pkgdb "TripPlanner/pkg/database"
	"TripPlanner/pkg/metrics"
	pkgmq "TripPlanner/pkg/mq"
	pkgredis "TripPlanner/pkg/redis"
)

// Setup 启用时初始化 OTLP provider，随后创建数据库、Redis、MQ 与业务指标。
// 未启用时指标落在全局 noop provider 上。
func Setup(ctx context.Context, cfg Config, enabled bool) (func(context.Context) error, error) {
	shutdown := func(context.Context) error { return nil }

	if enabled {
		p, err := start(ctx, cfg)
		if err != nil {
			return nil, err
		}
		shutdown = p.shutdown
	}

	meter := otel.Meter(namespace)
	instruments := []struct {
		name string
		init func(metric.Meter) error
	}{
		{"database", pkgdb.InitDatabaseMetrics},
		{"redis", pkgredis.InitRedisMetrics},
		{"mq", pkgmq.InitMQMetrics},
	}
	for _, in := range instruments {
		if err := in.init(meter); err != nil {
			return shutdown, fmt.Errorf("failed to init %s metrics: %w", in.name, err)
		}
	}

	if err := metrics.InitMetrics(); err != nil {
		return shutdown, fmt.Errorf("failed to init domain metrics: %w", err)
	}

	return shutdown, nil
}

// Meter 返回服务命名空间下的 meter
func Meter() metric.Meter {
	return otel.Meter(namespace)
}
