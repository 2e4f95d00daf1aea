// Package storage 管理数据库、Redis 与 MQ 三个后端连接的生命周期。
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"TripPlanner/pkg/logger"
	"TripPlanner/storage/database"
	"TripPlanner/storage/mq"
	"TripPlanner/storage/redis"
)

const closeTimeout = 15 * time.Second

type backend struct {
	name  string
	open  func() error
	close func(context.Context) error
}

// backends 按依赖顺序打开，关闭时倒序：MQ 最先停止投递，数据库最后关闭
var backends = []backend{
	{name: "database", open: database.Init, close: database.Close},
	{name: "redis", open: redis.Init, close: redis.Close},
	{name: "mq", open: mq.Init, close: mq.Close},
}

func Init() error {
	return openAll(backends)
}

// Close 在 closeTimeout 内关闭全部后端，单个失败只记日志
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	closeAll(ctx, backends)
}

func openAll(list []backend) error {
	for _, b := range list {
		if err := b.open(); err != nil {
			return fmt.Errorf("failed to init %s: %w", b.name, err)
		}
	}
	return nil
}

func closeAll(ctx context.Context, list []backend) []error {
	var errs []error
	for i := len(list) - 1; i >= 0; i-- {
		b := list[i]
		if err := b.close(ctx); err != nil {
			logger.Logger.Error("Failed to close storage backend", zap.String("backend", b.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
			continue
		}
		logger.Logger.Info("Storage backend closed", zap.String("backend", b.name))
	}
	return errs
}
