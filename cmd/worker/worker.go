package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"TripPlanner/config"
	"TripPlanner/internal/cache"
	"TripPlanner/internal/queue"
	"TripPlanner/internal/repository"
	"TripPlanner/pkg/logger"
	pkgotel "TripPlanner/pkg/otel"
	"TripPlanner/storage"
	"TripPlanner/storage/database"
	"TripPlanner/storage/redis"
)

func main() {
	logger.Init(config.Cfg.ServiceName + "-worker")
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	shutdownTelemetry, err := pkgotel.Setup(ctx, pkgotel.Config{
		ServiceName:    config.Cfg.ServiceName + "-worker",
		ServiceVersion: config.Cfg.ServiceVersion,
		Environment:    config.Cfg.Environment,
		OTLPEndpoint:   config.Cfg.OTLPEndpoint,
		SampleRatio:    config.Cfg.TracingSampler,
	}, config.Cfg.TracingEnabled)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	handlers := queue.NewHandlers(
		repository.NewPlanRepository(database.DB()),
		cache.NewMessageDedup(redis.Client()),
	)

	logger.Logger.Info("Worker service starting")

	// 阻塞到收到退出信号
	queue.StartAllConsumers(ctx, handlers)

	logger.Logger.Info("Worker service shutting down gracefully")
}
