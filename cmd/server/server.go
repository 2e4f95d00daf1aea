package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"go.uber.org/zap"

	appconfig "TripPlanner/config"
	"TripPlanner/internal/middleware"
	"TripPlanner/internal/router"
	"TripPlanner/pkg/logger"
	pkgotel "TripPlanner/pkg/otel"
	"TripPlanner/pkg/snowflake"
	"TripPlanner/pkg/token"
	"TripPlanner/storage"
)

func main() {
	// 日志部分
	logger.Init(appconfig.Cfg.ServiceName)
	defer logger.Sync()

	if err := appconfig.Cfg.Validate(); err != nil {
		logger.Logger.Fatal("Invalid configuration", zap.Error(err))
	}

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

	// 链路追踪需在存储层之前初始化，gorm/redis 插件依赖全局 provider
	shutdownTelemetry, err := pkgotel.Setup(ctx, pkgotel.Config{
		ServiceName:    appconfig.Cfg.ServiceName,
		ServiceVersion: appconfig.Cfg.ServiceVersion,
		Environment:    appconfig.Cfg.Environment,
		OTLPEndpoint:   appconfig.Cfg.OTLPEndpoint,
		SampleRatio:    appconfig.Cfg.TracingSampler,
	}, appconfig.Cfg.TracingEnabled)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	if err := middleware.InitMetrics(pkgotel.Meter()); err != nil {
		logger.Logger.Fatal("Failed to initialize HTTP metrics", zap.Error(err))
	}

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(appconfig.Cfg.SnowflakeMachineID, appconfig.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := token.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	} // token 在中间件前初始化，middleware 依赖 token

	if err := middleware.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	logger.Logger.Info("Server starting",
		zap.String("port", appconfig.Cfg.ServerPort),
	)

	addr := net.JoinHostPort(appconfig.Cfg.ServerHost, appconfig.Cfg.ServerPort)
	opts := []config.Option{server.WithHostPorts(addr)}

	var tracingMW app.HandlerFunc
	if appconfig.Cfg.TracingEnabled {
		var tracerOpt config.Option
		tracerOpt, tracingMW = middleware.NewServerTracerConfig()
		opts = append(opts, tracerOpt)
	}

	h := server.Default(opts...)
	if tracingMW != nil {
		h.Use(tracingMW)
	}

	router.Register(h)

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}
