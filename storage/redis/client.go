package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"TripPlanner/config"
	pkgredis "TripPlanner/pkg/redis"
)

var (
	client *redis.Client
	once   sync.Once
	err    error
)

// Init 连接 Redis；行程缓存、refresh token 与消息去重共用这个客户端
func Init() error {
	once.Do(func() {
		cfg := config.Cfg
		client = redis.NewClient(clientOptions(&cfg))

		if cfg.TracingEnabled {
			pkgredis.InstrumentRedisClient(client, cfg.ServiceName, cfg.RedisDB)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err = client.Ping(ctx).Err(); err != nil {
			err = fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
	})

	return err
}

// clientOptions 读超时短于 HTTP 请求超时，缓存慢时由熔断器降级
func clientOptions(cfg *config.Config) *redis.Options {
	return &redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MinIdleConns: 2,
		MaxRetries:   1,
	}
}

// Client 返回全局客户端，未初始化时返回 nil
func Client() *redis.Client {
	return client
}

func Close(ctx context.Context) error {
	if client == nil {
		return nil
	}

	return client.Close()
}

// Key 拼接带前缀的键名，空段跳过
func Key(parts ...string) string {
	prefix := config.Cfg.RedisPrefix
	if prefix == "" {
		prefix = "trip"
	}

	var sb strings.Builder
	sb.WriteString(prefix)
	for _, part := range parts {
		if part != "" {
			sb.WriteString(":")
			sb.WriteString(part)
		}
	}

	return sb.String()
}
