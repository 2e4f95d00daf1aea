package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"TripPlanner/config"
	"TripPlanner/pkg/errors"
	"TripPlanner/pkg/logger"
	"TripPlanner/pkg/response"
	"TripPlanner/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 时间窗口（秒）
	Window int
	// 时间窗口内最大请求数
	MaxRequests int
	// 限流键前缀
	KeyPrefix string
	// 是否按用户ID限流（需要认证）
	ByUserID bool
	// 是否按IP限流
	ByIP bool
	// 阻塞时长（秒），超过限制后禁止访问的时间
	BlockDuration int
}

// AuthRateLimitConfig 登录、注册、刷新令牌，按 IP
var AuthRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   10,
	KeyPrefix:     "rate:auth",
	ByIP:          true,
	BlockDuration: 900,
}

// SaveCopyRateLimitConfig 保存公开行程副本，按用户
var SaveCopyRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   30,
	KeyPrefix:     "rate:feed:save",
	ByUserID:      true,
	ByIP:          true,
	BlockDuration: 300,
}

// RateLimiter 基于 redis zset 的滑动窗口限流器
type RateLimiter struct {
	config RateLimitConfig
	client redislib.Cmdable
	now    func() time.Time
}

func NewRateLimiter(cfg RateLimitConfig, client redislib.Cmdable) *RateLimiter {
	return &RateLimiter{
		config: cfg,
		client: client,
		now:    time.Now,
	}
}

// identifier 优先按用户，其次按 IP
func (rl *RateLimiter) identifier(ctx context.Context, c *app.RequestContext) string {
	if rl.config.ByUserID {
		if userID, exists := GetUserID(ctx, c); exists {
			return "user:" + userID
		}
	}
	if rl.config.ByIP {
		return "ip:" + c.ClientIP()
	}
	return "global"
}

func (rl *RateLimiter) windowKey(id string) string {
	return redis.Key(rl.config.KeyPrefix, id)
}

func (rl *RateLimiter) blockKey(id string) string {
	return redis.Key(rl.config.KeyPrefix, "block", id)
}

// Allow 记录一次请求并返回窗口内的请求数
func (rl *RateLimiter) Allow(ctx context.Context, id string) (bool, int, error) {
	key := rl.windowKey(id)
	now := rl.now()
	windowStart := now.Add(-time.Duration(rl.config.Window) * time.Second)

	pipe := rl.client.Pipeline()

	// 移除窗口开始时间之前的所有请求记录
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))

	// member 加随机后缀，同一纳秒内的请求不会互相覆盖
	pipe.ZAdd(ctx, key, redislib.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString(),
	})

	zcardCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, time.Duration(rl.config.Window+10)*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	count := int(zcardCmd.Val())
	return count <= rl.config.MaxRequests, count, nil
}

func (rl *RateLimiter) Block(ctx context.Context, id string) error {
	return rl.client.Set(ctx, rl.blockKey(id), "1", time.Duration(rl.config.BlockDuration)*time.Second).Err()
}

func (rl *RateLimiter) IsBlocked(ctx context.Context, id string) (bool, error) {
	n, err := rl.client.Exists(ctx, rl.blockKey(id)).Result()
	return n > 0, err
}

// Handler 返回限流中间件；redis 出错时返回 503
func (rl *RateLimiter) Handler() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := rl.identifier(ctx, c)

		blocked, err := rl.IsBlocked(ctx, id)
		if err != nil {
			logger.Logger.Error("Failed to check block status", zap.Error(err))
			c.Abort()
			response.Error(ctx, c, errors.Backend(err))
			return
		}
		if blocked {
			c.Abort()
			response.Error(ctx, c, errors.TooManyRequests)
			return
		}

		allowed, count, err := rl.Allow(ctx, id)
		if err != nil {
			logger.Logger.Error("Failed to check rate limit", zap.Error(err))
			c.Abort()
			response.Error(ctx, c, errors.Backend(err))
			return
		}

		remaining := rl.config.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.MaxRequests))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(time.Duration(rl.config.Window)*time.Second).Unix(), 10))

		if !allowed {
			if err := rl.Block(ctx, id); err != nil {
				logger.Logger.Error("Failed to block client", zap.String("id", id), zap.Error(err))
			}
			logger.Logger.Warn("Rate limit exceeded", zap.String("prefix", rl.config.KeyPrefix), zap.String("id", id))

			c.Abort()
			response.Error(ctx, c, errors.TooManyRequests)
			return
		}

		c.Next(ctx)
	}
}

// RateLimitMiddleware 未启用限流或 redis 未初始化时直接放行
func RateLimitMiddleware(cfg RateLimitConfig) app.HandlerFunc {
	client := redis.Client()
	if !config.Cfg.RateLimitEnabled || client == nil {
		return func(ctx context.Context, c *app.RequestContext) {
			c.Next(ctx)
		}
	}
	return NewRateLimiter(cfg, client).Handler()
}

// AuthRateLimitMiddleware 认证相关限流（登录、注册等）
func AuthRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(AuthRateLimitConfig)
}

// SaveCopyRateLimitMiddleware 保存副本限流
func SaveCopyRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(SaveCopyRateLimitConfig)
}
