package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"TripPlanner/internal/model/dto"
	"TripPlanner/pkg/logger"
	"TripPlanner/storage/redis"
)

// FeedCache 公开动态首页缓存。首页按缓存代分 hash 存放，各页大小为 hash 字段。
// 失效只递增代号，旧代的 hash 按 TTL 过期；读者回源前记下代号，写回时只写该代，
// 回源期间发生的失效会让这次写入落在无人读取的旧代上。
// 缓存不可用时 Get 视为未命中，调用方回源数据库。
type FeedCache struct {
	client  *goredis.Client
	ttl     time.Duration
	breaker *CircuitBreaker
}

func NewFeedCache(client *goredis.Client, ttl time.Duration) *FeedCache {
	return &FeedCache{client: client, ttl: ttl, breaker: RedisBreaker}
}

func feedGenKey() string {
	return redis.Key("feed", "gen")
}

func feedKey(gen int64) string {
	return redis.Key("feed", "first", strconv.FormatInt(gen, 10))
}

// Get 读取首页。gen 为读取时的缓存代，未命中回源后用它调用 Set；
// 代号读取失败时 gen 为 -1，Set 会忽略。
func (f *FeedCache) Get(ctx context.Context, limit int) (page dto.FeedPage, gen int64, ok bool) {
	gen = -1
	if f == nil || f.client == nil {
		return page, gen, false
	}

	var data string
	err := f.breaker.Call(func() error {
		g, err := f.client.Get(ctx, feedGenKey()).Int64()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		gen = g

		data, err = f.client.HGet(ctx, feedKey(gen), strconv.Itoa(limit)).Result()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		return err
	})
	if err != nil {
		return page, -1, false
	}
	if data == "" {
		return page, gen, false
	}

	if err := json.Unmarshal([]byte(data), &page); err != nil {
		logger.Logger.Warn("Discard malformed feed cache entry", zap.Int("limit", limit), zap.Error(err))
		return dto.FeedPage{}, gen, false
	}
	return page, gen, true
}

// Set 把首页写入 gen 代，gen < 0 时不写；失败只记录日志
func (f *FeedCache) Set(ctx context.Context, gen int64, limit int, page dto.FeedPage) {
	if f == nil || f.client == nil || gen < 0 {
		return
	}

	data, err := json.Marshal(page)
	if err != nil {
		logger.Logger.Warn("Failed to marshal feed page", zap.Error(err))
		return
	}

	if err := f.breaker.Call(func() error {
		pipe := f.client.TxPipeline()
		pipe.HSet(ctx, feedKey(gen), strconv.Itoa(limit), data)
		pipe.Expire(ctx, feedKey(gen), f.ttl)
		_, err := pipe.Exec(ctx)
		return err
	}); err != nil {
		logger.Logger.Warn("Failed to write feed cache", zap.Int64("gen", gen), zap.Error(err))
	}
}

// Invalidate 递增缓存代，之后的读取与迟到的写回都不会再碰到旧代
func (f *FeedCache) Invalidate(ctx context.Context) error {
	if f == nil || f.client == nil {
		return nil
	}
	if err := f.client.Incr(ctx, feedGenKey()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate feed cache: %w", err)
	}
	return nil
}
