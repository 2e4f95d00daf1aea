package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"TripPlanner/storage/redis"
)

const tokenPrefix = "token"

// ErrUnavailable Redis 未初始化
var ErrUnavailable = errors.New("redis client not initialized")

// RefreshTokens 以用户为键保存当前有效的 refresh token，每个用户只保留一个
type RefreshTokens struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRefreshTokens(client *goredis.Client, ttl time.Duration) *RefreshTokens {
	return &RefreshTokens{client: client, ttl: ttl}
}

func refreshKey(userID string) string {
	return redis.Key(tokenPrefix, "refresh", userID)
}

// Save 覆盖保存用户的 refresh token
func (r *RefreshTokens) Save(ctx context.Context, userID, refreshToken string) error {
	if r.client == nil {
		return ErrUnavailable
	}
	return r.client.Set(ctx, refreshKey(userID), refreshToken, r.ttl).Err()
}

// Matches 检查 refresh token 是否仍是该用户当前的令牌
func (r *RefreshTokens) Matches(ctx context.Context, userID, refreshToken string) (bool, error) {
	if r.client == nil {
		return false, ErrUnavailable
	}
	stored, err := r.client.Get(ctx, refreshKey(userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return stored == refreshToken, nil
}

// Delete 删除 refresh token（登出）
func (r *RefreshTokens) Delete(ctx context.Context, userID string) error {
	if r.client == nil {
		return ErrUnavailable
	}
	return r.client.Del(ctx, refreshKey(userID)).Err()
}
