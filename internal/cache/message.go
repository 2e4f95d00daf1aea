package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"TripPlanner/storage/redis"
)

const (
	messagePrefix = "msg"
	// processingTTL 处理中标记的过期时间，消费者崩溃后可重新处理
	processingTTL = 5 * time.Minute
	// processedTTL 已处理标记的保留时间，覆盖 RabbitMQ 的重投窗口
	processedTTL = 24 * time.Hour
)

// MessageDedup 基于 SETNX 的消息去重
type MessageDedup struct {
	client *goredis.Client
}

func NewMessageDedup(client *goredis.Client) *MessageDedup {
	return &MessageDedup{client: client}
}

func messageKey(messageID string) string {
	return redis.Key(messagePrefix, messageID)
}

// TryMarkProcessing 返回 true 表示首次处理，false 表示重复消息或正在处理
func (m *MessageDedup) TryMarkProcessing(ctx context.Context, messageID string) (bool, error) {
	if m.client == nil {
		return false, ErrUnavailable
	}
	ok, err := m.client.SetNX(ctx, messageKey(messageID), "processing", processingTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return ok, nil
}

// MarkProcessed 处理成功后延长标记
func (m *MessageDedup) MarkProcessed(ctx context.Context, messageID string) error {
	if m.client == nil {
		return ErrUnavailable
	}
	return m.client.Set(ctx, messageKey(messageID), "completed", processedTTL).Err()
}

// Unmark 处理失败时删除标记，允许重投后再次处理
func (m *MessageDedup) Unmark(ctx context.Context, messageID string) error {
	if m.client == nil {
		return ErrUnavailable
	}
	return m.client.Del(ctx, messageKey(messageID)).Err()
}
