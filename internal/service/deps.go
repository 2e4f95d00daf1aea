package service

import (
	"context"

	"go.uber.org/zap"

	"TripPlanner/internal/model"
	"TripPlanner/internal/model/dto"
	"TripPlanner/pkg/logger"
	"TripPlanner/pkg/metrics"
)

// EventPublisher 行程事件发布，失败不影响主流程
type EventPublisher interface {
	PublishCopySaved(ctx context.Context, msg model.PlanCopySavedMessage) error
	PublishInvited(ctx context.Context, msg model.PlanInvitedMessage) error
}

// FeedCache 公开广场首页缓存。Get 返回读取时的缓存代，Set 只写入该代；
// 期间发生过 Invalidate 的写入不会被后续读取看到。gen < 0 表示不可写回。
type FeedCache interface {
	Get(ctx context.Context, limit int) (page dto.FeedPage, gen int64, ok bool)
	Set(ctx context.Context, gen int64, limit int, page dto.FeedPage)
	Invalidate(ctx context.Context) error
}

type nopPublisher struct{}

func (nopPublisher) PublishCopySaved(context.Context, model.PlanCopySavedMessage) error { return nil }
func (nopPublisher) PublishInvited(context.Context, model.PlanInvitedMessage) error     { return nil }

type nopFeedCache struct{}

func (nopFeedCache) Get(context.Context, int) (dto.FeedPage, int64, bool) {
	return dto.FeedPage{}, -1, false
}
func (nopFeedCache) Set(context.Context, int64, int, dto.FeedPage) {}
func (nopFeedCache) Invalidate(context.Context) error              { return nil }

// invalidateFeed 删除首页缓存，失败只记录日志，缓存会按 TTL 过期
func invalidateFeed(ctx context.Context, feed FeedCache, planID string) {
	if err := feed.Invalidate(ctx); err != nil {
		logger.Logger.Warn("Failed to invalidate feed cache",
			zap.String("plan_id", planID),
			zap.Error(err),
		)
	}
}

func logPublishFailure(ctx context.Context, routingKey, planID string, err error) {
	metrics.GetMetrics().RecordPublishFailed(ctx, routingKey)
	logger.Logger.Warn("Failed to publish plan event",
		zap.String("routing_key", routingKey),
		zap.String("plan_id", planID),
		zap.Error(err),
	)
}
