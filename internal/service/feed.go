package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"TripPlanner/config"
	"TripPlanner/internal/cache"
	"TripPlanner/internal/model"
	"TripPlanner/internal/model/dto"
	"TripPlanner/internal/queue"
	"TripPlanner/internal/repository"
	"TripPlanner/internal/session"
	"TripPlanner/pkg/errors"
	"TripPlanner/pkg/logger"
	"TripPlanner/pkg/metrics"
	"TripPlanner/pkg/snowflake"
	"TripPlanner/storage/database"
	"TripPlanner/storage/mq"
	"TripPlanner/storage/redis"
)

var (
	feedService *FeedService
	feedOnce    sync.Once
)

// Feed 返回基于数据库、Redis 与 RabbitMQ 的全局实例
func Feed() *FeedService {
	feedOnce.Do(func() {
		feedService = NewFeedService(
			repository.NewPlanRepository(database.DB()),
			queue.NewPublisher(),
			cache.NewFeedCache(redis.Client(), time.Duration(config.Cfg.FeedCacheSeconds)*time.Second),
		)
		feedService.defaultSize = config.Cfg.FeedPageSize
		feedService.maxSize = config.Cfg.FeedMaxPageSize
	})
	return feedService
}

// FeedService 公开广场：keyset 分页浏览与保存副本
type FeedService struct {
	plans       repository.PlanRepository
	events      EventPublisher
	cache       FeedCache
	newID       func() (string, error)
	now         func() time.Time
	defaultSize int
	maxSize     int
}

// NewFeedService events 与 feedCache 可为 nil
func NewFeedService(plans repository.PlanRepository, events EventPublisher, feedCache FeedCache) *FeedService {
	if events == nil {
		events = nopPublisher{}
	}
	if feedCache == nil {
		feedCache = nopFeedCache{}
	}
	return &FeedService{
		plans:       plans,
		events:      events,
		cache:       feedCache,
		newID:       snowflake.NextStringID,
		now:         time.Now,
		defaultSize: 20,
		maxSize:     100,
	}
}

// pageSize 0 取默认值，其余限制在 [1, maxSize]
func (s *FeedService) pageSize(limit int) int {
	switch {
	case limit <= 0:
		limit = s.defaultSize
	case limit > s.maxSize:
		limit = s.maxSize
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// ListPublic 按 (created_at desc, id asc) 返回一页公开行程。
// 多取一条判断是否还有下一页，没有时 NextCursor 为空。
func (s *FeedService) ListPublic(ctx context.Context, limit int, cursor string) (dto.FeedPage, error) {
	limit = s.pageSize(limit)

	cur, err := model.DecodeFeedCursor(cursor)
	if err != nil {
		return dto.FeedPage{}, errors.Invalid("cursor", "malformed cursor")
	}

	// 缓存代必须在查询前读取，查询期间的失效会使写回作废
	gen := int64(-1)
	if cur == nil {
		page, g, ok := s.cache.Get(ctx, limit)
		if ok {
			metrics.GetMetrics().RecordFeedPage(ctx, len(page.Items), true)
			return page, nil
		}
		gen = g
	}

	plans, err := s.plans.ListPublic(ctx, cur, limit+1)
	if err != nil {
		return dto.FeedPage{}, errors.Backend(fmt.Errorf("failed to list public plans: %w", err))
	}

	page := dto.FeedPage{}
	if len(plans) > limit {
		plans = plans[:limit]
		page.NextCursor = model.CursorOf(plans[len(plans)-1]).Encode()
	}
	page.Items = dto.NewPlanItems(plans)

	if cur == nil {
		s.cache.Set(ctx, gen, limit, page)
	}
	metrics.GetMetrics().RecordFeedPage(ctx, len(page.Items), false)

	return page, nil
}

// SavePlanCopy 把 viewer 可见的行程保存为自己的私有副本。
// 已有副本时返回其 ID 且 AlreadySaved 为 true；并发保存由唯一索引兜底。
func (s *FeedService) SavePlanCopy(ctx context.Context, viewer session.Identity, sourcePlanID string) (dto.SaveCopyResponse, error) {
	source, err := s.plans.GetByID(ctx, sourcePlanID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SaveCopyResponse{}, errors.PlanNotFound
		}
		return dto.SaveCopyResponse{}, errors.Backend(fmt.Errorf("failed to get source plan: %w", err))
	}
	if !source.VisibleTo(viewer.UserID, viewer.Email) {
		return dto.SaveCopyResponse{}, errors.PlanNotFound
	}

	if existing, err := s.findCopy(ctx, viewer.UserID, source.ID); err != nil {
		return dto.SaveCopyResponse{}, err
	} else if existing != nil {
		metrics.GetMetrics().RecordCopySaved(ctx, true)
		return dto.SaveCopyResponse{PlanID: existing.ID, AlreadySaved: true}, nil
	}

	id, err := s.newID()
	if err != nil {
		return dto.SaveCopyResponse{}, fmt.Errorf("failed to generate plan id: %w", err)
	}

	cp := copyOf(source, id, viewer.UserID, s.now().UTC())
	inserted, err := s.plans.CreateCopy(ctx, cp)
	if err != nil {
		return dto.SaveCopyResponse{}, errors.Backend(fmt.Errorf("failed to save plan copy: %w", err))
	}

	if !inserted {
		existing, err := s.findCopy(ctx, viewer.UserID, source.ID)
		if err != nil {
			return dto.SaveCopyResponse{}, err
		}
		if existing == nil {
			return dto.SaveCopyResponse{}, errors.Backend(fmt.Errorf("plan copy conflict for source %s without existing copy", source.ID))
		}
		metrics.GetMetrics().RecordCopySaved(ctx, true)
		return dto.SaveCopyResponse{PlanID: existing.ID, AlreadySaved: true}, nil
	}

	logger.Logger.Info("Plan copy saved",
		zap.String("source_plan_id", source.ID),
		zap.String("copy_plan_id", cp.ID),
		zap.String("viewer_id", viewer.UserID),
	)
	metrics.GetMetrics().RecordCopySaved(ctx, false)

	err = s.events.PublishCopySaved(ctx, model.PlanCopySavedMessage{
		SourcePlanID: source.ID,
		CopyPlanID:   cp.ID,
		ViewerID:     viewer.UserID,
		OccurredAt:   s.now().UTC(),
	})
	if err != nil {
		logPublishFailure(ctx, mq.RoutingKeyCopySaved, source.ID, err)
	}

	return dto.SaveCopyResponse{PlanID: cp.ID}, nil
}

// findCopy 没有副本时返回 nil, nil
func (s *FeedService) findCopy(ctx context.Context, ownerID, sourceID string) (*model.TravelPlan, error) {
	existing, err := s.plans.FindCopy(ctx, ownerID, sourceID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Backend(fmt.Errorf("failed to check existing copy: %w", err))
	}
	return existing, nil
}

// copyOf 复制内容字段；可见性私有、清空邀请、记录来源
func copyOf(src *model.TravelPlan, id, ownerID string, now time.Time) *model.TravelPlan {
	sourceID := src.ID
	places := make(datatypes.JSONSlice[model.Place], len(src.Places))
	copy(places, src.Places)

	return &model.TravelPlan{
		ID:                  id,
		OwnerID:             ownerID,
		Destination:         src.Destination,
		StartDate:           src.StartDate,
		EndDate:             src.EndDate,
		Vehicle:             src.Vehicle,
		ExpectedExpenditure: src.ExpectedExpenditure,
		Accommodation:       src.Accommodation,
		AdditionalNotes:     src.AdditionalNotes,
		Places:              places,
		Visibility:          model.VisibilityPrivate,
		InvitedEmails:       datatypes.JSONSlice[string]{},
		OriginalPlanID:      &sourceID,
		IsEdited:            false,
		SavedAt:             &now,
	}
}
