package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"TripPlanner/config"
	"TripPlanner/internal/cache"
	"TripPlanner/internal/model"
	"TripPlanner/internal/model/dto"
	"TripPlanner/internal/queue"
	"TripPlanner/internal/repository"
	"TripPlanner/internal/session"
	"TripPlanner/internal/wizard"
	"TripPlanner/pkg/errors"
	"TripPlanner/pkg/logger"
	"TripPlanner/pkg/metrics"
	"TripPlanner/pkg/snowflake"
	"TripPlanner/storage/database"
	"TripPlanner/storage/mq"
	"TripPlanner/storage/redis"
	"TripPlanner/utils"
)

const maxRecentPlans = 50

var (
	planService *PlanService
	planOnce    sync.Once
)

// Plan 返回基于数据库、Redis 与 RabbitMQ 的全局实例
func Plan() *PlanService {
	planOnce.Do(func() {
		planService = NewPlanService(
			repository.NewPlanRepository(database.DB()),
			queue.NewPublisher(),
			cache.NewFeedCache(redis.Client(), time.Duration(config.Cfg.FeedCacheSeconds)*time.Second),
		)
	})
	return planService
}

// PlanService 用户自己的行程：增删改查与统计
type PlanService struct {
	plans  repository.PlanRepository
	events EventPublisher
	feed   FeedCache
	newID  func() (string, error)
	now    func() time.Time
}

// NewPlanService events 与 feed 可为 nil
func NewPlanService(plans repository.PlanRepository, events EventPublisher, feed FeedCache) *PlanService {
	if events == nil {
		events = nopPublisher{}
	}
	if feed == nil {
		feed = nopFeedCache{}
	}
	return &PlanService{
		plans:  plans,
		events: events,
		feed:   feed,
		newID:  snowflake.NextStringID,
		now:    time.Now,
	}
}

// Create 校验草稿并创建行程，返回新行程 ID
func (s *PlanService) Create(ctx context.Context, ownerID string, draft dto.PlanDraft) (string, error) {
	plan := &model.TravelPlan{OwnerID: ownerID}
	if err := wizard.Apply(&draft, plan); err != nil {
		return "", err
	}

	id, err := s.newID()
	if err != nil {
		return "", fmt.Errorf("failed to generate plan id: %w", err)
	}
	plan.ID = id

	if err := s.plans.Create(ctx, plan); err != nil {
		return "", errors.Backend(fmt.Errorf("failed to create plan: %w", err))
	}

	logger.Logger.Info("Plan created",
		zap.String("plan_id", plan.ID),
		zap.String("owner_id", ownerID),
		zap.String("visibility", string(plan.Visibility)),
	)
	metrics.GetMetrics().RecordPlanCreated(ctx, string(plan.Visibility))

	if plan.Visibility == model.VisibilityPublic {
		invalidateFeed(ctx, s.feed, plan.ID)
	}
	s.publishInvited(ctx, plan, plan.InvitedEmails)

	return plan.ID, nil
}

// List 按创建时间倒序返回全部行程，没有时返回空切片
func (s *PlanService) List(ctx context.Context, ownerID string) ([]dto.PlanItem, error) {
	plans, err := s.plans.ListByOwner(ctx, ownerID, 0)
	if err != nil {
		return nil, errors.Backend(fmt.Errorf("failed to list plans: %w", err))
	}
	return dto.NewPlanItems(plans), nil
}

// Recent 最近的 n 个行程，n <= 0 时取配置默认值
func (s *PlanService) Recent(ctx context.Context, ownerID string, n int) ([]dto.PlanItem, error) {
	if n <= 0 {
		n = config.Cfg.RecentPlansLimit
	}
	if n <= 0 {
		n = 5
	}
	if n > maxRecentPlans {
		n = maxRecentPlans
	}

	plans, err := s.plans.ListByOwner(ctx, ownerID, n)
	if err != nil {
		return nil, errors.Backend(fmt.Errorf("failed to list recent plans: %w", err))
	}
	return dto.NewPlanItems(plans), nil
}

// Get 查看行程详情，无权查看与不存在一样返回 PlanNotFound
func (s *PlanService) Get(ctx context.Context, viewer session.Identity, planID string) (dto.PlanDetail, error) {
	plan, err := s.load(ctx, planID)
	if err != nil {
		return dto.PlanDetail{}, err
	}
	if !plan.VisibleTo(viewer.UserID, viewer.Email) {
		return dto.PlanDetail{}, errors.PlanNotFound
	}

	return dto.PlanDetail{
		PlanItem:  dto.NewPlanItem(plan),
		Countdown: plan.CountdownAt(s.now()),
		IsOwner:   plan.OwnerID == viewer.UserID,
	}, nil
}

// Update 合并补丁后整体重新校验，places 整体替换；编辑副本会标记 is_edited
func (s *PlanService) Update(ctx context.Context, ownerID, planID string, req dto.UpdatePlanRequest) (dto.PlanItem, error) {
	plan, err := s.loadOwned(ctx, ownerID, planID)
	if err != nil {
		return dto.PlanItem{}, err
	}

	wasPublic := plan.Visibility == model.VisibilityPublic
	previous := make(map[string]struct{}, len(plan.InvitedEmails))
	for _, e := range plan.InvitedEmails {
		previous[e] = struct{}{}
	}

	draft := wizard.FromPlan(plan)
	wizard.Merge(&draft, req)
	if err := wizard.Apply(&draft, plan); err != nil {
		return dto.PlanItem{}, err
	}
	if plan.IsSavedCopy() {
		plan.IsEdited = true
	}

	if err := s.plans.Update(ctx, plan); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PlanItem{}, errors.PlanNotFound
		}
		return dto.PlanItem{}, errors.Backend(fmt.Errorf("failed to update plan: %w", err))
	}

	logger.Logger.Info("Plan updated",
		zap.String("plan_id", plan.ID),
		zap.String("owner_id", ownerID),
	)

	if wasPublic || plan.Visibility == model.VisibilityPublic {
		invalidateFeed(ctx, s.feed, plan.ID)
	}

	added := make([]string, 0, len(plan.InvitedEmails))
	for _, e := range plan.InvitedEmails {
		if _, ok := previous[e]; !ok {
			added = append(added, e)
		}
	}
	s.publishInvited(ctx, plan, added)

	return dto.NewPlanItem(plan), nil
}

// Delete 删除自己的行程，不存在时返回 PlanNotFound
func (s *PlanService) Delete(ctx context.Context, ownerID, planID string) error {
	plan, err := s.loadOwned(ctx, ownerID, planID)
	if err != nil {
		return err
	}

	if err := s.plans.Delete(ctx, ownerID, planID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.PlanNotFound
		}
		return errors.Backend(fmt.Errorf("failed to delete plan: %w", err))
	}

	logger.Logger.Info("Plan deleted",
		zap.String("plan_id", planID),
		zap.String("owner_id", ownerID),
	)
	metrics.GetMetrics().RecordPlanDeleted(ctx)

	if plan.Visibility == model.VisibilityPublic {
		invalidateFeed(ctx, s.feed, planID)
	}
	return nil
}

// Aggregate 统计数量、总预算与已完成数量，已完成以调用时刻判断
func (s *PlanService) Aggregate(ctx context.Context, ownerID string) (model.PlanAggregate, error) {
	plans, err := s.plans.ListByOwner(ctx, ownerID, 0)
	if err != nil {
		return model.PlanAggregate{}, errors.Backend(fmt.Errorf("failed to aggregate plans: %w", err))
	}
	return model.Aggregate(plans, s.now()), nil
}

// ListInvited 邀请了该邮箱的行程
func (s *PlanService) ListInvited(ctx context.Context, email string) ([]dto.PlanItem, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return []dto.PlanItem{}, nil
	}

	plans, err := s.plans.ListInvited(ctx, email)
	if err != nil {
		return nil, errors.Backend(fmt.Errorf("failed to list invited plans: %w", err))
	}
	return dto.NewPlanItems(plans), nil
}

// ValidateStep 校验向导的单个步骤；字段错误放在响应里，未知步骤返回错误
func (s *PlanService) ValidateStep(step string, draft dto.PlanDraft) (dto.WizardValidateResponse, error) {
	st, ok := wizard.Lookup(step)
	if !ok {
		def := errors.WizardStepInvalid
		def.Field = "step"
		return dto.WizardValidateResponse{}, def
	}

	resp := dto.WizardValidateResponse{Step: string(st.Name), Valid: true}
	if err := st.Validate(&draft); err != nil {
		var def errors.Definition
		if !stderrors.As(err, &def) {
			return dto.WizardValidateResponse{}, err
		}
		resp.Valid = false
		resp.Field = def.Field
		resp.Message = def.Message
		return resp, nil
	}

	if next, ok := wizard.Next(st.Name); ok {
		resp.NextStep = string(next)
	}
	return resp, nil
}

func (s *PlanService) load(ctx context.Context, planID string) (*model.TravelPlan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.PlanNotFound
		}
		return nil, errors.Backend(fmt.Errorf("failed to get plan: %w", err))
	}
	return plan, nil
}

func (s *PlanService) loadOwned(ctx context.Context, ownerID, planID string) (*model.TravelPlan, error) {
	plan, err := s.load(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.OwnerID != ownerID {
		return nil, errors.PlanNotFound
	}
	return plan, nil
}

func (s *PlanService) publishInvited(ctx context.Context, plan *model.TravelPlan, emails []string) {
	if plan.Visibility != model.VisibilityInvited || len(emails) == 0 {
		return
	}

	err := s.events.PublishInvited(ctx, model.PlanInvitedMessage{
		PlanID:      plan.ID,
		OwnerID:     plan.OwnerID,
		Destination: plan.Destination,
		Emails:      append([]string(nil), emails...),
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		logPublishFailure(ctx, mq.RoutingKeyInvited, plan.ID, err)
	}
}
