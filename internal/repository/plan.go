package repository

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"TripPlanner/internal/model"
)

// PlanRepository 行程持久化接口，未找到时返回 gorm.ErrRecordNotFound。
type PlanRepository interface {
	Create(ctx context.Context, plan *model.TravelPlan) error
	// CreateCopy 依赖 (owner_id, original_plan_id) 唯一索引，冲突时 inserted 为 false。
	CreateCopy(ctx context.Context, plan *model.TravelPlan) (inserted bool, err error)
	GetByID(ctx context.Context, planID string) (*model.TravelPlan, error)
	FindCopy(ctx context.Context, ownerID, originalPlanID string) (*model.TravelPlan, error)
	// ListByOwner 按 created_at 倒序，limit <= 0 表示不限制。
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*model.TravelPlan, error)
	ListInvited(ctx context.Context, email string) ([]*model.TravelPlan, error)
	// ListPublic 返回游标之后最多 limit 条公开行程。
	ListPublic(ctx context.Context, cursor *model.FeedCursor, limit int) ([]*model.TravelPlan, error)
	Update(ctx context.Context, plan *model.TravelPlan) error
	Delete(ctx context.Context, ownerID, planID string) error
	IncrementSaveCount(ctx context.Context, planID string) error
}

type planRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(ctx context.Context, plan *model.TravelPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *planRepository) CreateCopy(ctx context.Context, plan *model.TravelPlan) (bool, error) {
	result := insertCopy(r.db.WithContext(ctx), plan)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// insertCopy 冲突（已存在同源副本）时不插入，RowsAffected 为 0
func insertCopy(tx *gorm.DB, plan *model.TravelPlan) *gorm.DB {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(plan)
}

func (r *planRepository) GetByID(ctx context.Context, planID string) (*model.TravelPlan, error) {
	var plan model.TravelPlan
	if err := r.db.WithContext(ctx).Where("id = ?", planID).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) FindCopy(ctx context.Context, ownerID, originalPlanID string) (*model.TravelPlan, error) {
	var plan model.TravelPlan
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND original_plan_id = ?", ownerID, originalPlanID).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*model.TravelPlan, error) {
	q := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	plans := make([]*model.TravelPlan, 0)
	if err := q.Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *planRepository) ListInvited(ctx context.Context, email string) ([]*model.TravelPlan, error) {
	needle, err := json.Marshal([]string{email})
	if err != nil {
		return nil, err
	}

	plans := make([]*model.TravelPlan, 0)
	err = r.db.WithContext(ctx).
		Where("visibility = ?", model.VisibilityInvited).
		Where("invited_emails @> ?::jsonb", string(needle)).
		Order("created_at DESC").
		Order("id ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *planRepository) ListPublic(ctx context.Context, cursor *model.FeedCursor, limit int) ([]*model.TravelPlan, error) {
	plans := make([]*model.TravelPlan, 0, limit)
	if err := r.db.WithContext(ctx).Scopes(publicFeed(cursor, limit)).Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// publicFeed 公开广场的 keyset 分页条件，命中 idx_plans_feed。
func publicFeed(cursor *model.FeedCursor, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("visibility = ?", model.VisibilityPublic)
		if cursor != nil {
			db = db.Where("(created_at < ? OR (created_at = ? AND id > ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return db.Order("created_at DESC").Order("id ASC").Limit(limit)
	}
}

// Update 覆盖可编辑字段，id、owner、来源信息与计数不变。
func (r *planRepository) Update(ctx context.Context, plan *model.TravelPlan) error {
	result := r.db.WithContext(ctx).
		Model(&model.TravelPlan{}).
		Where("id = ? AND owner_id = ?", plan.ID, plan.OwnerID).
		Select("*").
		Omit("id", "owner_id", "original_plan_id", "saved_at", "save_count", "created_at").
		Updates(plan)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *planRepository) Delete(ctx context.Context, ownerID, planID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", planID, ownerID).
		Delete(&model.TravelPlan{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *planRepository) IncrementSaveCount(ctx context.Context, planID string) error {
	return r.db.WithContext(ctx).
		Model(&model.TravelPlan{}).
		Where("id = ?", planID).
		UpdateColumn("save_count", gorm.Expr("save_count + ?", 1)).Error
}
