package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"TripPlanner/internal/model"
	"TripPlanner/pkg/logger"
)

// planIndexes 广场分页、我的行程与副本去重依赖的索引，迁移后必须存在
var planIndexes = []string{
	"idx_plans_feed",
	"idx_plans_owner_created",
	"idx_plans_owner_original",
}

func models() []interface{} {
	return []interface{}{&model.User{}, &model.TravelPlan{}}
}

// Migrate 建表并确认行程表索引已建立
func Migrate(db *gorm.DB) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}

	if err := db.AutoMigrate(models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	m := db.Migrator()
	for _, name := range planIndexes {
		if !m.HasIndex(&model.TravelPlan{}, name) {
			return fmt.Errorf("index %s missing after migration", name)
		}
	}

	logger.Logger.Info("Database schema ready", zap.Strings("plan_indexes", planIndexes))
	return nil
}
