package database

import (
	"sync"
	"testing"

	"gorm.io/gorm/schema"

	"TripPlanner/internal/model"
)

func TestPlanIndexesDeclaredOnModel(t *testing.T) {
	s, err := schema.Parse(&model.TravelPlan{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}

	for _, name := range planIndexes {
		if s.LookIndex(name) == nil {
			t.Errorf("index %s not declared on TravelPlan", name)
		}
	}

	// 只有保存副本时才有 original_plan_id，唯一约束限定在非空行上
	idx := s.LookIndex("idx_plans_owner_original")
	if idx == nil {
		t.Fatal("idx_plans_owner_original missing")
	}
	if idx.Class != "UNIQUE" || idx.Where != "original_plan_id IS NOT NULL" {
		t.Fatalf("idx_plans_owner_original = class %q where %q", idx.Class, idx.Where)
	}
}

func TestMigrateRejectsNilDB(t *testing.T) {
	if err := Migrate(nil); err == nil {
		t.Fatal("Migrate(nil) should fail")
	}
}

func TestModelsIncludePlansAndUsers(t *testing.T) {
	var plan, user bool
	for _, m := range models() {
		switch m.(type) {
		case *model.TravelPlan:
			plan = true
		case *model.User:
			user = true
		}
	}
	if !plan || !user {
		t.Fatalf("models() = %v", models())
	}
}
