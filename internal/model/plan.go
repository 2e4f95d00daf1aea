package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Visibility 行程可见性
type Visibility string

const (
	VisibilityPrivate Visibility = "private" // 仅自己可见
	VisibilityInvited Visibility = "invited" // 受邀邮箱可见
	VisibilityPublic  Visibility = "public"  // 出现在公开广场
)

// Valid 判断是否为合法取值。
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityInvited, VisibilityPublic:
		return true
	default:
		return false
	}
}

// Place 行程中的一个地点，随行程一起以 jsonb 存储。
type Place struct {
	Name     string  `json:"name"`
	Duration string  `json:"duration"`
	Notes    string  `json:"notes,omitempty"`
	Expense  float64 `json:"expenses_places"`
}

// TravelPlan 行程
type TravelPlan struct {
	ID                  string                      `gorm:"primaryKey;type:varchar(20);index:idx_plans_feed,priority:3" json:"id"`
	OwnerID             string                      `gorm:"type:varchar(20);not null;index:idx_plans_owner_created,priority:1;uniqueIndex:idx_plans_owner_original,priority:1,where:original_plan_id IS NOT NULL" json:"owner_id"`
	Destination         string                      `gorm:"type:varchar(255);not null" json:"destination"`
	StartDate           datatypes.Date              `gorm:"not null" json:"start_date"`
	EndDate             datatypes.Date              `gorm:"not null" json:"end_date"`
	Vehicle             string                      `gorm:"type:varchar(32);not null" json:"vehicle"`
	ExpectedExpenditure float64                     `gorm:"not null;default:0" json:"expected_expenditure"`
	Accommodation       string                      `gorm:"type:text;not null;default:''" json:"accommodation"`
	AdditionalNotes     string                      `gorm:"type:text;not null;default:''" json:"additional_notes"`
	Places              datatypes.JSONSlice[Place]  `gorm:"type:jsonb;not null;default:'[]'" json:"places"`
	Visibility          Visibility                  `gorm:"type:varchar(16);not null;default:'private';index:idx_plans_feed,priority:1" json:"visibility"`
	InvitedEmails       datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'" json:"invited_emails"`
	OriginalPlanID      *string                     `gorm:"type:varchar(20);uniqueIndex:idx_plans_owner_original,priority:2" json:"original_plan_id,omitempty"`
	IsEdited            bool                        `gorm:"not null;default:false" json:"is_edited"`
	SavedAt             *time.Time                  `json:"saved_at,omitempty"`
	SaveCount           int64                       `gorm:"not null;default:0" json:"save_count"`
	CreatedAt           time.Time                   `gorm:"not null;index:idx_plans_feed,priority:2,sort:desc;index:idx_plans_owner_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt           time.Time                   `gorm:"not null" json:"updated_at"`
}

// TableName 指定表名
func (TravelPlan) TableName() string {
	return "travel_plans"
}

func (p *TravelPlan) Start() time.Time {
	return time.Time(p.StartDate)
}

func (p *TravelPlan) End() time.Time {
	return time.Time(p.EndDate)
}

// IsCompleted 结束日期严格早于 now 即视为已完成。
func (p *TravelPlan) IsCompleted(now time.Time) bool {
	return p.End().Before(now)
}

// IsSavedCopy 是否为从公开广场保存的副本。
func (p *TravelPlan) IsSavedCopy() bool {
	return p.OriginalPlanID != nil
}

// VisibleTo 判断 viewer 能否查看该行程。
func (p *TravelPlan) VisibleTo(viewerID, viewerEmail string) bool {
	if p.OwnerID == viewerID {
		return true
	}

	switch p.Visibility {
	case VisibilityPublic:
		return true
	case VisibilityInvited:
		email := strings.ToLower(strings.TrimSpace(viewerEmail))
		if email == "" {
			return false
		}
		for _, invited := range p.InvitedEmails {
			if invited == email {
				return true
			}
		}
	}

	return false
}

// Countdown 距出发的剩余时间。
type Countdown struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Started bool `json:"started"`
}

// CountdownAt 以开始日期零点（UTC）为出发时刻计算倒计时。
func (p *TravelPlan) CountdownAt(now time.Time) Countdown {
	remaining := p.Start().Sub(now)
	if remaining <= 0 {
		return Countdown{Started: true}
	}

	total := int(remaining / time.Minute)
	return Countdown{
		Days:    total / (24 * 60),
		Hours:   (total / 60) % 24,
		Minutes: total % 60,
	}
}

// PlanAggregate 个人行程统计
type PlanAggregate struct {
	Count            int     `json:"count"`
	TotalExpenditure float64 `json:"total_expenditure"`
	CompletedCount   int     `json:"completed_count"`
}

// Aggregate 汇总 plans，completed 以 now 判断。
func Aggregate(plans []*TravelPlan, now time.Time) PlanAggregate {
	agg := PlanAggregate{Count: len(plans)}
	for _, p := range plans {
		agg.TotalExpenditure += p.ExpectedExpenditure
		if p.IsCompleted(now) {
			agg.CompletedCount++
		}
	}
	return agg
}
