package dto

import (
	"encoding/json"
	"strings"
	"time"

	"TripPlanner/internal/model"
)

// ========== Plan 相关 DTO ==========

// Amount 金额，接受 JSON 数字或数字字符串，原文保留给向导校验。
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(str))
		return nil
	}
	*a = Amount(s)
	return nil
}

// PlaceInput 地点输入
type PlaceInput struct {
	Name     string `json:"name"`
	Duration string `json:"duration"`
	Notes    string `json:"notes,omitempty"`
	Expense  Amount `json:"expenses_places,omitempty"`
}

// PlanDraft 创建行程请求，也是向导逐步累积的草稿
type PlanDraft struct {
	Destination         string       `json:"destination"`
	StartDate           string       `json:"start_date"`
	EndDate             string       `json:"end_date"`
	Vehicle             string       `json:"vehicle"`
	ExpectedExpenditure Amount       `json:"expected_expenditure"`
	Accommodation       string       `json:"accommodation,omitempty"`
	AdditionalNotes     string       `json:"additional_notes,omitempty"`
	Places              []PlaceInput `json:"places"`
	Visibility          string       `json:"visibility,omitempty"`
	InvitedEmails       []string     `json:"invited_emails,omitempty"`
}

// UpdatePlanRequest 更新行程请求，nil 字段保持不变，places 整体替换
type UpdatePlanRequest struct {
	Destination         *string       `json:"destination"`
	StartDate           *string       `json:"start_date"`
	EndDate             *string       `json:"end_date"`
	Vehicle             *string       `json:"vehicle"`
	ExpectedExpenditure *Amount       `json:"expected_expenditure"`
	Accommodation       *string       `json:"accommodation"`
	AdditionalNotes     *string       `json:"additional_notes"`
	Places              *[]PlaceInput `json:"places"`
	Visibility          *string       `json:"visibility"`
	InvitedEmails       *[]string     `json:"invited_emails"`
}

// PlaceItem 地点
type PlaceItem struct {
	Name     string  `json:"name"`
	Duration string  `json:"duration"`
	Notes    string  `json:"notes,omitempty"`
	Expense  float64 `json:"expenses_places"`
}

// PlanItem 行程项
type PlanItem struct {
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
	SavedAt             *time.Time  `json:"saved_at,omitempty"`
	ID                  string      `json:"id"`
	OwnerID             string      `json:"owner_id"`
	Destination         string      `json:"destination"`
	StartDate           string      `json:"start_date"`
	EndDate             string      `json:"end_date"`
	Vehicle             string      `json:"vehicle"`
	Accommodation       string      `json:"accommodation"`
	AdditionalNotes     string      `json:"additional_notes"`
	Visibility          string      `json:"visibility"`
	OriginalPlanID      string      `json:"original_plan_id,omitempty"`
	Places              []PlaceItem `json:"places"`
	InvitedEmails       []string    `json:"invited_emails,omitempty"`
	ExpectedExpenditure float64     `json:"expected_expenditure"`
	SaveCount           int64       `json:"save_count"`
	IsEdited            bool        `json:"is_edited"`
}

// PlanDetail 行程详情
type PlanDetail struct {
	PlanItem
	Countdown model.Countdown `json:"countdown"`
	IsOwner   bool            `json:"is_owner"`
}

// CreatePlanResponse 创建行程响应
type CreatePlanResponse struct {
	PlanID string `json:"plan_id"`
}

// PlanListQuery 列表查询参数
type PlanListQuery struct {
	Limit int `query:"limit"`
}

// WizardValidateRequest 校验向导单步
type WizardValidateRequest struct {
	Step  string    `json:"step"`
	Draft PlanDraft `json:"draft"`
}

// WizardValidateResponse 单步校验结果
type WizardValidateResponse struct {
	Step     string `json:"step"`
	Valid    bool   `json:"valid"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message,omitempty"`
	NextStep string `json:"next_step,omitempty"`
}

const dateLayout = "2006-01-02"

// NewPlanItem 由模型构造响应，切片字段始终非 nil
func NewPlanItem(p *model.TravelPlan) PlanItem {
	places := make([]PlaceItem, 0, len(p.Places))
	for _, pl := range p.Places {
		places = append(places, PlaceItem(pl))
	}

	item := PlanItem{
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
		SavedAt:             p.SavedAt,
		ID:                  p.ID,
		OwnerID:             p.OwnerID,
		Destination:         p.Destination,
		StartDate:           p.Start().UTC().Format(dateLayout),
		EndDate:             p.End().UTC().Format(dateLayout),
		Vehicle:             p.Vehicle,
		Accommodation:       p.Accommodation,
		AdditionalNotes:     p.AdditionalNotes,
		Visibility:          string(p.Visibility),
		Places:              places,
		InvitedEmails:       append([]string(nil), p.InvitedEmails...),
		ExpectedExpenditure: p.ExpectedExpenditure,
		SaveCount:           p.SaveCount,
		IsEdited:            p.IsEdited,
	}
	if p.OriginalPlanID != nil {
		item.OriginalPlanID = *p.OriginalPlanID
	}
	return item
}

// NewPlanItems 批量转换
func NewPlanItems(plans []*model.TravelPlan) []PlanItem {
	items := make([]PlanItem, 0, len(plans))
	for _, p := range plans {
		items = append(items, NewPlanItem(p))
	}
	return items
}
