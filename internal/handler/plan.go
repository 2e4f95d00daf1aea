package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"TripPlanner/internal/model"
	"TripPlanner/internal/model/dto"
	"TripPlanner/internal/session"
	"TripPlanner/pkg/response"
)

// PlanService 当前用户自己的行程
type PlanService interface {
	Create(ctx context.Context, ownerID string, draft dto.PlanDraft) (string, error)
	List(ctx context.Context, ownerID string) ([]dto.PlanItem, error)
	Recent(ctx context.Context, ownerID string, n int) ([]dto.PlanItem, error)
	Get(ctx context.Context, viewer session.Identity, planID string) (dto.PlanDetail, error)
	Update(ctx context.Context, ownerID, planID string, req dto.UpdatePlanRequest) (dto.PlanItem, error)
	Delete(ctx context.Context, ownerID, planID string) error
	Aggregate(ctx context.Context, ownerID string) (model.PlanAggregate, error)
	ListInvited(ctx context.Context, email string) ([]dto.PlanItem, error)
	ValidateStep(step string, draft dto.PlanDraft) (dto.WizardValidateResponse, error)
}

type PlanHandler struct {
	plans PlanService
}

func NewPlanHandler(plans PlanService) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// ListPlans 我的行程，按创建时间倒序
// GET /v1/plans
func (h *PlanHandler) ListPlans(ctx context.Context, c *app.RequestContext) {
	userID, err := requireUser(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	items, err := h.plans.List(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.SuccessWithMeta(ctx, c, items, map[string]interface{}{"count": len(items)})
}

// CreatePlan 创建行程
// POST /v1/plans
func (h *PlanHandler) CreatePlan(ctx context.Context, c *app.RequestContext) {
	userID, err := requireUser(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	var draft dto.PlanDraft
	if err := c.BindJSON(&draft); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	id, err := h.plans.Create(ctx, userID, draft)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Created(ctx, c, dto.CreatePlanResponse{PlanID: id})
}

// RecentPlans 首页最近行程
// GET /v1/plans/recent?limit=
func (h *PlanHandler) RecentPlans(ctx context.Context, c *app.RequestContext) {
	userID, err := requireUser(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	items, err := h.plans.Recent(ctx, userID, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, items)
}

// PlanStats 行程数量、总预算与已完成数量
// GET /v1/plans/stats
func (h *PlanHandler) PlanStats(ctx context.Context, c *app.RequestContext) {
	userID, err := requireUser(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	agg, err := h.plans.Aggregate(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, agg)
}

// SharedPlans 邀请了我的行程
// GET /v1/plans/shared
func (h *PlanHandler) SharedPlans(ctx context.Context, c *app.RequestContext) {
	viewer, err := session.Require(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	items, err := h.plans.ListInvited(ctx, viewer.Email)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, items)
}

// GetPlan 行程详情
// GET /v1/plans/:plan_id
func (h *PlanHandler) GetPlan(ctx context.Context, c *app.RequestContext) {
	viewer, err := session.Require(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	detail, err := h.plans.Get(ctx, viewer, c.Param("plan_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, detail)
}

// UpdatePlan 局部更新，places 整体替换
// PATCH /v1/plans/:plan_id
func (h *PlanHandler) UpdatePlan(ctx context.Context, c *app.RequestContext) {
	userID, err := requireUser(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	var req dto.UpdatePlanRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	item, err := h.plans.Update(ctx, userID, c.Param("plan_id"), req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, item)
}

// DeletePlan 删除行程
// DELETE /v1/plans/:plan_id
func (h *PlanHandler) DeletePlan(ctx context.Context, c *app.RequestContext) {
	userID, err := requireUser(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if err := h.plans.Delete(ctx, userID, c.Param("plan_id")); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}

// ValidateWizardStep 校验向导单步
// POST /v1/plans/wizard/validate
func (h *PlanHandler) ValidateWizardStep(ctx context.Context, c *app.RequestContext) {
	if _, err := requireUser(ctx); err != nil {
		response.Error(ctx, c, err)
		return
	}

	var req dto.WizardValidateRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	resp, err := h.plans.ValidateStep(req.Step, req.Draft)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, resp)
}
