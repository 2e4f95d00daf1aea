package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"TripPlanner/internal/model"
	"TripPlanner/internal/model/dto"
)

// ========== 我的行程 ==========

// CreatePlan 提交向导草稿，返回新行程 ID
func (c *Client) CreatePlan(ctx context.Context, draft dto.PlanDraft) (string, error) {
	var resp dto.CreatePlanResponse
	if err := c.authed(ctx, consts.MethodPost, "/v1/plans", draft, &resp, nil); err != nil {
		return "", err
	}
	return resp.PlanID, nil
}

// ListPlans 当前用户的全部行程，按创建时间倒序
func (c *Client) ListPlans(ctx context.Context) ([]dto.PlanItem, error) {
	items := []dto.PlanItem{}
	if err := c.authed(ctx, consts.MethodGet, "/v1/plans", nil, &items, nil); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) RecentPlans(ctx context.Context, limit int) ([]dto.PlanItem, error) {
	items := []dto.PlanItem{}
	path := "/v1/plans/recent?limit=" + strconv.Itoa(limit)
	if err := c.authed(ctx, consts.MethodGet, path, nil, &items, nil); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) PlanStats(ctx context.Context) (model.PlanAggregate, error) {
	var agg model.PlanAggregate
	err := c.authed(ctx, consts.MethodGet, "/v1/plans/stats", nil, &agg, nil)
	return agg, err
}

// SharedPlans 邀请了当前用户邮箱的行程
func (c *Client) SharedPlans(ctx context.Context) ([]dto.PlanItem, error) {
	items := []dto.PlanItem{}
	if err := c.authed(ctx, consts.MethodGet, "/v1/plans/shared", nil, &items, nil); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetPlan(ctx context.Context, planID string) (*dto.PlanDetail, error) {
	var detail dto.PlanDetail
	if err := c.authed(ctx, consts.MethodGet, planPath(planID), nil, &detail, nil); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) UpdatePlan(ctx context.Context, planID string, req dto.UpdatePlanRequest) (*dto.PlanItem, error) {
	var item dto.PlanItem
	if err := c.authed(ctx, consts.MethodPatch, planPath(planID), req, &item, nil); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeletePlan(ctx context.Context, planID string) error {
	return c.authed(ctx, consts.MethodDelete, planPath(planID), nil, nil, nil)
}

// ValidateWizardStep 服务端校验向导单步。草稿不满足该步时仍返回结果，
// Valid 为 false 并带出失败字段；只有未知步骤等请求错误才返回 error。
func (c *Client) ValidateWizardStep(ctx context.Context, step string, draft dto.PlanDraft) (*dto.WizardValidateResponse, error) {
	var resp dto.WizardValidateResponse
	req := dto.WizardValidateRequest{Step: step, Draft: draft}
	if err := c.authed(ctx, consts.MethodPost, "/v1/plans/wizard/validate", req, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

func planPath(planID string) string {
	return "/v1/plans/" + url.PathEscape(planID)
}
