package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"TripPlanner/pkg/response"
)

type UserHandler struct {
	accounts AccountService
}

func NewUserHandler(accounts AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// GetProfile 个人资料与行程统计
// GET /v1/users/me
func (h *UserHandler) GetProfile(ctx context.Context, c *app.RequestContext) {
	userID, err := requireUser(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	profile, err := h.accounts.Profile(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, profile)
}
