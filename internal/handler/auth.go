package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"TripPlanner/internal/model/dto"
	"TripPlanner/internal/session"
	"TripPlanner/pkg/response"
)

// AccountService 账号相关用例
type AccountService interface {
	Signup(ctx context.Context, req dto.SignupRequest) (dto.TokenResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (dto.TokenResponse, error)
	Logout(ctx context.Context, userID string) error
	Profile(ctx context.Context, userID string) (dto.ProfileResponse, error)
}

type AuthHandler struct {
	accounts AccountService
}

func NewAuthHandler(accounts AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Signup 注册
// POST /v1/auth/signup
func (h *AuthHandler) Signup(ctx context.Context, c *app.RequestContext) {
	var req dto.SignupRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	resp, err := h.accounts.Signup(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Created(ctx, c, resp)
}

// Login 邮箱密码登录
// POST /v1/auth/login
func (h *AuthHandler) Login(ctx context.Context, c *app.RequestContext) {
	var req dto.LoginRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	resp, err := h.accounts.Login(ctx, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, resp)
}

// RefreshToken 刷新访问令牌
// POST /v1/auth/token/refresh
func (h *AuthHandler) RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	resp, err := h.accounts.Refresh(ctx, req.RefreshToken)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, resp)
}

// Logout 注销当前会话的 refresh token
// POST /v1/auth/logout
func (h *AuthHandler) Logout(ctx context.Context, c *app.RequestContext) {
	userID, err := requireUser(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if err := h.accounts.Logout(ctx, userID); err != nil {
		response.Error(ctx, c, err)
		return
	}
	if gate := session.FromContext(ctx); gate != nil {
		gate.SignOut()
	}
	response.NoContent(ctx, c)
}
