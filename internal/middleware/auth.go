package middleware

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/jwt"

	"TripPlanner/internal/session"
	"TripPlanner/pkg/errors"
	"TripPlanner/pkg/response"
	"TripPlanner/pkg/token"
)

const (
	IdentityKey = token.IdentityKey
)

var (
	authMiddleware *jwt.HertzJWTMiddleware
)

func initAuthMiddleware() error {
	// 使用 token 包中共享的生成器
	sharedGenerator := token.GetGenerator()
	if sharedGenerator == nil {
		return fmt.Errorf("token generator not initialized, call token.Init() first")
	}

	mw, err := jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       "TripPlanner API",
		Key:         sharedGenerator.Key,
		Timeout:     sharedGenerator.Timeout,
		MaxRefresh:  sharedGenerator.MaxRefresh,
		IdentityKey: sharedGenerator.IdentityKey,
		TimeFunc:    sharedGenerator.TimeFunc,

		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			uid, ok := claims[IdentityKey].(string)
			if !ok || uid == "" {
				return nil
			}
			email, _ := claims[token.EmailKey].(string)
			return session.Identity{UserID: uid, Email: email}
		},

		// refresh token 只能用于换取新令牌
		Authorizator: func(data interface{}, ctx context.Context, c *app.RequestContext) bool {
			if token.IsRefreshClaims(jwt.ExtractClaims(ctx, c)) {
				return false
			}
			_, ok := data.(session.Identity)
			return ok
		},

		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			response.Error(ctx, c, errors.Unauthenticated)
		},

		TokenLookup:   "header: Authorization",
		TokenHeadName: "Bearer",
	})
	if err != nil {
		return fmt.Errorf("failed to create auth middleware: %w", err)
	}

	authMiddleware = mw
	return nil
}

func AuthMiddleware() app.HandlerFunc {
	if authMiddleware == nil {
		panic("AuthMiddleware not initialized, call Init() first")
	}
	return authMiddleware.MiddlewareFunc()
}

// SessionMiddleware 为每个请求创建独立的 Gate 并签入 JWT 中的身份，必须挂在 AuthMiddleware 之后
func SessionMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		gate := session.NewGate()
		if id, ok := GetIdentity(ctx, c); ok {
			gate.SignIn(id)
		}
		c.Next(session.WithGate(ctx, gate))
	}
}

// GetIdentity 从请求上下文中获取当前用户
func GetIdentity(ctx context.Context, c *app.RequestContext) (session.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return session.Identity{}, false
	}

	id, ok := v.(session.Identity)
	if !ok || id.UserID == "" {
		return session.Identity{}, false
	}

	return id, true
}

// GetUserID 从请求上下文中获取用户ID
func GetUserID(ctx context.Context, c *app.RequestContext) (string, bool) {
	id, ok := GetIdentity(ctx, c)
	return id.UserID, ok
}
