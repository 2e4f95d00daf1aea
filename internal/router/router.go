package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"TripPlanner/internal/handler"
	"TripPlanner/internal/middleware"
	"TripPlanner/internal/service"
)

func Register(h *server.Hertz) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.RequestIDMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	authHandler := handler.NewAuthHandler(service.Account())
	userHandler := handler.NewUserHandler(service.Account())
	planHandler := handler.NewPlanHandler(service.Plan())
	feedHandler := handler.NewFeedHandler(service.Feed())

	v1 := h.Group("/v1")

	// 认证相关路由
	auth := v1.Group("/auth")
	{
		auth.POST("/signup", middleware.AuthRateLimitMiddleware(), authHandler.Signup)
		auth.POST("/login", middleware.AuthRateLimitMiddleware(), authHandler.Login)
		auth.POST("/token/refresh", middleware.AuthRateLimitMiddleware(), authHandler.RefreshToken)
		auth.POST("/logout", middleware.AuthMiddleware(), middleware.SessionMiddleware(), authHandler.Logout)
	}

	// 用户相关路由
	users := v1.Group("/users", middleware.AuthMiddleware(), middleware.SessionMiddleware())
	{
		users.GET("/me", userHandler.GetProfile)
	}

	// 行程路由，静态路径需在 /:plan_id 之前注册
	plans := v1.Group("/plans", middleware.AuthMiddleware(), middleware.SessionMiddleware())
	{
		plans.GET("", planHandler.ListPlans)
		plans.POST("", planHandler.CreatePlan)
		plans.GET("/recent", planHandler.RecentPlans)
		plans.GET("/stats", planHandler.PlanStats)
		plans.GET("/shared", planHandler.SharedPlans)
		plans.POST("/wizard/validate", planHandler.ValidateWizardStep)
		plans.GET("/:plan_id", planHandler.GetPlan)
		plans.PATCH("/:plan_id", planHandler.UpdatePlan)
		plans.DELETE("/:plan_id", planHandler.DeletePlan)
	}

	// 公开广场路由
	feed := v1.Group("/feed", middleware.AuthMiddleware(), middleware.SessionMiddleware())
	{
		feed.GET("", feedHandler.ListFeed)
		feed.POST("/:plan_id/save", middleware.SaveCopyRateLimitMiddleware(), feedHandler.SavePlanCopy)
	}
}
