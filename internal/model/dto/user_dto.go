package dto

import (
	"time"

	"TripPlanner/internal/model"
)

// ========== User 相关 DTO ==========

// UserProfile 用户资料
type UserProfile struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	ContactInfo string    `json:"contact_info"`
}

// ProfileResponse 个人主页：资料 + 行程统计
type ProfileResponse struct {
	User  UserProfile         `json:"user"`
	Stats model.PlanAggregate `json:"stats"`
}

func NewUserProfile(u *model.User) UserProfile {
	return UserProfile{
		CreatedAt:   u.CreatedAt,
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		ContactInfo: u.ContactInfo,
	}
}
