package model

import "time"

// PlanCopySavedMessage 公开行程被保存为副本后发布，worker 据此累加 save_count。
type PlanCopySavedMessage struct {
	MessageID    string    `json:"message_id"` // 消息唯一ID，用于幂等性检查
	SourcePlanID string    `json:"source_plan_id"`
	CopyPlanID   string    `json:"copy_plan_id"`
	ViewerID     string    `json:"viewer_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// PlanInvitedMessage 行程邀请了新的邮箱后发布。
type PlanInvitedMessage struct {
	MessageID   string    `json:"message_id"`
	PlanID      string    `json:"plan_id"`
	OwnerID     string    `json:"owner_id"`
	Destination string    `json:"destination"`
	Emails      []string  `json:"emails"`
	OccurredAt  time.Time `json:"occurred_at"`
}
