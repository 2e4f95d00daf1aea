package dto

// ========== Feed 相关 DTO ==========

// FeedQuery 公开广场分页参数
type FeedQuery struct {
	Cursor string `query:"cursor"`
	Limit  int    `query:"limit"`
}

// FeedPage 一页公开行程，NextCursor 为空表示没有更多
type FeedPage struct {
	Items      []PlanItem `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// SaveCopyResponse 保存副本结果
type SaveCopyResponse struct {
	PlanID       string `json:"plan_id"`
	AlreadySaved bool   `json:"already_saved,omitempty"`
}
