package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"TripPlanner/internal/model/dto"
	"TripPlanner/internal/session"
	"TripPlanner/pkg/response"
)

// FeedService 公开广场
type FeedService interface {
	ListPublic(ctx context.Context, limit int, cursor string) (dto.FeedPage, error)
	SavePlanCopy(ctx context.Context, viewer session.Identity, sourcePlanID string) (dto.SaveCopyResponse, error)
}

type FeedHandler struct {
	feed FeedService
}

func NewFeedHandler(feed FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// ListFeed 公开行程分页，meta.next_cursor 为 null 表示没有更多
// GET /v1/feed?limit=&cursor=
func (h *FeedHandler) ListFeed(ctx context.Context, c *app.RequestContext) {
	if _, err := requireUser(ctx); err != nil {
		response.Error(ctx, c, err)
		return
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	page, err := h.feed.ListPublic(ctx, limit, c.Query("cursor"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	var next interface{}
	if page.NextCursor != "" {
		next = page.NextCursor
	}
	response.SuccessWithMeta(ctx, c, page.Items, map[string]interface{}{"next_cursor": next})
}

// SavePlanCopy 保存为自己的副本；新建返回 201，已保存过返回 200
// POST /v1/feed/:plan_id/save
func (h *FeedHandler) SavePlanCopy(ctx context.Context, c *app.RequestContext) {
	viewer, err := session.Require(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	resp, err := h.feed.SavePlanCopy(ctx, viewer, c.Param("plan_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if resp.AlreadySaved {
		response.Success(ctx, c, resp)
		return
	}
	response.Created(ctx, c, resp)
}
