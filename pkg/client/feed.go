package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"sync"

	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"TripPlanner/internal/model/dto"
)

// ========== 公开广场 ==========

// ListFeed 拉取一页公开行程，cursor 为空表示第一页
func (c *Client) ListFeed(ctx context.Context, limit int, cursor string) (*dto.FeedPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	path := "/v1/feed"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	items := []dto.PlanItem{}
	var meta map[string]json.RawMessage
	if err := c.authed(ctx, consts.MethodGet, path, nil, &items, &meta); err != nil {
		return nil, err
	}

	page := &dto.FeedPage{Items: items}
	if raw, ok := meta["next_cursor"]; ok {
		// null 解码后保持空字符串
		var next *string
		if err := json.Unmarshal(raw, &next); err == nil && next != nil {
			page.NextCursor = *next
		}
	}
	return page, nil
}

// SavePlanCopy 把公开或受邀的行程保存为自己的副本，重复保存返回已有副本
func (c *Client) SavePlanCopy(ctx context.Context, planID string) (*dto.SaveCopyResponse, error) {
	var resp dto.SaveCopyResponse
	path := "/v1/feed/" + url.PathEscape(planID) + "/save"
	if err := c.authed(ctx, consts.MethodPost, path, nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FeedPager 持有一个调用方自己的游标，不同 pager 之间互不影响
type FeedPager struct {
	client *Client
	limit  int

	mu     sync.Mutex
	cursor string
	done   bool
}

// NewFeedPager limit <= 0 时使用服务端默认页大小
func (c *Client) NewFeedPager(limit int) *FeedPager {
	return &FeedPager{client: c, limit: limit}
}

// Next 返回下一页；没有更多时返回空切片且 HasMore 为 false。
// 请求失败时游标不前进，可直接重试。
func (p *FeedPager) Next(ctx context.Context) ([]dto.PlanItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done {
		return []dto.PlanItem{}, nil
	}

	page, err := p.client.ListFeed(ctx, p.limit, p.cursor)
	if err != nil {
		return nil, err
	}

	p.cursor = page.NextCursor
	if page.NextCursor == "" {
		p.done = true
	}
	return page.Items, nil
}

// HasMore 首页未拉取前也返回 true
func (p *FeedPager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.done
}

// Reset 回到第一页
func (p *FeedPager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = ""
	p.done = false
}
