package model

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var errMalformedCursor = errors.New("malformed feed cursor")

// FeedCursor 公开广场的翻页位置：最后一条记录的 (created_at, id)。
type FeedCursor struct {
	CreatedAt time.Time
	ID        string
}

type cursorWire struct {
	T  int64  `json:"t"`
	ID string `json:"id"`
}

// CursorOf 返回指向 plan 之后位置的游标。
func CursorOf(p *TravelPlan) *FeedCursor {
	return &FeedCursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

// Encode 生成不透明的 base64url 文本。
func (c FeedCursor) Encode() string {
	raw, _ := json.Marshal(cursorWire{T: c.CreatedAt.UnixMicro(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeFeedCursor 解析 Encode 的结果；空串返回 nil。
func DecodeFeedCursor(s string) (*FeedCursor, error) {
	if s == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errMalformedCursor
	}

	var w cursorWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errMalformedCursor
	}
	if w.ID == "" || w.T <= 0 {
		return nil, errMalformedCursor
	}

	return &FeedCursor{CreatedAt: time.UnixMicro(w.T).UTC(), ID: w.ID}, nil
}

// After 判断 p 在 (created_at desc, id asc) 顺序下是否位于游标之后。
func (c FeedCursor) After(p *TravelPlan) bool {
	if p.CreatedAt.Before(c.CreatedAt) {
		return true
	}
	return p.CreatedAt.Equal(c.CreatedAt) && p.ID > c.ID
}
