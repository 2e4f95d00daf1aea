package utils

import (
	"time"
)

const DateLayout = "2006-01-02"

// ParseISODate 解析 ISO-8601 日期（YYYY-MM-DD 或 RFC3339），返回 UTC 零点。
// RFC3339 取其自身时区下的日历日期，不先换算到 UTC。
func ParseISODate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		full, ferr := time.Parse(time.RFC3339, s)
		if ferr != nil {
			return time.Time{}, err
		}
		t = full
	}

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// FormatISODate 输出 YYYY-MM-DD。
func FormatISODate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
