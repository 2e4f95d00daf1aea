package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"TripPlanner/internal/session"
	"TripPlanner/pkg/errors"
)

// requireUser 所有按用户划分的操作都先经过会话 gate
func requireUser(ctx context.Context) (string, error) {
	id, err := session.Require(ctx)
	if err != nil {
		return "", err
	}
	return id.UserID, nil
}

// queryInt 读取可选的整数查询参数，缺省返回 0
func queryInt(c *app.RequestContext, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Invalid(name, "must be an integer")
	}
	return v, nil
}
