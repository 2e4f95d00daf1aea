package response

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"TripPlanner/pkg/errors"
	"TripPlanner/pkg/logger"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// StatusOf 将错误映射为 HTTP 状态码。
func StatusOf(err error) int {
	if stderrors.Is(err, errors.BackendUnavailable) {
		return http.StatusServiceUnavailable // 503
	}

	var def errors.Definition
	if !stderrors.As(err, &def) {
		return http.StatusInternalServerError
	}

	switch def.Code {
	case errors.ValidationFailed.Code, errors.InvalidRequest.Code, errors.WizardStepInvalid.Code:
		return http.StatusBadRequest // 400
	case errors.Unauthenticated.Code, errors.InvalidCredentials.Code, errors.InvalidRefreshToken.Code:
		return http.StatusUnauthorized // 401
	case errors.PlanNotFound.Code:
		return http.StatusNotFound // 404
	case errors.EmailAlreadyRegistered.Code:
		return http.StatusConflict // 409
	case errors.TooManyRequests.Code:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}

func describe(err error) ErrorDetail {
	if stderrors.Is(err, errors.BackendUnavailable) {
		return ErrorDetail{Code: errors.BackendUnavailable.Code, Message: errors.BackendUnavailable.Message}
	}

	var def errors.Definition
	if !stderrors.As(err, &def) {
		return ErrorDetail{Code: errors.Internal.Code, Message: errors.Internal.Message}
	}

	detail := ErrorDetail{Code: def.Code, Message: def.Message}
	if def.Field != "" {
		detail.Details = map[string]interface{}{"field": def.Field}
	}
	return detail
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Logger.Error("Request failed",
			zap.String("path", string(c.Path())),
			zap.Int("status", status),
			zap.Error(err),
		)
		_ = c.Error(err)
	}

	c.JSON(status, ErrorResponse{Error: describe(err)})
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	detail := describe(err)
	if detail.Details == nil {
		detail.Details = details
	} else {
		for k, v := range details {
			detail.Details[k] = v
		}
	}

	c.JSON(StatusOf(err), ErrorResponse{Error: detail})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// Created 返回 201（用于新建资源）
func Created(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Data: data,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}

// NoContent 返回 204 No Content（用于 DELETE 等操作）
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
