package errors

import (
	stderrors "errors"
	"fmt"
)

func (d Definition) Error() string {
	if d.Field != "" {
		return d.Field + ": " + d.Message
	}
	return d.Message
}

// Is 按错误码比较，Field 与 Message 不参与比较。
func (d Definition) Is(target error) bool {
	t, ok := target.(Definition)
	return ok && t.Code == d.Code
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
	Field   string
}

// 通用错误。
var (
	ValidationFailed   = Definition{Code: "VALIDATION_FAILED", Message: "Validation failed"}
	InvalidRequest     = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	BackendUnavailable = Definition{Code: "BACKEND_UNAVAILABLE", Message: "Backend unavailable"}
	TooManyRequests    = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
	Internal           = Definition{Code: "INTERNAL_ERROR", Message: "Internal server error"}
)

// 认证相关错误。
var (
	Unauthenticated        = Definition{Code: "UNAUTHENTICATED", Message: "Sign in required"}
	InvalidCredentials     = Definition{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password"}
	InvalidRefreshToken    = Definition{Code: "INVALID_REFRESH_TOKEN", Message: "Refresh token invalid or expired"}
	EmailAlreadyRegistered = Definition{Code: "EMAIL_ALREADY_REGISTERED", Message: "Email already registered"}
)

// 行程模块错误。
var (
	PlanNotFound      = Definition{Code: "PLAN_NOT_FOUND", Message: "Plan not found"}
	WizardStepInvalid = Definition{Code: "WIZARD_STEP_INVALID", Message: "Wizard step invalid"}
)

// token 包内部错误。
var (
	ErrTokenGeneratorNotInitialized = stderrors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = stderrors.New("unexpected signing method")
	ErrInvalidToken                 = stderrors.New("invalid token")
	ErrInvalidTokenClaims           = stderrors.New("invalid token claims")
	ErrInvalidTokenType             = stderrors.New("invalid token type")
	ErrUserIDNotFound               = stderrors.New("user id not found in token")
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	ValidationFailed.Code:       ValidationFailed,
	InvalidRequest.Code:         InvalidRequest,
	BackendUnavailable.Code:     BackendUnavailable,
	TooManyRequests.Code:        TooManyRequests,
	Internal.Code:               Internal,
	Unauthenticated.Code:        Unauthenticated,
	InvalidCredentials.Code:     InvalidCredentials,
	InvalidRefreshToken.Code:    InvalidRefreshToken,
	EmailAlreadyRegistered.Code: EmailAlreadyRegistered,
	PlanNotFound.Code:           PlanNotFound,
	WizardStepInvalid.Code:      WizardStepInvalid,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// Invalid 构造带字段名的校验错误。
func Invalid(field, message string) Definition {
	return Definition{Code: ValidationFailed.Code, Message: message, Field: field}
}

// backendError 包装存储、缓存、队列等基础设施错误。
type backendError struct {
	err error
}

func (e *backendError) Error() string {
	return fmt.Sprintf("%s: %v", BackendUnavailable.Message, e.err)
}

func (e *backendError) Unwrap() error {
	return e.err
}

func (e *backendError) Is(target error) bool {
	t, ok := target.(Definition)
	return ok && t.Code == BackendUnavailable.Code
}

// Backend 将底层错误标记为 BackendUnavailable，nil 原样返回。
func Backend(err error) error {
	if err == nil {
		return nil
	}
	var be *backendError
	if stderrors.As(err, &be) {
		return err
	}
	return &backendError{err: err}
}

// SkipMessageError 表示消息已处理过，消费者应直接 ack。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}
