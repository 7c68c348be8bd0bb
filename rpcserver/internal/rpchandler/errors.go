package rpchandler

import (
	"context"
	"errors"

	"chat-group/proto/chat"
	"chat-group/rpcserver/internal/dto"
	"chat-group/rpcserver/internal/middleware"
	"chat-group/rpcserver/internal/service"
)

// ============================================================================
// 错误映射函数
// ============================================================================

// mapServiceError 将 Service 层错误映射为业务错误码和消息
func mapServiceError(err error) (int32, string) {
	// 参数校验错误，消息原样返回给前端
	if dto.IsValidationError(err) {
		return chat.CodeInvalidParams, err.Error()
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return chat.CodeInvalidCredential, "用户名或密码错误"
	case errors.Is(err, service.ErrLoginLimitExceeded):
		return chat.CodeTooManyRequests, "登录失败次数过多，请稍后再试"
	case errors.Is(err, service.ErrUserExists):
		return chat.CodeUserExists, "用户名或邮箱已存在"
	case errors.Is(err, service.ErrEmailTaken):
		return chat.CodeUserExists, "邮箱已被使用"
	case errors.Is(err, service.ErrOldPasswordWrong):
		return chat.CodePasswordMismatch, "原密码错误"
	case errors.Is(err, service.ErrUserNotFound):
		return chat.CodeUserNotFound, "用户不存在"
	case errors.Is(err, service.ErrChannelNotFound):
		return chat.CodeChannelNotFound, "频道不存在"
	case errors.Is(err, service.ErrNotMember):
		return chat.CodeNotMember, "请先加入频道"
	default:
		return chat.CodeInternalError, "内部错误"
	}
}

// currentUser 取鉴权拦截器放入的用户ID
func currentUser(ctx context.Context) (uint64, bool) {
	return middleware.UserIDFromContext(ctx)
}

const msgUnauthorized = "请先登录"
