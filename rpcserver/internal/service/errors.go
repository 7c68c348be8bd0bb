package service

import "errors"

// ============================================================================
// 业务错误定义
// ============================================================================

var (
	ErrInvalidCredentials  = errors.New("用户名或密码错误")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrUserExists          = errors.New("用户名或邮箱已存在")
	ErrEmailTaken          = errors.New("邮箱已被使用")
	ErrOldPasswordWrong    = errors.New("原密码错误")
	ErrPasswordHashFailed  = errors.New("密码哈希失败")
	ErrSessionCreateFailed = errors.New("创建会话失败")
	ErrLoginLimitExceeded  = errors.New("登录失败次数过多，请稍后再试")
	ErrChannelNotFound     = errors.New("频道不存在")
	ErrNotMember           = errors.New("不是频道成员")
)
