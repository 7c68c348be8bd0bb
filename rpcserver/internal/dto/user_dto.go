package dto

import "time"

// ============================================================================
// 用户信息 DTO
// ============================================================================

// UserProfileDTO 用户公开信息（用于响应）
type UserProfileDTO struct {
	ID             uint64
	Username       string
	Email          string
	Name           string
	ProfilePicture string
	CreatedAt      time.Time
}

// ============================================================================
// 认证相关 DTO
// ============================================================================

// RegisterDTO 注册请求
type RegisterDTO struct {
	Username        string
	Email           string
	Name            string
	Password        string
	ConfirmPassword string
}

// LoginDTO 登录请求
type LoginDTO struct {
	Username string
	Password string // 明文密码
}

// LoginResultDTO 登录/注册结果
type LoginResultDTO struct {
	Token   string
	Profile *UserProfileDTO
}

// LogoutDTO 登出请求
type LogoutDTO struct {
	Token string
}

// ============================================================================
// 资料修改 DTO
// ============================================================================

// UpdateProfileDTO 更新姓名和邮箱
type UpdateProfileDTO struct {
	UserID uint64
	Name   string
	Email  string
}

// ChangePasswordDTO 修改密码
type ChangePasswordDTO struct {
	UserID          uint64
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// UpdateProfilePictureDTO 更新头像URL
type UpdateProfilePictureDTO struct {
	UserID         uint64
	ProfilePicture string
}
