package rpchandler

import (
	"context"

	"go.uber.org/zap"

	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
	"chat-group/rpcserver/internal/dto"
	"chat-group/rpcserver/internal/middleware"
	"chat-group/rpcserver/internal/service"
	"chat-group/rpcserver/pkg/redis"
)

// ============================================================================
// UserServiceHandler gRPC Handler
// ============================================================================

// UserServiceHandler 业务错误放在响应的 Code 字段里，不返回 gRPC 错误
type UserServiceHandler struct {
	userService service.UserService
}

// NewUserServiceHandler 创建 gRPC Handler
func NewUserServiceHandler(userService service.UserService) *UserServiceHandler {
	return &UserServiceHandler{
		userService: userService,
	}
}

// ============================================================================
// Register 注册
// ============================================================================

func (h *UserServiceHandler) Register(ctx context.Context, req *chat.RegisterRequest) (*chat.RegisterResponse, error) {
	// 1. Proto → DTO
	registerDTO := dto.FromProtoRegisterRequest(req)

	// 2. 调用 Service 层
	result, err := h.userService.Register(ctx, registerDTO)

	// 3. 错误处理
	if err != nil {
		code, message := mapServiceError(err)
		log.Warn("注册失败",
			zap.String("username", req.Username),
			zap.Int32("code", code),
			zap.Error(err))
		return &chat.RegisterResponse{Code: code, Message: message}, nil
	}

	// 4. DTO → Proto
	log.Info("注册成功", zap.String("username", req.Username), zap.Uint64("user_id", result.Profile.ID))
	return &chat.RegisterResponse{
		Code:    chat.CodeSuccess,
		Message: "注册成功",
		Token:   result.Token,
		User:    result.Profile.ToProto(),
	}, nil
}

// ============================================================================
// Login 登录
// ============================================================================

func (h *UserServiceHandler) Login(ctx context.Context, req *chat.LoginRequest) (*chat.LoginResponse, error) {
	result, err := h.userService.Login(ctx, dto.FromProtoLoginRequest(req))
	if err != nil {
		code, message := mapServiceError(err)
		log.Warn("登录失败",
			zap.String("username", req.Username),
			zap.Int32("code", code),
			zap.Error(err))
		return &chat.LoginResponse{Code: code, Message: message}, nil
	}

	log.Info("登录成功", zap.String("username", req.Username))
	return &chat.LoginResponse{
		Code:    chat.CodeSuccess,
		Message: "登录成功",
		Token:   result.Token,
		User:    result.Profile.ToProto(),
	}, nil
}

// ============================================================================
// Logout 登出
// ============================================================================

func (h *UserServiceHandler) Logout(ctx context.Context, _ *chat.LogoutRequest) (*chat.LogoutResponse, error) {
	token := middleware.TokenFromContext(ctx)

	if err := h.userService.Logout(ctx, &dto.LogoutDTO{Token: token}); err != nil {
		code, message := mapServiceError(err)
		log.Warn("登出失败",
			zap.String("token", redis.MaskToken(token)),
			zap.Int32("code", code),
			zap.Error(err))
		return &chat.LogoutResponse{Code: code, Message: message}, nil
	}

	log.Info("登出成功", zap.String("token", redis.MaskToken(token)))
	return &chat.LogoutResponse{Code: chat.CodeSuccess, Message: "登出成功"}, nil
}

// ============================================================================
// GetProfile 获取当前用户信息
// ============================================================================

func (h *UserServiceHandler) GetProfile(ctx context.Context, _ *chat.GetProfileRequest) (*chat.GetProfileResponse, error) {
	userID, ok := currentUser(ctx)
	if !ok {
		return &chat.GetProfileResponse{Code: chat.CodeUnauthorized, Message: msgUnauthorized}, nil
	}

	profile, err := h.userService.GetProfile(ctx, userID)
	if err != nil {
		code, message := mapServiceError(err)
		log.Warn("获取用户信息失败",
			zap.Uint64("user_id", userID),
			zap.Int32("code", code),
			zap.Error(err))
		return &chat.GetProfileResponse{Code: code, Message: message}, nil
	}

	log.Debug("获取用户信息成功", zap.Uint64("user_id", profile.ID))
	return &chat.GetProfileResponse{Code: chat.CodeSuccess, Message: "获取成功", User: profile.ToProto()}, nil
}

// ============================================================================
// UpdateProfile 更新姓名和邮箱
// ============================================================================

func (h *UserServiceHandler) UpdateProfile(ctx context.Context, req *chat.UpdateProfileRequest) (*chat.UpdateProfileResponse, error) {
	// 1. 当前用户
	userID, ok := currentUser(ctx)
	if !ok {
		return &chat.UpdateProfileResponse{Code: chat.CodeUnauthorized, Message: msgUnauthorized}, nil
	}

	// 2. 调用 Service 层
	profile, err := h.userService.UpdateProfile(ctx, dto.FromProtoUpdateProfileRequest(req, userID))

	// 3. 错误处理
	if err != nil {
		code, message := mapServiceError(err)
		log.Warn("更新资料失败",
			zap.Uint64("user_id", userID),
			zap.Int32("code", code),
			zap.Error(err))
		return &chat.UpdateProfileResponse{Code: code, Message: message}, nil
	}

	// 4. DTO → Proto
	log.Info("更新资料成功", zap.Uint64("user_id", userID))
	return &chat.UpdateProfileResponse{Code: chat.CodeSuccess, Message: "更新成功", User: profile.ToProto()}, nil
}

// ============================================================================
// ChangePassword 修改密码
// ============================================================================

func (h *UserServiceHandler) ChangePassword(ctx context.Context, req *chat.ChangePasswordRequest) (*chat.ChangePasswordResponse, error) {
	userID, ok := currentUser(ctx)
	if !ok {
		return &chat.ChangePasswordResponse{Code: chat.CodeUnauthorized, Message: msgUnauthorized}, nil
	}

	if err := h.userService.ChangePassword(ctx, dto.FromProtoChangePasswordRequest(req, userID)); err != nil {
		code, message := mapServiceError(err)
		log.Warn("修改密码失败",
			zap.Uint64("user_id", userID),
			zap.Int32("code", code),
			zap.Error(err))
		return &chat.ChangePasswordResponse{Code: code, Message: message}, nil
	}

	log.Info("修改密码成功", zap.Uint64("user_id", userID))
	return &chat.ChangePasswordResponse{Code: chat.CodeSuccess, Message: "密码已修改"}, nil
}

// ============================================================================
// UpdateProfilePicture 更新头像
// ============================================================================

func (h *UserServiceHandler) UpdateProfilePicture(ctx context.Context, req *chat.UpdateProfilePictureRequest) (*chat.UpdateProfilePictureResponse, error) {
	userID, ok := currentUser(ctx)
	if !ok {
		return &chat.UpdateProfilePictureResponse{Code: chat.CodeUnauthorized, Message: msgUnauthorized}, nil
	}

	profile, err := h.userService.UpdateProfilePicture(ctx, dto.FromProtoUpdateProfilePictureRequest(req, userID))
	if err != nil {
		code, message := mapServiceError(err)
		log.Warn("更新头像失败",
			zap.Uint64("user_id", userID),
			zap.String("profile_picture", req.ProfilePicture),
			zap.Int32("code", code),
			zap.Error(err))
		return &chat.UpdateProfilePictureResponse{Code: code, Message: message}, nil
	}

	log.Info("更新头像成功",
		zap.Uint64("user_id", userID),
		zap.String("profile_picture", req.ProfilePicture))
	return &chat.UpdateProfilePictureResponse{Code: chat.CodeSuccess, Message: "更新成功", User: profile.ToProto()}, nil
}
