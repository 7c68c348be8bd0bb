package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-group/httpserver/config"
	"chat-group/httpserver/internal/middleware"
	"chat-group/httpserver/pkg/metrics"
	"chat-group/httpserver/pkg/response"
	"chat-group/httpserver/pkg/storage"
	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
)

// multipart 头部等额外开销
const multipartOverhead = 64 * 1024

// ============================================================================
// Handler 结构体
// ============================================================================

type UserHandler struct {
	users          chat.UserServiceClient
	store          storage.ObjectStore
	cookie         config.CookieConfig
	timeout        time.Duration
	maxAvatarBytes int64
}

// NewUserHandler 创建 UserHandler 实例
func NewUserHandler(users chat.UserServiceClient, store storage.ObjectStore, cfg *config.Config) *UserHandler {
	return &UserHandler{
		users:          users,
		store:          store,
		cookie:         cfg.Cookie,
		timeout:        cfg.GRPC.GetTimeout(),
		maxAvatarBytes: cfg.Storage.MaxAvatarBytes,
	}
}

// ============================================================================
// 请求 / 响应结构体
// ============================================================================

type RegisterRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// ProfileView 用户信息，ID 以字符串返回避免前端精度丢失
type ProfileView struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture"`
	Initials       string `json:"initials"`
	CreatedAt      int64  `json:"created_at"`
}

func toProfileView(u *chat.UserProfile) *ProfileView {
	if u == nil {
		return nil
	}
	return &ProfileView{
		ID:             formatID(u.ID),
		Username:       u.Username,
		Email:          u.Email,
		Name:           u.Name,
		ProfilePicture: u.ProfilePicture,
		Initials:       initials(u.Name),
		CreatedAt:      u.CreatedAt,
	}
}

// ============================================================================
// Handler 方法
// ============================================================================

// Register 注册，成功后直接登录
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.CodeBadRequest, "请求参数错误")
		return
	}

	ctx, cancel := rpcContext(c, h.timeout, "")
	defer cancel()

	resp, err := h.users.Register(ctx, &chat.RegisterRequest{
		Username:        req.Username,
		Email:           req.Email,
		Name:            req.Name,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		rpcError(c, "Register", err)
		return
	}
	if rpcFailed(c, resp.Code, resp.Message) {
		return
	}

	h.setAuthCookie(c, resp.Token)
	response.Success(c, toProfileView(resp.User))
}

// Login 登录
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.CodeBadRequest, "请求参数错误")
		return
	}

	ctx, cancel := rpcContext(c, h.timeout, "")
	defer cancel()

	resp, err := h.users.Login(ctx, &chat.LoginRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		rpcError(c, "Login", err)
		return
	}
	if rpcFailed(c, resp.Code, resp.Message) {
		return
	}

	// 设置Cookie（必须在写响应之前）
	h.setAuthCookie(c, resp.Token)
	response.Success(c, toProfileView(resp.User))
}

// Logout 登出，无论 Session 是否还在都清除 Cookie
func (h *UserHandler) Logout(c *gin.Context) {
	token := middleware.GetToken(c)

	ctx, cancel := rpcContext(c, h.timeout, token)
	defer cancel()

	resp, err := h.users.Logout(ctx, &chat.LogoutRequest{})
	h.clearAuthCookie(c)
	if err != nil {
		rpcError(c, "Logout", err)
		return
	}
	if rpcFailed(c, resp.Code, resp.Message) {
		return
	}

	response.Success(c, gin.H{})
}

// GetProfile 获取用户信息
func (h *UserHandler) GetProfile(c *gin.Context) {
	ctx, cancel := rpcContext(c, h.timeout, middleware.GetToken(c))
	defer cancel()

	resp, err := h.users.GetProfile(ctx, &chat.GetProfileRequest{})
	if err != nil {
		rpcError(c, "GetProfile", err)
		return
	}
	if rpcFailed(c, resp.Code, resp.Message) {
		return
	}

	response.Success(c, toProfileView(resp.User))
}

// UpdateProfile 修改姓名和邮箱
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.CodeBadRequest, "请求参数错误")
		return
	}

	ctx, cancel := rpcContext(c, h.timeout, middleware.GetToken(c))
	defer cancel()

	resp, err := h.users.UpdateProfile(ctx, &chat.UpdateProfileRequest{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		rpcError(c, "UpdateProfile", err)
		return
	}
	if rpcFailed(c, resp.Code, resp.Message) {
		return
	}

	response.Success(c, toProfileView(resp.User))
}

// ChangePassword 修改密码
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.CodeBadRequest, "请求参数错误")
		return
	}

	ctx, cancel := rpcContext(c, h.timeout, middleware.GetToken(c))
	defer cancel()

	resp, err := h.users.ChangePassword(ctx, &chat.ChangePasswordRequest{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		rpcError(c, "ChangePassword", err)
		return
	}
	if rpcFailed(c, resp.Code, resp.Message) {
		return
	}

	response.SuccessWithMessage(c, "密码已修改", gin.H{})
}

// UploadProfilePicture 上传头像：先存对象，再更新用户记录，失败时删除已存对象
func (h *UserHandler) UploadProfilePicture(c *gin.Context) {
	token := middleware.GetToken(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxAvatarBytes+multipartOverhead)

	// 1. 取文件并做初步校验
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.uploadFailed(c, "too_large", response.CodeFileTooLarge)
			return
		}
		response.Error(c, response.CodeBadRequest, "请上传文件")
		return
	}
	if file.Size > h.maxAvatarBytes {
		h.uploadFailed(c, "too_large", response.CodeFileTooLarge)
		return
	}

	// 2. 确认当前用户
	ctx, cancel := rpcContext(c, h.timeout, token)
	defer cancel()

	profile, err := h.users.GetProfile(ctx, &chat.GetProfileRequest{})
	if err != nil {
		rpcError(c, "GetProfile", err)
		return
	}
	if rpcFailed(c, profile.Code, profile.Message) {
		return
	}

	// 3. 校验内容类型
	src, err := file.Open()
	if err != nil {
		log.Error("打开上传文件失败", zap.Error(err))
		response.Error(c, response.CodeBadRequest, "请上传文件")
		return
	}
	defer src.Close()

	data, ext, err := storage.ReadImage(src, file.Filename, h.maxAvatarBytes)
	switch {
	case errors.Is(err, storage.ErrFileTooLarge):
		h.uploadFailed(c, "too_large", response.CodeFileTooLarge)
		return
	case errors.Is(err, storage.ErrUnsupportedFileType):
		h.uploadFailed(c, "bad_type", response.CodeUnsupportedFileType)
		return
	case err != nil:
		log.Error("读取上传文件失败", zap.Error(err))
		h.uploadFailed(c, "error", response.CodeBadRequest)
		return
	}

	// 4. 写入对象存储
	key := storage.AvatarKey(profile.User.ID, ext, time.Now())
	url, err := h.store.Put(ctx, key, storage.NewImageReader(data))
	if err != nil {
		log.Error("保存头像失败", zap.String("key", key), zap.Error(err))
		h.uploadFailed(c, "error", response.CodeStorageError)
		return
	}

	// 5. 更新用户头像
	resp, err := h.users.UpdateProfilePicture(ctx, &chat.UpdateProfilePictureRequest{ProfilePicture: url})
	if err != nil || resp.Code != chat.CodeSuccess {
		// 尝试删除已上传的文件，失败只记录日志
		if delErr := h.store.Delete(c.Request.Context(), key); delErr != nil {
			log.Warn("删除头像失败", zap.String("key", key), zap.Error(delErr))
		}
		metrics.AvatarUploads.WithLabelValues("error").Inc()
		if err != nil {
			rpcError(c, "UpdateProfilePicture", err)
			return
		}
		rpcFailed(c, resp.Code, resp.Message)
		return
	}

	metrics.AvatarUploads.WithLabelValues("ok").Inc()
	log.Info("头像已更新", zap.Uint64("user_id", profile.User.ID), zap.String("url", url))
	response.Success(c, toProfileView(resp.User))
}

func (h *UserHandler) uploadFailed(c *gin.Context, result string, code int) {
	metrics.AvatarUploads.WithLabelValues(result).Inc()
	response.Error(c, code, "")
}

// ============================================================================
// Cookie
// ============================================================================

func (h *UserHandler) setAuthCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, h.cookie.MaxAge, "/", "", h.cookie.Secure, true)
}

func (h *UserHandler) clearAuthCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
