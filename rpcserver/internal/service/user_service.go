package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	log "chat-group/pkg/logger"
	"chat-group/rpcserver/internal/dto"
	"chat-group/rpcserver/internal/model"
	"chat-group/rpcserver/internal/repository"
	"chat-group/rpcserver/pkg/db"
	"chat-group/rpcserver/pkg/metrics"
	"chat-group/rpcserver/pkg/redis"
)

// ============================================================================
// UserService 接口
// ============================================================================

type UserService interface {
	// Register 注册并直接登录
	Register(ctx context.Context, registerDTO *dto.RegisterDTO) (*dto.LoginResultDTO, error)

	// Login 用户登录
	Login(ctx context.Context, loginDTO *dto.LoginDTO) (*dto.LoginResultDTO, error)

	// Logout 用户登出
	Logout(ctx context.Context, logoutDTO *dto.LogoutDTO) error

	// GetProfile 获取用户信息（优先缓存）
	GetProfile(ctx context.Context, userID uint64) (*dto.UserProfileDTO, error)

	// UpdateProfile 更新姓名和邮箱
	UpdateProfile(ctx context.Context, updateDTO *dto.UpdateProfileDTO) (*dto.UserProfileDTO, error)

	// ChangePassword 修改密码
	ChangePassword(ctx context.Context, changeDTO *dto.ChangePasswordDTO) error

	// UpdateProfilePicture 更新用户头像URL
	UpdateProfilePicture(ctx context.Context, updateDTO *dto.UpdateProfilePictureDTO) (*dto.UserProfileDTO, error)
}

// ============================================================================
// userService 实现
// ============================================================================

type userService struct {
	userRepo     repository.UserRepository
	redisManager redis.Manager
	idGen        db.IDGenerator
	bcryptCost   int
}

// NewUserService 创建UserService实例
func NewUserService(userRepo repository.UserRepository, redisManager redis.Manager, idGen db.IDGenerator) UserService {
	return &userService{
		userRepo:     userRepo,
		redisManager: redisManager,
		idGen:        idGen,
		bcryptCost:   bcrypt.DefaultCost,
	}
}

// ============================================================================
// Register 注册
// ============================================================================

func (s *userService) Register(ctx context.Context, registerDTO *dto.RegisterDTO) (*dto.LoginResultDTO, error) {
	// 1. 验证DTO
	if err := registerDTO.Validate(); err != nil {
		log.Warn("注册参数验证失败", zap.Error(err), zap.String("username", registerDTO.Username))
		return nil, err
	}

	// 2. 用户名、邮箱查重
	exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, registerDTO.Username, registerDTO.Email)
	if err != nil {
		log.Error("查询用户是否存在失败", zap.Error(err), zap.String("username", registerDTO.Username))
		return nil, fmt.Errorf("注册失败: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	// 3. 生成密码哈希和ID
	hash, err := bcrypt.GenerateFromPassword([]byte(registerDTO.Password), s.bcryptCost)
	if err != nil {
		log.Error("生成密码哈希失败", zap.Error(err))
		return nil, ErrPasswordHashFailed
	}
	id, err := s.idGen.NextID()
	if err != nil {
		log.Error("生成用户ID失败", zap.Error(err))
		return nil, fmt.Errorf("注册失败: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	user := &model.User{
		ID:           id,
		Username:     registerDTO.Username,
		Email:        registerDTO.Email,
		Name:         registerDTO.Name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 4. 写库，并发注册由唯一约束兜底
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		log.Error("创建用户失败", zap.Error(err), zap.String("username", user.Username))
		return nil, fmt.Errorf("注册失败: %w", err)
	}

	// 5. 注册即登录
	token, err := s.redisManager.GetSession().CreateSession(ctx, user.ID)
	if err != nil {
		log.Error("创建Session失败", zap.Error(err), zap.Uint64("user_id", user.ID))
		return nil, ErrSessionCreateFailed
	}

	metrics.UsersRegistered.Inc()
	log.Info("用户注册成功", zap.String("username", user.Username), zap.Uint64("user_id", user.ID))
	return &dto.LoginResultDTO{
		Token:   token,
		Profile: dto.ProfileFromModel(user),
	}, nil
}

// ============================================================================
// Login 登录
// ============================================================================

func (s *userService) Login(ctx context.Context, loginDTO *dto.LoginDTO) (*dto.LoginResultDTO, error) {
	// 1. 验证DTO
	if err := loginDTO.Validate(); err != nil {
		log.Warn("登录参数验证失败", zap.Error(err), zap.String("username", loginDTO.Username))
		return nil, err
	}

	limiter := s.redisManager.GetLoginLimiter()

	// 2. 检查登录失败次数限制
	status, err := limiter.Check(ctx, loginDTO.Username)
	if err != nil {
		// 降级策略：Redis 异常不影响登录流程
		log.Error("获取登录失败次数失败", zap.Error(err), zap.String("username", loginDTO.Username))
	} else if status.Locked() {
		metrics.LoginFailures.WithLabelValues("limited").Inc()
		log.Warn("登录已被锁定",
			zap.String("username", loginDTO.Username),
			zap.Int64("failures", status.Failures),
			zap.Duration("retry_after", status.RetryAfter))
		return nil, ErrLoginLimitExceeded
	}

	// 3. 查询用户（包含password_hash）
	user, err := s.userRepo.GetByUsername(ctx, loginDTO.Username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error("查询用户失败", zap.Error(err), zap.String("username", loginDTO.Username))
			return nil, fmt.Errorf("登录失败: %w", err)
		}
		log.Warn("用户不存在", zap.String("username", loginDTO.Username))
		s.recordLoginFail(ctx, loginDTO.Username)
		return nil, ErrInvalidCredentials
	}

	// 4. 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginDTO.Password)); err != nil {
		log.Warn("密码错误", zap.String("username", loginDTO.Username))
		s.recordLoginFail(ctx, loginDTO.Username)
		return nil, ErrInvalidCredentials
	}

	// 5. 创建Session
	token, err := s.redisManager.GetSession().CreateSession(ctx, user.ID)
	if err != nil {
		log.Error("创建Session失败", zap.Error(err), zap.Uint64("user_id", user.ID))
		return nil, ErrSessionCreateFailed
	}

	// 6. 清空登录失败次数
	if err := limiter.Reset(ctx, loginDTO.Username); err != nil {
		log.Error("重置登录失败次数失败", zap.Error(err))
	}

	log.Info("用户登录成功",
		zap.String("username", loginDTO.Username),
		zap.Uint64("user_id", user.ID))

	return &dto.LoginResultDTO{
		Token:   token,
		Profile: dto.ProfileFromModel(user),
	}, nil
}

func (s *userService) recordLoginFail(ctx context.Context, username string) {
	metrics.LoginFailures.WithLabelValues("credentials").Inc()
	status, err := s.redisManager.GetLoginLimiter().RecordFailure(ctx, username)
	if err != nil {
		log.Error("记录登录失败次数失败", zap.Error(err))
		return
	}
	log.Warn("登录失败", zap.String("username", username), zap.Int64("remaining", status.Remaining))
}

// ============================================================================
// Logout 登出
// ============================================================================

func (s *userService) Logout(ctx context.Context, logoutDTO *dto.LogoutDTO) error {
	if err := logoutDTO.Validate(); err != nil {
		return err
	}

	if err := s.redisManager.GetSession().DestroySession(ctx, logoutDTO.Token); err != nil {
		return fmt.Errorf("登出失败: %w", err)
	}

	log.Info("用户登出成功", zap.String("token", redis.MaskToken(logoutDTO.Token)))
	return nil
}

// ============================================================================
// GetProfile 获取用户信息
// ============================================================================

func (s *userService) GetProfile(ctx context.Context, userID uint64) (*dto.UserProfileDTO, error) {
	if userID == 0 {
		return nil, dto.ErrUserIDInvalid
	}

	cache := s.redisManager.GetUserCache()

	// 1. 查缓存
	cached, err := cache.GetUser(ctx, userID)
	switch {
	case errors.Is(err, redis.ErrNullCached):
		return nil, ErrUserNotFound
	case err != nil:
		// 缓存不可用时直接查库
		log.Warn("读取用户缓存失败", zap.Error(err), zap.Uint64("user_id", userID))
	case cached != nil:
		return dto.ProfileFromCache(cached), nil
	}

	// 2. 查库并回填缓存
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = cache.SetNullCache(ctx, userID)
			return nil, ErrUserNotFound
		}
		log.Error("获取用户信息失败", zap.Error(err), zap.Uint64("user_id", userID))
		return nil, fmt.Errorf("获取用户信息失败: %w", err)
	}

	_ = cache.SetUser(ctx, user)
	return dto.ProfileFromModel(user), nil
}

// ============================================================================
// UpdateProfile 更新姓名和邮箱
// ============================================================================

func (s *userService) UpdateProfile(ctx context.Context, updateDTO *dto.UpdateProfileDTO) (*dto.UserProfileDTO, error) {
	// 1. 验证DTO
	if err := updateDTO.Validate(); err != nil {
		log.Warn("更新资料参数验证失败", zap.Error(err), zap.Uint64("user_id", updateDTO.UserID))
		return nil, err
	}

	// 2. 邮箱查重
	taken, err := s.userRepo.EmailTakenByOther(ctx, updateDTO.Email, updateDTO.UserID)
	if err != nil {
		return nil, fmt.Errorf("更新资料失败: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	// 3. 更新并清缓存
	if err := s.userRepo.UpdateProfile(ctx, updateDTO.UserID, updateDTO.Name, updateDTO.Email); err != nil {
		return nil, s.mapUpdateError(err, "更新资料失败")
	}
	s.invalidate(ctx, updateDTO.UserID)

	log.Info("更新资料成功", zap.Uint64("user_id", updateDTO.UserID))
	return s.GetProfile(ctx, updateDTO.UserID)
}

// ============================================================================
// ChangePassword 修改密码
// ============================================================================

func (s *userService) ChangePassword(ctx context.Context, changeDTO *dto.ChangePasswordDTO) error {
	// 1. 验证DTO
	if err := changeDTO.Validate(); err != nil {
		log.Warn("修改密码参数验证失败", zap.Error(err), zap.Uint64("user_id", changeDTO.UserID))
		return err
	}

	// 2. 校验原密码
	user, err := s.userRepo.GetByID(ctx, changeDTO.UserID)
	if err != nil {
		return s.mapUpdateError(err, "修改密码失败")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(changeDTO.OldPassword)); err != nil {
		log.Warn("原密码错误", zap.Uint64("user_id", changeDTO.UserID))
		return ErrOldPasswordWrong
	}

	// 3. 写入新密码
	hash, err := bcrypt.GenerateFromPassword([]byte(changeDTO.NewPassword), s.bcryptCost)
	if err != nil {
		log.Error("生成密码哈希失败", zap.Error(err))
		return ErrPasswordHashFailed
	}
	if err := s.userRepo.UpdatePassword(ctx, changeDTO.UserID, string(hash)); err != nil {
		return s.mapUpdateError(err, "修改密码失败")
	}

	log.Info("修改密码成功", zap.Uint64("user_id", changeDTO.UserID))
	return nil
}

// ============================================================================
// UpdateProfilePicture 更新头像URL
// ============================================================================

func (s *userService) UpdateProfilePicture(ctx context.Context, updateDTO *dto.UpdateProfilePictureDTO) (*dto.UserProfileDTO, error) {
	// 1. 验证DTO
	if err := updateDTO.Validate(); err != nil {
		log.Warn("更新头像参数验证失败",
			zap.Error(err),
			zap.Uint64("user_id", updateDTO.UserID),
			zap.String("profile_picture", updateDTO.ProfilePicture))
		return nil, err
	}

	// 2. 更新并清缓存
	if err := s.userRepo.UpdateProfilePicture(ctx, updateDTO.UserID, updateDTO.ProfilePicture); err != nil {
		return nil, s.mapUpdateError(err, "更新头像失败")
	}
	s.invalidate(ctx, updateDTO.UserID)

	log.Info("更新头像成功",
		zap.Uint64("user_id", updateDTO.UserID),
		zap.String("profile_picture", updateDTO.ProfilePicture))

	return s.GetProfile(ctx, updateDTO.UserID)
}

// invalidate 删除用户缓存，失败只记日志（缓存 30 分钟后自然过期）
func (s *userService) invalidate(ctx context.Context, userID uint64) {
	if err := s.redisManager.GetUserCache().DeleteUser(ctx, userID); err != nil {
		log.Warn("删除用户缓存失败", zap.Error(err), zap.Uint64("user_id", userID))
	}
}

func (s *userService) mapUpdateError(err error, action string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrEmailTaken
	default:
		log.Error(action, zap.Error(err))
		return fmt.Errorf("%s: %w", action, err)
	}
}
