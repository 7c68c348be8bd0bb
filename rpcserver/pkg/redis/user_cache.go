package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	log "chat-group/pkg/logger"
	"chat-group/rpcserver/internal/model"
)

const (
	// UserCacheKeyPrefix 用户缓存键前缀，示例：user:123
	UserCacheKeyPrefix = "user:"

	// UserCacheTTL 用户缓存过期时间（30分钟）
	UserCacheTTL = 30 * time.Minute

	// NullCacheValue 负缓存标记值
	NullCacheValue = "NULL"

	// NullCacheTTL 负缓存过期时间（5分钟）
	NullCacheTTL = 5 * time.Minute
)

// ErrNullCached 命中负缓存（用户确定不存在）
var ErrNullCached = errors.New("user cached as not found")

// CachedUser 缓存的用户公开信息
type CachedUser struct {
	ID             uint64 `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture"`
	CreatedAt      int64  `json:"created_at"` // Unix 毫秒
}

// UserCache 用户缓存管理器接口
type UserCache interface {
	// GetUser 获取用户缓存，未命中返回 (nil, nil)，命中负缓存返回 ErrNullCached
	GetUser(ctx context.Context, userID uint64) (*CachedUser, error)

	// SetUser 设置用户缓存（TTL: 30分钟）
	SetUser(ctx context.Context, user *model.User) error

	// SetNullCache 设置负缓存（用户不存在时，TTL: 5分钟）
	SetNullCache(ctx context.Context, userID uint64) error

	// DeleteUser 删除用户缓存
	DeleteUser(ctx context.Context, userID uint64) error
}

type userCache struct {
	client Client
}

// NewUserCache 创建用户缓存管理器
func NewUserCache(client Client) UserCache {
	return &userCache{client: client}
}

func userKey(userID uint64) string {
	return UserCacheKeyPrefix + strconv.FormatUint(userID, 10)
}

func (uc *userCache) GetUser(ctx context.Context, userID uint64) (*CachedUser, error) {
	var user CachedUser
	if err := uc.client.GetJSON(ctx, userKey(userID), &user); err != nil {
		if IsNil(err) {
			return nil, nil
		}
		return nil, err
	}

	if user.Username == NullCacheValue {
		log.Debug("命中负缓存", zap.Uint64("user_id", userID))
		return nil, ErrNullCached
	}

	log.Debug("命中用户缓存", zap.Uint64("user_id", userID))
	return &user, nil
}

func (uc *userCache) SetUser(ctx context.Context, user *model.User) error {
	cachedUser := &CachedUser{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		Name:           user.Name,
		ProfilePicture: user.ProfilePicture,
		CreatedAt:      user.CreatedAt.UnixMilli(),
	}

	if err := uc.client.SetJSON(ctx, userKey(user.ID), cachedUser, UserCacheTTL); err != nil {
		log.Error("设置用户缓存失败", zap.Error(err), zap.Uint64("user_id", user.ID))
		return err
	}

	log.Debug("设置用户缓存成功", zap.Uint64("user_id", user.ID))
	return nil
}

func (uc *userCache) SetNullCache(ctx context.Context, userID uint64) error {
	nullUser := &CachedUser{Username: NullCacheValue}

	if err := uc.client.SetJSON(ctx, userKey(userID), nullUser, NullCacheTTL); err != nil {
		log.Error("设置负缓存失败", zap.Error(err), zap.Uint64("user_id", userID))
		return err
	}

	log.Debug("设置负缓存成功", zap.Uint64("user_id", userID))
	return nil
}

func (uc *userCache) DeleteUser(ctx context.Context, userID uint64) error {
	if err := uc.client.Del(ctx, userKey(userID)); err != nil {
		log.Error("删除用户缓存失败", zap.Error(err), zap.Uint64("user_id", userID))
		return err
	}
	log.Debug("删除用户缓存成功", zap.Uint64("user_id", userID))
	return nil
}
