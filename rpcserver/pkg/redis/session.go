package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	log "chat-group/pkg/logger"
)

const (
	// SessionTTL Session默认过期时间（2小时），每次通过鉴权都会续期
	SessionTTL = 2 * time.Hour

	// SessionKeyPrefix Session键前缀
	SessionKeyPrefix = "sess:"
)

// ErrSessionNotFound Session不存在或已过期
var ErrSessionNotFound = errors.New("session not found")

// SessionManager Session管理器接口
type SessionManager interface {
	// CreateSession 创建Session（生成token并存储到Redis）
	CreateSession(ctx context.Context, userID uint64) (string, error)

	// ValidateSession 验证Session（根据token获取userID）
	ValidateSession(ctx context.Context, token string) (uint64, error)

	// DestroySession 销毁Session（登出时删除token）
	DestroySession(ctx context.Context, token string) error

	// RefreshSession 刷新Session（延长有效期）
	RefreshSession(ctx context.Context, token string) error
}

type sessionManager struct {
	client Client
}

// NewSessionManager 创建Session管理器
func NewSessionManager(client Client) SessionManager {
	return &sessionManager{client: client}
}

func (sm *sessionManager) CreateSession(ctx context.Context, userID uint64) (string, error) {
	token := uuid.New().String()

	if err := sm.client.Set(ctx, SessionKeyPrefix+token, userID, SessionTTL); err != nil {
		log.Error("创建Session失败", zap.Error(err), zap.Uint64("user_id", userID))
		return "", fmt.Errorf("创建Session失败: %w", err)
	}

	log.Info("创建Session成功", zap.String("token", MaskToken(token)), zap.Uint64("user_id", userID))
	return token, nil
}

func (sm *sessionManager) ValidateSession(ctx context.Context, token string) (uint64, error) {
	userID, err := sm.client.GetUint64(ctx, SessionKeyPrefix+token)
	if err != nil {
		if IsNil(err) {
			return 0, ErrSessionNotFound
		}
		return 0, fmt.Errorf("读取Session失败: %w", err)
	}
	return userID, nil
}

func (sm *sessionManager) DestroySession(ctx context.Context, token string) error {
	if err := sm.client.Del(ctx, SessionKeyPrefix+token); err != nil {
		log.Error("销毁Session失败", zap.Error(err), zap.String("token", MaskToken(token)))
		return err
	}
	log.Info("销毁Session成功", zap.String("token", MaskToken(token)))
	return nil
}

func (sm *sessionManager) RefreshSession(ctx context.Context, token string) error {
	return sm.client.Expire(ctx, SessionKeyPrefix+token, SessionTTL)
}

// MaskToken 日志里只保留前 8 位
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "***"
}
