package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"chat-group/pkg/logger"
	"chat-group/rpcserver/internal/model"
	"chat-group/rpcserver/pkg/redis"
)

// ============================================================================
// 测试初始化
// ============================================================================

// TestMain 测试环境使用 Fatal 级别，测试中的 Error 日志不会显示
func TestMain(m *testing.M) {
	if err := logger.Init(&logger.Config{Level: "fatal", Output: "stdout"}); err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	os.Exit(m.Run())
}

// ============================================================================
// Repository Mock
// ============================================================================

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) EmailTakenByOther(ctx context.Context, email string, userID uint64) (bool, error) {
	args := m.Called(ctx, email, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id uint64, name, email string) error {
	return m.Called(ctx, id, name, email).Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockUserRepository) UpdateProfilePicture(ctx context.Context, id uint64, profilePicture string) error {
	return m.Called(ctx, id, profilePicture).Error(0)
}

func (m *MockUserRepository) BatchCreate(ctx context.Context, users []*model.User) error {
	return m.Called(ctx, users).Error(0)
}

type MockChannelRepository struct {
	mock.Mock
}

func (m *MockChannelRepository) CreateWithAdmin(ctx context.Context, channel *model.Channel) error {
	return m.Called(ctx, channel).Error(0)
}

func (m *MockChannelRepository) GetByID(ctx context.Context, id uint64) (*model.Channel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Channel), args.Error(1)
}

func (m *MockChannelRepository) Search(ctx context.Context, query string, offset, limit int) ([]*model.Channel, error) {
	args := m.Called(ctx, query, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Channel), args.Error(1)
}

func (m *MockChannelRepository) ListByMember(ctx context.Context, userID uint64) ([]*model.Channel, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Channel), args.Error(1)
}

type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Join(ctx context.Context, channelID, userID uint64, joinedAt time.Time) (bool, error) {
	args := m.Called(ctx, channelID, userID, joinedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipRepository) IsMember(ctx context.Context, channelID, userID uint64) (bool, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipRepository) ListMembers(ctx context.Context, channelID uint64) ([]*model.Member, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Member), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Insert(ctx context.Context, msg *model.Message, loc *time.Location) error {
	return m.Called(ctx, msg, loc).Error(0)
}

func (m *MockMessageRepository) ListByChannel(ctx context.Context, channelID uint64, offset, limit int) ([]*model.MessageWithSender, error) {
	args := m.Called(ctx, channelID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MessageWithSender), args.Error(1)
}

func (m *MockMessageRepository) GetWithSender(ctx context.Context, id uint64) (*model.MessageWithSender, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageWithSender), args.Error(1)
}

// MockIDGenerator 依次返回 next, next+1, ...
type MockIDGenerator struct {
	next uint64
	err  error
}

func (g *MockIDGenerator) NextID() (uint64, error) {
	if g.err != nil {
		return 0, g.err
	}
	id := g.next
	g.next++
	return id, nil
}

// ============================================================================
// Redis Mock
// ============================================================================

type MockSessionManager struct {
	mock.Mock
}

func (m *MockSessionManager) CreateSession(ctx context.Context, userID uint64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockSessionManager) ValidateSession(ctx context.Context, token string) (uint64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockSessionManager) DestroySession(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockSessionManager) RefreshSession(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type MockLoginLimiter struct {
	mock.Mock
}

func (m *MockLoginLimiter) Check(ctx context.Context, username string) (redis.LoginStatus, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(redis.LoginStatus), args.Error(1)
}

func (m *MockLoginLimiter) RecordFailure(ctx context.Context, username string) (redis.LoginStatus, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(redis.LoginStatus), args.Error(1)
}

func (m *MockLoginLimiter) Reset(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func (m *MockLoginLimiter) Options() redis.LoginOptions {
	return redis.LoginOptions{MaxAttempts: 5, Window: 15 * time.Minute}
}

type MockUserCache struct {
	mock.Mock
}

func (m *MockUserCache) GetUser(ctx context.Context, id uint64) (*redis.CachedUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*redis.CachedUser), args.Error(1)
}

func (m *MockUserCache) SetUser(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserCache) DeleteUser(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserCache) SetNullCache(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

type MockRedisManager struct {
	mock.Mock
	session      *MockSessionManager
	loginLimiter *MockLoginLimiter
	userCache    *MockUserCache
}

func NewMockRedisManager() *MockRedisManager {
	return &MockRedisManager{
		session:      &MockSessionManager{},
		loginLimiter: &MockLoginLimiter{},
		userCache:    &MockUserCache{},
	}
}

func (m *MockRedisManager) GetClient() redis.Client {
	return nil
}

func (m *MockRedisManager) GetSession() redis.SessionManager {
	return m.session
}

func (m *MockRedisManager) GetLoginLimiter() redis.LoginLimiter {
	return m.loginLimiter
}

func (m *MockRedisManager) GetUserCache() redis.UserCache {
	return m.userCache
}

func (m *MockRedisManager) Close() error {
	return nil
}
