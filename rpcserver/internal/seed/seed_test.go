package seed

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	log "chat-group/pkg/logger"
	"chat-group/rpcserver/config"
	"chat-group/rpcserver/internal/repository"
	"chat-group/rpcserver/pkg/db"
)

func TestMain(m *testing.M) {
	if err := log.Init(&log.Config{Level: "fatal", Output: "stdout"}); err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	os.Exit(m.Run())
}

func newSeeder(t *testing.T, loc *time.Location) (*Seeder, repository.MessageRepository, repository.ChannelRepository) {
	t.Helper()

	cfg := &config.Config{Database: config.DatabaseConfig{
		Driver:      "sqlite3",
		Database:    filepath.Join(t.TempDir(), "seed.db"),
		AutoMigrate: true,
	}}
	database, err := db.InitDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	gen, err := db.NewSnowflake(1)
	require.NoError(t, err)

	messages := repository.NewMessageRepository(database)
	channels := repository.NewChannelRepository(database)
	s, err := NewSeeder(
		repository.NewUserRepository(database),
		channels,
		repository.NewMembershipRepository(database),
		messages,
		gen, loc, bcrypt.MinCost,
	)
	require.NoError(t, err)
	return s, messages, channels
}

func TestSeedUsers(t *testing.T) {
	s, _, _ := newSeeder(t, time.UTC)
	progress := NewProgress(25, nil)

	ids, err := s.SeedUsers(context.Background(), Options{Users: 25, BatchSize: 10, Workers: 3}, progress)

	require.NoError(t, err)
	assert.Len(t, ids, 25)
	assert.Equal(t, 25, progress.Done())

	user, err := s.users.GetByUsername(context.Background(), Username(25))
	require.NoError(t, err)
	assert.Equal(t, ids[24], user.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(DefaultPassword)))
}

// TestSeedUsersTwice 用户名冲突时返回错误
func TestSeedUsersTwice(t *testing.T) {
	s, _, _ := newSeeder(t, time.UTC)
	opts := Options{Users: 3, BatchSize: 3, Workers: 1}

	_, err := s.SeedUsers(context.Background(), opts, NewProgress(3, nil))
	require.NoError(t, err)

	_, err = s.SeedUsers(context.Background(), opts, NewProgress(3, nil))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestSeedChannelsAndMessages(t *testing.T) {
	sgt, err := time.LoadLocation("Asia/Singapore")
	require.NoError(t, err)
	s, messages, channels := newSeeder(t, sgt)
	ctx := context.Background()

	ids, err := s.SeedUsers(ctx, Options{Users: 3, BatchSize: 2, Workers: 2}, NewProgress(3, nil))
	require.NoError(t, err)

	created, err := s.SeedChannels(ctx, ids, 2)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, ids[1], created[1].AdminID)

	mine, err := channels.ListByMember(ctx, ids[2])
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	// 新加坡时间 23:00 开始，每 40 分钟一条：23:00, 23:40, 00:20(次日)
	start := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	require.NoError(t, s.SeedMessages(ctx, created[0].ID, ids, 3, start, 40*time.Minute))

	items, err := messages.ListByChannel(ctx, created[0].ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	// 最新的在前
	assert.True(t, items[0].StartOfDay)
	assert.False(t, items[1].StartOfDay)
	assert.True(t, items[2].StartOfDay)
}

type fakeSessions struct {
	mock.Mock
}

func (f *fakeSessions) CreateSession(ctx context.Context, userID uint64) (string, error) {
	args := f.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (f *fakeSessions) ValidateSession(context.Context, string) (uint64, error) { return 0, nil }
func (f *fakeSessions) DestroySession(context.Context, string) error           { return nil }
func (f *fakeSessions) RefreshSession(context.Context, string) error           { return nil }

func TestCreateSessionsAndWriteTokens(t *testing.T) {
	sessions := new(fakeSessions)
	sessions.On("CreateSession", mock.Anything, uint64(11)).Return("tok-11", nil)
	sessions.On("CreateSession", mock.Anything, uint64(12)).Return("", errors.New("redis down"))
	sessions.On("CreateSession", mock.Anything, uint64(13)).Return("tok-13", nil)

	tokens, failed := CreateSessions(context.Background(), sessions, []uint64{11, 12, 13}, 2)

	assert.Equal(t, int64(1), failed)
	assert.Equal(t, []TokenResult{
		{Username: Username(1), Token: "tok-11"},
		{Username: Username(3), Token: "tok-13"},
	}, tokens)

	var buf bytes.Buffer
	require.NoError(t, WriteTokens(&buf, tokens))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "user00000003 tok-13", lines[2])
}
