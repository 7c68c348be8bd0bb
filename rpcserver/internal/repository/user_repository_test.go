package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-group/rpcserver/internal/model"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	seedUser(t, repo, 1, "alice")

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), byName.ID)
	assert.Equal(t, "alice@example.com", byName.Email)
	assert.True(t, baseTime.Equal(byName.CreatedAt))

	byID, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	seedUser(t, repo, 1, "alice")

	// 用户名重复
	err := repo.Create(context.Background(), &model.User{
		ID: 2, Username: "alice", Email: "other@example.com", Name: "x", PasswordHash: "h",
		CreatedAt: baseTime, UpdatedAt: baseTime,
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	// 邮箱重复
	err = repo.Create(context.Background(), &model.User{
		ID: 3, Username: "bob", Email: "alice@example.com", Name: "x", PasswordHash: "h",
		CreatedAt: baseTime, UpdatedAt: baseTime,
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_Exists(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()
	seedUser(t, repo, 1, "alice")
	seedUser(t, repo, 2, "bob")

	exists, err := repo.ExistsByUsernameOrEmail(ctx, "alice", "new@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByUsernameOrEmail(ctx, "carol", "bob@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByUsernameOrEmail(ctx, "carol", "carol@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	taken, err := repo.EmailTakenByOther(ctx, "alice@example.com", 1)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = repo.EmailTakenByOther(ctx, "alice@example.com", 2)
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestUserRepository_Updates(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()
	seedUser(t, repo, 1, "alice")
	seedUser(t, repo, 2, "bob")

	require.NoError(t, repo.UpdateProfile(ctx, 1, "Alice Liddell", "liddell@example.com"))
	require.NoError(t, repo.UpdatePassword(ctx, 1, "new-hash"))
	require.NoError(t, repo.UpdateProfilePicture(ctx, 1, "/uploads/avatars/1.png"))

	user, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", user.Name)
	assert.Equal(t, "liddell@example.com", user.Email)
	assert.Equal(t, "new-hash", user.PasswordHash)
	assert.Equal(t, "/uploads/avatars/1.png", user.ProfilePicture)
	assert.True(t, user.UpdatedAt.After(baseTime))

	// 邮箱被别人占用
	err = repo.UpdateProfile(ctx, 2, "Bob", "liddell@example.com")
	assert.ErrorIs(t, err, ErrDuplicate)

	// 用户不存在
	assert.ErrorIs(t, repo.UpdatePassword(ctx, 99, "x"), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateProfilePicture(ctx, 99, "x"), ErrNotFound)
}

func TestUserRepository_BatchCreate(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.BatchCreate(ctx, nil))

	users := []*model.User{
		{ID: 10, Username: "u10", Email: "u10@example.com", Name: "U10", PasswordHash: "h", CreatedAt: baseTime, UpdatedAt: baseTime},
		{ID: 11, Username: "u11", Email: "u11@example.com", Name: "U11", PasswordHash: "h", CreatedAt: baseTime, UpdatedAt: baseTime},
	}
	require.NoError(t, repo.BatchCreate(ctx, users))

	_, err := repo.GetByUsername(ctx, "u11")
	require.NoError(t, err)

	// 整批回滚
	dup := []*model.User{
		{ID: 12, Username: "u12", Email: "u12@example.com", Name: "U12", PasswordHash: "h", CreatedAt: baseTime, UpdatedAt: baseTime},
		{ID: 13, Username: "u10", Email: "u13@example.com", Name: "U13", PasswordHash: "h", CreatedAt: baseTime, UpdatedAt: baseTime},
	}
	assert.ErrorIs(t, repo.BatchCreate(ctx, dup), ErrDuplicate)

	_, err = repo.GetByUsername(ctx, "u12")
	assert.ErrorIs(t, err, ErrNotFound)
}
