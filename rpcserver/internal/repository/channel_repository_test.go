package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-group/rpcserver/internal/model"
)

func TestChannelRepository_CreateWithAdmin(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	channels := NewChannelRepository(conn)
	members := NewMembershipRepository(conn)
	ctx := context.Background()

	seedUser(t, users, 1, "alice")
	seedChannel(t, channels, 100, 1, "General", baseTime)

	got, err := channels.GetByID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "General", got.Name)
	assert.Equal(t, uint64(1), got.AdminID)

	isMember, err := members.IsMember(ctx, 100, 1)
	require.NoError(t, err)
	assert.True(t, isMember)

	_, err = channels.GetByID(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	// 管理员不存在
	err = channels.CreateWithAdmin(ctx, &model.Channel{ID: 101, Name: "x", AdminID: 9, CreatedAt: baseTime})
	assert.ErrorIs(t, err, ErrReference)
	_, err = channels.GetByID(ctx, 101)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChannelRepository_Search(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	channels := NewChannelRepository(conn)
	ctx := context.Background()

	seedUser(t, users, 1, "alice")
	seedChannel(t, channels, 100, 1, "Golang", baseTime)
	seedChannel(t, channels, 101, 1, "Random", baseTime.Add(time.Minute))
	seedChannel(t, channels, 102, 1, "100% Go", baseTime.Add(2*time.Minute))

	tests := []struct {
		name  string
		query string
		want  []uint64
	}{
		{"空关键字列出全部", "", []uint64{102, 101, 100}},
		{"不区分大小写", "GO", []uint64{102, 100}},
		{"匹配描述", "about random", []uint64{101}},
		{"百分号按字面匹配", "0%", []uint64{102}},
		{"无结果", "rust", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := channels.Search(ctx, tt.query, 0, 10)
			require.NoError(t, err)

			var ids []uint64
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	page, err := channels.Search(ctx, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(101), page[0].ID)
}

func TestChannelRepository_ListByMember(t *testing.T) {
	conn := newTestDB(t)
	users := NewUserRepository(conn)
	channels := NewChannelRepository(conn)
	members := NewMembershipRepository(conn)
	ctx := context.Background()

	seedUser(t, users, 1, "alice")
	seedUser(t, users, 2, "bob")
	seedChannel(t, channels, 100, 1, "first", baseTime)
	seedChannel(t, channels, 101, 1, "second", baseTime)
	seedChannel(t, channels, 102, 2, "bob's", baseTime)

	_, err := members.Join(ctx, 101, 2, baseTime.Add(time.Hour))
	require.NoError(t, err)
	_, err = members.Join(ctx, 100, 2, baseTime.Add(2*time.Hour))
	require.NoError(t, err)

	got, err := channels.ListByMember(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(100), got[0].ID)
	assert.Equal(t, uint64(101), got[1].ID)
	assert.Equal(t, uint64(102), got[2].ID)

	none, err := channels.ListByMember(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}
