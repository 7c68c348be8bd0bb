package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-group/rpcserver/internal/model"
)

// MembershipRepository 频道成员仓储接口
type MembershipRepository interface {
	// Join 加入频道，已是成员时返回 false（幂等）
	Join(ctx context.Context, channelID, userID uint64, joinedAt time.Time) (bool, error)

	// IsMember 是否为频道成员
	IsMember(ctx context.Context, channelID, userID uint64) (bool, error)

	// ListMembers 频道成员，最近加入的在前
	ListMembers(ctx context.Context, channelID uint64) ([]*model.Member, error)
}

type membershipRepository struct {
	db *sqlx.DB
}

// NewMembershipRepository 创建成员仓储实例
func NewMembershipRepository(db *sqlx.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Join(ctx context.Context, channelID, userID uint64, joinedAt time.Time) (bool, error) {
	query := r.db.Rebind(`INSERT INTO memberships (channel_id, user_id, joined_at) VALUES (?, ?, ?)`)

	if _, err := r.db.ExecContext(ctx, query, channelID, userID, joinedAt); err != nil {
		err = dbError(err, "join channel")
		if err == ErrDuplicate {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *membershipRepository) IsMember(ctx context.Context, channelID, userID uint64) (bool, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(1) FROM memberships WHERE channel_id = ? AND user_id = ?`)

	if err := r.db.GetContext(ctx, &count, query, channelID, userID); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return count > 0, nil
}

func (r *membershipRepository) ListMembers(ctx context.Context, channelID uint64) ([]*model.Member, error) {
	var members []*model.Member
	query := r.db.Rebind(`SELECT m.user_id, u.name, u.profile_picture, m.joined_at
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = ?
		ORDER BY m.joined_at DESC, m.user_id DESC`)

	if err := r.db.SelectContext(ctx, &members, query, channelID); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
