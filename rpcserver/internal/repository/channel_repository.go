package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"chat-group/rpcserver/internal/model"
)

// ChannelRepository 频道仓储接口
type ChannelRepository interface {
	// CreateWithAdmin 创建频道，创建者同时成为第一个成员
	CreateWithAdmin(ctx context.Context, channel *model.Channel) error

	// GetByID 根据ID查询频道
	GetByID(ctx context.Context, id uint64) (*model.Channel, error)

	// Search 按名称或描述模糊查询（不区分大小写），新建的在前
	Search(ctx context.Context, query string, offset, limit int) ([]*model.Channel, error)

	// ListByMember 用户加入的频道，最近加入的在前
	ListByMember(ctx context.Context, userID uint64) ([]*model.Channel, error)
}

const channelColumns = `c.id, c.name, c.description, c.admin_id, c.created_at`

type channelRepository struct {
	db *sqlx.DB
}

// NewChannelRepository 创建频道仓储实例
func NewChannelRepository(db *sqlx.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) CreateWithAdmin(ctx context.Context, channel *model.Channel) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO channels (id, name, description, admin_id, created_at) VALUES (?, ?, ?, ?, ?)`),
		channel.ID, channel.Name, channel.Description, channel.AdminID, channel.CreatedAt,
	)
	if err != nil {
		return dbError(err, "create channel")
	}

	_, err = tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO memberships (channel_id, user_id, joined_at) VALUES (?, ?, ?)`),
		channel.ID, channel.AdminID, channel.CreatedAt,
	)
	if err != nil {
		return dbError(err, "add admin membership")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *channelRepository) GetByID(ctx context.Context, id uint64) (*model.Channel, error) {
	var channel model.Channel
	query := r.db.Rebind(`SELECT ` + channelColumns + ` FROM channels c WHERE c.id = ?`)

	if err := r.db.GetContext(ctx, &channel, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get channel by id: %w", err)
	}
	return &channel, nil
}

func (r *channelRepository) Search(ctx context.Context, query string, offset, limit int) ([]*model.Channel, error) {
	channels := make([]*model.Channel, 0, limit)

	var err error
	if query == "" {
		err = r.db.SelectContext(ctx, &channels, r.db.Rebind(
			`SELECT `+channelColumns+` FROM channels c
			 ORDER BY c.created_at DESC, c.id DESC LIMIT ? OFFSET ?`),
			limit, offset)
	} else {
		pattern := likePattern(query)
		err = r.db.SelectContext(ctx, &channels, r.db.Rebind(
			`SELECT `+channelColumns+` FROM channels c
			 WHERE LOWER(c.name) LIKE ? ESCAPE '!' OR LOWER(c.description) LIKE ? ESCAPE '!'
			 ORDER BY c.created_at DESC, c.id DESC LIMIT ? OFFSET ?`),
			pattern, pattern, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search channels: %w", err)
	}
	return channels, nil
}

func (r *channelRepository) ListByMember(ctx context.Context, userID uint64) ([]*model.Channel, error) {
	var channels []*model.Channel
	query := r.db.Rebind(`SELECT ` + channelColumns + ` FROM channels c
		JOIN memberships m ON m.channel_id = c.id
		WHERE m.user_id = ?
		ORDER BY m.joined_at DESC, c.id DESC`)

	if err := r.db.SelectContext(ctx, &channels, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list channels by member: %w", err)
	}
	return channels, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likePattern 子串匹配模式，'!' 作为转义符（各驱动写法一致）
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
}
