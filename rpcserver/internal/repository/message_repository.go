package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"chat-group/rpcserver/internal/model"
)

// MessageRepository 消息仓储接口
type MessageRepository interface {
	// Insert 写入消息，在同一事务内根据频道上一条消息计算 StartOfDay
	Insert(ctx context.Context, msg *model.Message, loc *time.Location) error

	// ListByChannel 频道消息，最新的在前
	ListByChannel(ctx context.Context, channelID uint64, offset, limit int) ([]*model.MessageWithSender, error)

	// GetWithSender 按ID查询消息及发送者
	GetWithSender(ctx context.Context, id uint64) (*model.MessageWithSender, error)
}

const messageWithSenderColumns = `m.id, m.channel_id, m.user_id, m.text, m.created_at, m.start_of_day,
	u.name AS sender_name, u.profile_picture AS sender_profile_picture`

type messageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository 创建消息仓储实例
func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Insert(ctx context.Context, msg *model.Message, loc *time.Location) error {
	// sqlite 通过 _txlock=immediate 在 BEGIN 时拿写锁
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// 1. 锁住频道行，串行化同频道的写入
	if err := lockChannel(ctx, tx, msg.ChannelID); err != nil {
		return err
	}

	// 2. 上一条消息的时间
	var prev *time.Time
	var last time.Time
	err = tx.GetContext(ctx, &last, tx.Rebind(
		`SELECT created_at FROM messages WHERE channel_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`),
		msg.ChannelID)
	switch {
	case err == nil:
		prev = &last
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("failed to get latest message: %w", err)
	}

	// 3. 计算 StartOfDay 并写入
	msg.StartOfDay = model.StartsNewDay(prev, msg.CreatedAt, loc)

	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO messages (id, channel_id, user_id, text, created_at, start_of_day) VALUES (?, ?, ?, ?, ?, ?)`),
		msg.ID, msg.ChannelID, msg.UserID, msg.Text, msg.CreatedAt, msg.StartOfDay)
	if err != nil {
		return dbError(err, "insert message")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// lockChannel 行锁；sqlite 没有 FOR UPDATE，只校验频道存在
func lockChannel(ctx context.Context, tx *sqlx.Tx, channelID uint64) error {
	query := `SELECT id FROM channels WHERE id = ?`
	if tx.DriverName() != "sqlite3" {
		query += ` FOR UPDATE`
	}

	var id uint64
	if err := tx.GetContext(ctx, &id, tx.Rebind(query), channelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to lock channel: %w", err)
	}
	return nil
}

func (r *messageRepository) ListByChannel(ctx context.Context, channelID uint64, offset, limit int) ([]*model.MessageWithSender, error) {
	messages := make([]*model.MessageWithSender, 0, limit)
	query := r.db.Rebind(`SELECT ` + messageWithSenderColumns + `
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ? OFFSET ?`)

	if err := r.db.SelectContext(ctx, &messages, query, channelID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (r *messageRepository) GetWithSender(ctx context.Context, id uint64) (*model.MessageWithSender, error) {
	var msg model.MessageWithSender
	query := r.db.Rebind(`SELECT ` + messageWithSenderColumns + `
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.id = ?`)

	if err := r.db.GetContext(ctx, &msg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}
