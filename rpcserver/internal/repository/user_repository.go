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

// UserRepository 用户仓储接口
type UserRepository interface {
	// GetByUsername 根据用户名查询用户（用于登录）
	GetByUsername(ctx context.Context, username string) (*model.User, error)

	// GetByID 根据ID查询用户
	GetByID(ctx context.Context, id uint64) (*model.User, error)

	// ExistsByUsernameOrEmail 用户名或邮箱是否已被占用
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// EmailTakenByOther 邮箱是否被其他用户占用
	EmailTakenByOther(ctx context.Context, email string, userID uint64) (bool, error)

	// Create 创建用户
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile 更新姓名和邮箱
	UpdateProfile(ctx context.Context, id uint64, name, email string) error

	// UpdatePassword 更新密码哈希
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error

	// UpdateProfilePicture 更新用户头像
	UpdateProfilePicture(ctx context.Context, id uint64, profilePicture string) error

	// BatchCreate 批量创建用户（用于生成演示数据）
	BatchCreate(ctx context.Context, users []*model.User) error
}

const userColumns = `id, username, email, name, password_hash, profile_picture, created_at, updated_at`

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository 创建用户仓储实例
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE username = ?`)

	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)

	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(1) FROM users WHERE username = ? OR email = ?`)

	if err := r.db.GetContext(ctx, &count, query, username, email); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) EmailTakenByOther(ctx context.Context, email string, userID uint64) (bool, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(1) FROM users WHERE email = ? AND id <> ?`)

	if err := r.db.GetContext(ctx, &count, query, email, userID); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := r.db.Rebind(`INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.Name, user.PasswordHash,
		user.ProfilePicture, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "create user")
	}

	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uint64, name, email string) error {
	query := r.db.Rebind(`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`)
	return r.update(ctx, "profile", query, name, email, now(), id)
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	query := r.db.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`)
	return r.update(ctx, "password", query, passwordHash, now(), id)
}

func (r *userRepository) UpdateProfilePicture(ctx context.Context, id uint64, profilePicture string) error {
	query := r.db.Rebind(`UPDATE users SET profile_picture = ?, updated_at = ? WHERE id = ?`)
	return r.update(ctx, "profile picture", query, profilePicture, now(), id)
}

// update 执行单行更新，0 行受影响视为用户不存在
func (r *userRepository) update(ctx context.Context, what, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return dbError(err, "update "+what)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *userRepository) BatchCreate(ctx context.Context, users []*model.User) error {
	if len(users) == 0 {
		return nil
	}

	// 使用事务批量插入
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, user := range users {
		_, err := stmt.ExecContext(ctx,
			user.ID, user.Username, user.Email, user.Name, user.PasswordHash,
			user.ProfilePicture, user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			return dbError(err, "insert user "+user.Username)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// now 当前 UTC 时间，截断到毫秒（MySQL DATETIME(3)）
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
