package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	log "chat-group/pkg/logger"
)

// ============================================================================
// 建表语句（每种驱动一份，逐条执行）
// ============================================================================

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              BIGINT UNSIGNED NOT NULL PRIMARY KEY,
		username        VARCHAR(50)  NOT NULL,
		email           VARCHAR(255) NOT NULL,
		name            VARCHAR(100) NOT NULL,
		password_hash   VARCHAR(255) NOT NULL,
		profile_picture VARCHAR(512) NOT NULL DEFAULT '',
		created_at      DATETIME(3)  NOT NULL,
		updated_at      DATETIME(3)  NOT NULL,
		UNIQUE KEY uk_users_username (username),
		UNIQUE KEY uk_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS channels (
		id          BIGINT UNSIGNED NOT NULL PRIMARY KEY,
		name        VARCHAR(100) NOT NULL,
		description VARCHAR(512) NOT NULL DEFAULT '',
		admin_id    BIGINT UNSIGNED NOT NULL,
		created_at  DATETIME(3)  NOT NULL,
		KEY idx_channels_created_at (created_at),
		CONSTRAINT fk_channels_admin FOREIGN KEY (admin_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS memberships (
		channel_id BIGINT UNSIGNED NOT NULL,
		user_id    BIGINT UNSIGNED NOT NULL,
		joined_at  DATETIME(3) NOT NULL,
		PRIMARY KEY (channel_id, user_id),
		KEY idx_memberships_user (user_id),
		CONSTRAINT fk_memberships_channel FOREIGN KEY (channel_id) REFERENCES channels (id),
		CONSTRAINT fk_memberships_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS messages (
		id           BIGINT UNSIGNED NOT NULL PRIMARY KEY,
		channel_id   BIGINT UNSIGNED NOT NULL,
		user_id      BIGINT UNSIGNED NOT NULL,
		text         TEXT        NOT NULL,
		created_at   DATETIME(3) NOT NULL,
		start_of_day TINYINT(1)  NOT NULL DEFAULT 0,
		KEY idx_messages_channel_created (channel_id, created_at),
		CONSTRAINT fk_messages_channel FOREIGN KEY (channel_id) REFERENCES channels (id),
		CONSTRAINT fk_messages_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              BIGINT PRIMARY KEY,
		username        VARCHAR(50)  NOT NULL,
		email           VARCHAR(255) NOT NULL,
		name            VARCHAR(100) NOT NULL,
		password_hash   VARCHAR(255) NOT NULL,
		profile_picture VARCHAR(512) NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ  NOT NULL,
		updated_at      TIMESTAMPTZ  NOT NULL,
		CONSTRAINT uk_users_username UNIQUE (username),
		CONSTRAINT uk_users_email UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS channels (
		id          BIGINT PRIMARY KEY,
		name        VARCHAR(100) NOT NULL,
		description VARCHAR(512) NOT NULL DEFAULT '',
		admin_id    BIGINT NOT NULL REFERENCES users (id),
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_created_at ON channels (created_at)`,
	`CREATE TABLE IF NOT EXISTS memberships (
		channel_id BIGINT NOT NULL REFERENCES channels (id),
		user_id    BIGINT NOT NULL REFERENCES users (id),
		joined_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (channel_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships (user_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id           BIGINT PRIMARY KEY,
		channel_id   BIGINT NOT NULL REFERENCES channels (id),
		user_id      BIGINT NOT NULL REFERENCES users (id),
		text         TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		start_of_day BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_channel_created ON messages (channel_id, created_at)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              INTEGER PRIMARY KEY,
		username        TEXT NOT NULL UNIQUE,
		email           TEXT NOT NULL UNIQUE,
		name            TEXT NOT NULL,
		password_hash   TEXT NOT NULL,
		profile_picture TEXT NOT NULL DEFAULT '',
		created_at      DATETIME NOT NULL,
		updated_at      DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS channels (
		id          INTEGER PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		admin_id    INTEGER NOT NULL REFERENCES users (id),
		created_at  DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_channels_created_at ON channels (created_at)`,
	`CREATE TABLE IF NOT EXISTS memberships (
		channel_id INTEGER NOT NULL REFERENCES channels (id),
		user_id    INTEGER NOT NULL REFERENCES users (id),
		joined_at  DATETIME NOT NULL,
		PRIMARY KEY (channel_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memberships_user ON memberships (user_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id           INTEGER PRIMARY KEY,
		channel_id   INTEGER NOT NULL REFERENCES channels (id),
		user_id      INTEGER NOT NULL REFERENCES users (id),
		text         TEXT NOT NULL,
		created_at   DATETIME NOT NULL,
		start_of_day BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_channel_created ON messages (channel_id, created_at)`,
}

// Migrate 按驱动建表（幂等）
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var stmts []string
	switch db.DriverName() {
	case "mysql":
		stmts = mysqlSchema
	case "postgres":
		stmts = postgresSchema
	case "sqlite3":
		stmts = sqliteSchema
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", db.DriverName())
	}

	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Error("建表失败", zap.Int("index", i), zap.Error(err))
			return fmt.Errorf("执行建表语句失败: %w", err)
		}
	}

	log.Info("数据库表结构已就绪", zap.String("driver", db.DriverName()), zap.Int("statements", len(stmts)))
	return nil
}
