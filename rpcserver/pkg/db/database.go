package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL 驱动
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL 驱动
	_ "github.com/mattn/go-sqlite3" // SQLite 驱动（本地开发、测试）
	"go.uber.org/zap"

	"chat-group/rpcserver/config"
	log "chat-group/pkg/logger"
)

// DriverName 配置里的驱动名归一化为 database/sql 注册名
func DriverName(driver string) (string, error) {
	switch driver {
	case "mysql":
		return "mysql", nil
	case "postgres", "pgsql":
		return "postgres", nil
	case "sqlite3", "sqlite":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("不支持的数据库驱动: %s", driver)
	}
}

// InitDB 初始化数据库连接（使用 sqlx）
func InitDB(cfg *config.Config) (*sqlx.DB, error) {
	log.Info("开始初始化数据库连接",
		zap.String("driver", cfg.Database.Driver),
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database),
	)

	driverName, err := DriverName(cfg.Database.Driver)
	if err != nil {
		log.Error("不支持的数据库驱动", zap.String("driver", cfg.Database.Driver))
		return nil, err
	}

	if driverName == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Database), 0755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}

	db, err := sqlx.Open(driverName, cfg.Database.GetDSN())
	if err != nil {
		log.Error("连接数据库失败", zap.Error(err), zap.String("driver", driverName))
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 连接池
	if driverName == "sqlite3" {
		// SQLite 只有一个写者
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		log.Error("数据库连接测试失败", zap.Error(err))
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	log.Info("数据库连接成功",
		zap.String("driver", driverName),
		zap.String("database", cfg.Database.Database),
	)

	return db, nil
}
