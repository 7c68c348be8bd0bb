package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	log "chat-group/pkg/logger"
	"chat-group/rpcserver/config"
	"chat-group/rpcserver/internal/repository"
	"chat-group/rpcserver/internal/seed"
	"chat-group/rpcserver/pkg/db"
	"chat-group/rpcserver/pkg/redis"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	users := flag.Int("users", 100, "生成用户数")
	batchSize := flag.Int("batch", 1000, "每批插入数量")
	workers := flag.Int("workers", 4, "并发 worker 数量")
	channels := flag.Int("channels", 5, "生成频道数")
	messages := flag.Int("messages", 50, "每个频道的消息数")
	sessions := flag.Int("sessions", 0, "为前 N 个用户创建 Session 并写入 tokens 文件（压测用）")
	tokenFile := flag.String("tokens", "tokens.txt", "Token 输出文件")
	flag.Parse()

	// 1. 加载配置、初始化日志
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("加载配置失败: " + err.Error())
	}
	if err := log.Init(&log.Config{Level: cfg.Log.Level, Output: "stdout", Format: cfg.Log.Format}); err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	defer log.Sync()

	loc, err := cfg.Chat.Location()
	if err != nil {
		log.Fatal("解析时区失败", zap.Error(err))
	}

	// 2. 连接数据库
	database, err := db.InitDB(cfg)
	if err != nil {
		log.Fatal("连接数据库失败", zap.Error(err))
	}
	defer database.Close()

	idGen, err := db.NewSnowflake(cfg.Snowflake.MachineID)
	if err != nil {
		log.Fatal("创建ID生成器失败", zap.Error(err))
	}

	seeder, err := seed.NewSeeder(
		repository.NewUserRepository(database),
		repository.NewChannelRepository(database),
		repository.NewMembershipRepository(database),
		repository.NewMessageRepository(database),
		idGen, loc, bcrypt.DefaultCost,
	)
	if err != nil {
		log.Fatal("创建数据生成器失败", zap.Error(err))
	}

	ctx := context.Background()
	start := time.Now()

	// 3. 用户
	progress := seed.NewProgress(*users, os.Stdout)
	userIDs, err := seeder.SeedUsers(ctx, seed.Options{Users: *users, BatchSize: *batchSize, Workers: *workers}, progress)
	fmt.Println()
	if err != nil {
		log.Fatal("生成用户失败", zap.Error(err))
	}
	log.Info("用户生成完成", zap.Int("count", len(userIDs)), zap.Duration("elapsed", time.Since(start)))

	// 4. 频道与消息：消息时间从若干天前开始，间隔三小时，覆盖日期分隔
	created, err := seeder.SeedChannels(ctx, userIDs, *channels)
	if err != nil {
		log.Fatal("生成频道失败", zap.Error(err))
	}
	gap := 3 * time.Hour
	for _, c := range created {
		from := time.Now().Add(-time.Duration(*messages) * gap)
		if err := seeder.SeedMessages(ctx, c.ID, userIDs, *messages, from, gap); err != nil {
			log.Fatal("生成消息失败", zap.Uint64("channel_id", c.ID), zap.Error(err))
		}
	}
	log.Info("频道与消息生成完成", zap.Int("channels", len(created)), zap.Int("messages_per_channel", *messages))

	// 5. 压测 Session
	if *sessions > 0 {
		createTokens(ctx, cfg, userIDs[:min(*sessions, len(userIDs))], *workers, *tokenFile)
	}

	fmt.Println("=============================================================================")
	fmt.Printf("数据生成完成，用时 %.2f 秒\n", time.Since(start).Seconds())
	fmt.Printf("测试账号: %s ... %s  密码: %s\n", seed.Username(1), seed.Username(len(userIDs)), seed.DefaultPassword)
	fmt.Println("=============================================================================")
}

func createTokens(ctx context.Context, cfg *config.Config, userIDs []uint64, parallel int, path string) {
	client, err := redis.InitRedis(cfg)
	if err != nil {
		log.Fatal("连接 Redis 失败", zap.Error(err))
	}
	manager := redis.NewManager(client, redis.LoginOptionsFromConfig(cfg))
	defer manager.Close()

	tokens, failed := seed.CreateSessions(ctx, manager.GetSession(), userIDs, parallel)

	f, err := os.Create(path)
	if err != nil {
		log.Fatal("创建 Token 文件失败", zap.Error(err))
	}
	defer f.Close()
	if err := seed.WriteTokens(f, tokens); err != nil {
		log.Fatal("写入 Token 文件失败", zap.Error(err))
	}

	log.Info("Session 创建完成",
		zap.Int("success", len(tokens)),
		zap.Int64("failed", failed),
		zap.String("file", path),
		zap.Duration("ttl", redis.SessionTTL))
}
