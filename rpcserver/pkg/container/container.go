package container

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/dig"

	"chat-group/rpcserver/config"
	"chat-group/rpcserver/internal/repository"
	"chat-group/rpcserver/internal/rpchandler"
	"chat-group/rpcserver/internal/service"
	"chat-group/rpcserver/pkg/db"
	"chat-group/rpcserver/pkg/redis"
)

// Container 全局依赖注入容器
var Container *dig.Container

// Init 初始化依赖注入容器
func Init(cfg *config.Config) error {
	Container = dig.New()

	if err := Container.Provide(func() *config.Config { return cfg }); err != nil {
		return err
	}

	// 注册所有依赖
	return registerProviders()
}

// registerProviders 注册所有提供者（按依赖层次：基础设施 → Repository → Service → Handler）
func registerProviders() error {
	providers := []interface{}{
		// 基础设施
		func(cfg *config.Config) (*sqlx.DB, error) {
			return db.InitDB(cfg)
		},
		func(cfg *config.Config) (redis.Client, error) {
			return redis.InitRedis(cfg)
		},
		redis.LoginOptionsFromConfig,
		redis.NewManager,
		func(cfg *config.Config) (db.IDGenerator, error) {
			return db.NewSnowflake(cfg.Snowflake.MachineID)
		},
		chatOptions,

		// Repository
		repository.NewUserRepository,
		repository.NewChannelRepository,
		repository.NewMembershipRepository,
		repository.NewMessageRepository,

		// Service
		service.NewUserService,
		service.NewChannelService,

		// Handler
		rpchandler.NewUserServiceHandler,
		rpchandler.NewChannelServiceHandler,
	}

	for _, p := range providers {
		if err := Container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}

// chatOptions 业务参数来自配置
func chatOptions(cfg *config.Config) (service.ChatOptions, error) {
	loc, err := cfg.Chat.Location()
	if err != nil {
		return service.ChatOptions{}, err
	}
	return service.ChatOptions{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		DefaultPageSize:  cfg.Chat.DefaultPageSize,
		MaxPageSize:      cfg.Chat.MaxPageSize,
		Location:         loc,
	}, nil
}

// Invoke 调用函数，自动注入依赖
func Invoke(function interface{}) error {
	return Container.Invoke(function)
}
