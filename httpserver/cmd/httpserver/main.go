package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"chat-group/httpserver/config"
	"chat-group/httpserver/internal/handler"
	"chat-group/httpserver/internal/realtime"
	"chat-group/httpserver/internal/router"
	"chat-group/httpserver/pkg/storage"
	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
)

var (
	configPath = flag.String("config", "config/config.yaml", "配置文件路径")
)

func main() {
	// 解析命令行参数
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("加载配置失败: " + err.Error())
	}

	// 2. 初始化日志
	logConfig := &log.Config{
		Level:    cfg.Log.Level,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
		Format:   cfg.Log.Format,
	}
	if err := log.Init(logConfig); err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	defer log.Sync()

	log.Info("HTTP Server 启动中...")
	log.Info("配置加载成功", zap.String("config_path", *configPath))

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. 连接 gRPC Server（建连是惰性的，首次调用时才真正拨号）
	grpcAddr := cfg.GRPC.GetAddr()
	conn, err := grpc.NewClient(
		grpcAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(chat.CodecName)),
	)
	if err != nil {
		log.Fatal("创建 gRPC 连接失败", zap.String("addr", grpcAddr), zap.Error(err))
	}
	log.Info("gRPC 连接已创建", zap.String("addr", grpcAddr))

	// 4. 创建 gRPC Client
	userClient := chat.NewUserServiceClient(conn)
	channelClient := chat.NewChannelServiceClient(conn)
	healthClient := healthpb.NewHealthClient(conn)

	// 5. 对象存储
	store, err := storage.NewLocalStore(cfg.Storage.Dir, cfg.Storage.URLPrefix)
	if err != nil {
		log.Fatal("初始化对象存储失败", zap.String("dir", cfg.Storage.Dir), zap.Error(err))
	}

	// 6. 房间广播：单实例用进程内 broker，多实例走 Redis Pub/Sub
	var (
		broker      realtime.Broker
		redisClient *goredis.Client
	)
	switch cfg.Realtime.Broker {
	case "redis":
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatal("连接 Redis 失败", zap.String("addr", cfg.Redis.GetAddr()), zap.Error(err))
		}
		broker = realtime.NewRedisBroker(redisClient)
	default:
		broker = realtime.NewLocalBroker()
	}
	log.Info("广播通道就绪", zap.String("broker", cfg.Realtime.Broker))

	// 7. 启动 Hub
	defaultLoc, err := cfg.Realtime.Location()
	if err != nil {
		log.Fatal("解析默认时区失败", zap.Error(err))
	}

	hub := realtime.NewHub(channelClient, broker, realtime.Options{
		MaxFrameBytes: cfg.Realtime.MaxFrameBytes,
		SendBuffer:    cfg.Realtime.SendBuffer,
		RateBurst:     cfg.Realtime.RateBurst,
		RateRefill:    cfg.Realtime.GetRateRefill(),
		RPCTimeout:    cfg.GRPC.GetTimeout(),
	})
	if err := hub.Start(); err != nil {
		log.Fatal("启动 Hub 失败", zap.Error(err))
	}

	// 8. 创建 Handler（依赖注入）
	timeout := cfg.GRPC.GetTimeout()
	handlers := &router.Handlers{
		User:    handler.NewUserHandler(userClient, store, cfg),
		Channel: handler.NewChannelHandler(channelClient, hub, timeout, defaultLoc),
		WS:      handler.NewWSHandler(userClient, hub, realtime.NewUpgrader(cfg.Realtime.AllowedOrigins), cfg.Cookie.Name, timeout, defaultLoc),
		Health:  handler.NewHealthHandler(healthClient, timeout),
	}
	log.Info("Handler 创建成功")

	// 9. 设置路由
	r := router.SetupRouter(cfg, handlers)
	log.Info("路由设置完成")

	// 10. 启动 HTTP Server（在 goroutine 中）
	addr := cfg.Server.GetHTTPAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("HTTP Server 启动成功",
			zap.String("addr", addr),
			zap.String("mode", cfg.Server.Mode))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("启动 HTTP Server 失败", zap.Error(err))
		}
	}()

	// 11. 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("收到退出信号，开始优雅关闭...")

	// 12. 优雅关闭：先停 HTTP，再断开 WebSocket，最后释放下游连接
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("HTTP Server 关闭超时", zap.Error(err))
	}
	if err := hub.Shutdown(cfg.Server.GetShutdownTimeout()); err != nil {
		log.Warn("Hub 关闭超时", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("关闭 Redis 连接失败", zap.Error(err))
		}
	}
	if err := conn.Close(); err != nil {
		log.Warn("关闭 gRPC 连接失败", zap.Error(err))
	}
	log.Info("HTTP Server 已关闭")
}
