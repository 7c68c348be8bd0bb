package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
	"chat-group/rpcserver/config"
	"chat-group/rpcserver/internal/middleware"
	"chat-group/rpcserver/internal/rpchandler"
	"chat-group/rpcserver/pkg/container"
	"chat-group/rpcserver/pkg/redis"
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

	log.Info("RPC Server 启动中...")
	log.Info("配置加载成功", zap.String("config_path", *configPath))

	// 3. 初始化依赖注入容器
	if err := container.Init(cfg); err != nil {
		log.Fatal("初始化容器失败", zap.Error(err))
	}

	// 4. 从容器获取依赖
	var (
		database       *sqlx.DB
		redisManager   redis.Manager
		userHandler    *rpchandler.UserServiceHandler
		channelHandler *rpchandler.ChannelServiceHandler
	)
	if err := container.Invoke(func(
		d *sqlx.DB,
		rm redis.Manager,
		uh *rpchandler.UserServiceHandler,
		ch *rpchandler.ChannelServiceHandler,
	) {
		database, redisManager = d, rm
		userHandler, channelHandler = uh, ch
	}); err != nil {
		log.Fatal("解析依赖失败", zap.Error(err))
	}
	log.Info("依赖注入容器初始化成功")

	// 5. 创建 gRPC Server，注册拦截器链
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.RecoveryInterceptor(),                      // 第1层：Panic 恢复（最外层）
			middleware.LoggingInterceptor(),                       // 第2层：日志记录
			middleware.MetricsInterceptor(),                       // 第3层：Prometheus 指标
			middleware.AuthInterceptor(redisManager.GetSession()), // 第4层：鉴权验证（最内层）
		),
	)

	// 6. 注册 gRPC 服务
	chat.RegisterUserServiceServer(grpcServer, userHandler)
	chat.RegisterChannelServiceServer(grpcServer, channelHandler)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	log.Info("gRPC 服务注册成功", zap.Strings("services", []string{"UserService", "ChannelService", "Health"}))

	// 7. 指标端口
	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info("Metrics 端口已启动", zap.String("addr", cfg.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics 端口异常退出", zap.Error(err))
			}
		}()
	}

	// 8. 监听端口
	addr := cfg.Server.GetTCPAddr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("监听失败", zap.String("addr", addr), zap.Error(err))
	}

	// 9. 启动 gRPC Server
	go func() {
		log.Info("RPC Server 启动成功",
			zap.String("addr", addr),
			zap.String("mode", cfg.Server.Mode),
		)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("启动 gRPC Server 失败", zap.Error(err))
		}
	}()

	// 10. 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("收到退出信号，开始优雅关闭...")

	// 11. 优雅关闭：先停止接收请求，再释放连接
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(ctx)
		cancel()
	}
	if err := redisManager.Close(); err != nil {
		log.Warn("关闭 Redis 连接失败", zap.Error(err))
	}
	if err := database.Close(); err != nil {
		log.Warn("关闭数据库连接失败", zap.Error(err))
	}
	log.Info("RPC Server 已关闭")
}
