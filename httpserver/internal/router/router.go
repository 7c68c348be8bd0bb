package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chat-group/httpserver/config"
	"chat-group/httpserver/internal/handler"
	"chat-group/httpserver/internal/middleware"
)

// Handlers 路由依赖的全部 Handler
type Handlers struct {
	User    *handler.UserHandler
	Channel *handler.ChannelHandler
	WS      *handler.WSHandler
	Health  *handler.HealthHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h *Handlers) *gin.Engine {
	// 创建 Gin Engine（不使用默认中间件）
	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())                                     // Panic 恢复
	r.Use(middleware.RequestID())                             // 请求 ID
	r.Use(middleware.LoggerMiddleware())                      // 日志
	r.Use(middleware.Metrics())                               // Prometheus 指标
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)) // CORS
	r.Use(middleware.SecurityHeaders())                       // 安全响应头

	requireToken := middleware.RequireToken(cfg.Cookie.Name)

	// API 路由组
	api := r.Group("/api/v1", middleware.NoCache(), middleware.MaxBodySize(cfg.Server.MaxBodyBytes))
	{
		// 认证相关
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.User.Register)
			auth.POST("/login", h.User.Login)
			auth.POST("/logout", requireToken, h.User.Logout)
		}

		// 用户信息相关
		profile := api.Group("/profile", requireToken)
		{
			profile.GET("", h.User.GetProfile)
			profile.PATCH("", h.User.UpdateProfile)
			profile.PUT("/password", h.User.ChangePassword)
			profile.POST("/picture", h.User.UploadProfilePicture)
		}

		// 频道与消息
		channels := api.Group("/channels", requireToken)
		{
			channels.GET("", h.Channel.SearchChannels)
			channels.GET("/mine", h.Channel.ListMyChannels)
			channels.POST("", h.Channel.CreateChannel)
			channels.GET("/:id", h.Channel.VisitChannel)
			channels.GET("/:id/messages", h.Channel.ListMessages)
			channels.POST("/:id/messages", h.Channel.SendMessage)
		}
	}

	// 实时通道，鉴权在握手前完成
	r.GET("/ws", h.WS.Connect)

	// 运维
	r.GET("/health", h.Health.Check)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 头像等静态文件
	if cfg.Storage.Dir != "" {
		r.Static(cfg.Storage.URLPrefix, cfg.Storage.Dir)
	}

	return r
}
