package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chat-group/httpserver/internal/middleware"
	"chat-group/httpserver/internal/realtime"
	"chat-group/httpserver/pkg/response"
	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
)

// Attacher 接管升级后的连接，由 realtime.Hub 实现
type Attacher interface {
	Attach(conn *websocket.Conn, user realtime.Identity, loc *time.Location, addr string) error
}

type WSHandler struct {
	users      chat.UserServiceClient
	hub        Attacher
	upgrader   *websocket.Upgrader
	cookieName string
	timeout    time.Duration
	defaultLoc *time.Location
}

func NewWSHandler(users chat.UserServiceClient, hub Attacher, upgrader *websocket.Upgrader, cookieName string, timeout time.Duration, defaultLoc *time.Location) *WSHandler {
	return &WSHandler{
		users:      users,
		hub:        hub,
		upgrader:   upgrader,
		cookieName: cookieName,
		timeout:    timeout,
		defaultLoc: defaultLoc,
	}
}

// Connect GET /ws?tz=<IANA>，握手前先确认登录状态
func (h *WSHandler) Connect(c *gin.Context) {
	token := middleware.ExtractToken(c, h.cookieName)
	if token == "" {
		response.Error(c, response.CodeUnauthorized, "请先登录")
		return
	}

	ctx, cancel := rpcContext(c, h.timeout, token)
	defer cancel()

	profile, err := h.users.GetProfile(ctx, &chat.GetProfileRequest{})
	if err != nil {
		rpcError(c, "GetProfile", err)
		return
	}
	if rpcFailed(c, profile.Code, profile.Message) {
		return
	}

	// Upgrade 失败时已写回错误响应
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	user := realtime.Identity{
		UserID: profile.User.ID,
		Name:   profile.User.Name,
		Token:  token,
	}
	loc := realtime.LoadLocation(c.Query("tz"), h.defaultLoc)
	if err := h.hub.Attach(conn, user, loc, c.ClientIP()); err != nil {
		log.Warn("Hub 拒绝连接", zap.Uint64("user_id", user.UserID), zap.Error(err))
	}
}
