package realtime

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"chat-group/httpserver/pkg/metrics"
	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client 一个 WebSocket 连接
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	user    Identity
	loc     *time.Location
	addr    string
	limiter *rate.Limiter

	// 以下字段由 hub.mutex 保护
	room   uint64
	closed bool
}

// ID 连接 ID（ULID）
func (c *Client) ID() string {
	return c.id
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Warn("关闭连接失败", zap.String("client_id", c.id), zap.Error(err))
		}
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.limiter.Allow() {
			metrics.RateLimitHits.WithLabelValues("ws").Inc()
			c.reply(errorFrame("发送过于频繁，请稍后再试"))
			continue
		}

		if !c.handleFrame(raw) {
			return
		}
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Warn("消息超过大小限制", zap.String("client_id", c.id), zap.Int64("limit", c.hub.opts.MaxFrameBytes))
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.Debug("客户端断开", zap.String("client_id", c.id), zap.Error(err))
	default:
		log.Warn("读取 WebSocket 消息失败", zap.String("client_id", c.id), zap.Error(err))
	}
}

// handleFrame 处理一条客户端消息，返回 false 时断开连接
func (c *Client) handleFrame(raw []byte) bool {
	in, err := parseFrame(raw)
	if err != nil {
		metrics.WSFramesReceived.WithLabelValues("invalid").Inc()
		c.reply(errorFrame(err.Error()))
		return true
	}
	metrics.WSFramesReceived.WithLabelValues(in.Event).Inc()

	switch in.Event {
	case EventJoinRoom:
		return c.joinRoom(in.ChannelID)
	case EventResetRoom:
		c.hub.leaveRoom(c)
		c.replyEvent(EventRoomLeft, nil)
		return true
	case EventNewMessage:
		return c.sendMessage(in.Text)
	}
	return true
}

// joinRoom 进入频道（首次进入即加入频道），新成员通知房间内其他人
func (c *Client) joinRoom(channelID uint64) bool {
	ctx, cancel := c.rpcContext()
	defer cancel()

	resp, err := c.hub.channels.VisitChannel(ctx, &chat.VisitChannelRequest{ChannelID: channelID})
	if err != nil {
		return c.handleRPCError("VisitChannel", err)
	}
	if resp.Code != chat.CodeSuccess {
		c.reply(errorFrame(resp.Message))
		return true
	}

	if !c.hub.joinRoom(c, channelID) {
		return false
	}
	c.replyEvent(EventRoomJoined, map[string]string{"channel_id": formatID(channelID)})

	if resp.NewlyJoined && resp.Self != nil {
		if err := c.hub.PublishMember(ctx, channelID, resp.Self, c.id); err != nil {
			log.Error("广播新成员失败", zap.Uint64("channel_id", channelID), zap.Error(err))
		}
	}
	return true
}

// sendMessage 持久化后回执给发送者，再广播给房间内其他连接
func (c *Client) sendMessage(text string) bool {
	channelID := c.hub.currentRoom(c)
	if channelID == 0 {
		c.reply(errorFrame("请先进入频道"))
		return true
	}

	ctx, cancel := c.rpcContext()
	defer cancel()

	resp, err := c.hub.channels.SendMessage(ctx, &chat.SendMessageRequest{
		ChannelID: channelID,
		Text:      text,
	})
	if err != nil {
		return c.handleRPCError("SendMessage", err)
	}
	if resp.Code != chat.CodeSuccess || resp.Item == nil {
		c.reply(errorFrame(resp.Message))
		return true
	}

	c.replyEvent(EventMessageSent, RenderMessage(resp.Item, c.loc))
	if err := c.hub.PublishMessage(ctx, resp.Item, c.id); err != nil {
		log.Error("广播消息失败",
			zap.Uint64("channel_id", channelID),
			zap.Uint64("message_id", resp.Item.ID),
			zap.Error(err))
	}
	return true
}

// handleRPCError 会话失效时断开连接，其他错误只提示
func (c *Client) handleRPCError(method string, err error) bool {
	if status.Code(err) == codes.Unauthenticated {
		log.Info("会话失效，断开 WebSocket", zap.String("client_id", c.id), zap.String("method", method))
		c.reply(errorFrame("登录已失效，请重新登录"))
		return false
	}
	log.Error("RPC调用失败", zap.String("method", method), zap.String("client_id", c.id), zap.Error(err))
	c.reply(errorFrame("服务暂时不可用"))
	return true
}

func (c *Client) rpcContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.hub.ctx, c.hub.opts.RPCTimeout)
	return metadata.AppendToOutgoingContext(ctx, "authorization", c.user.Token), cancel
}

func (c *Client) replyEvent(event string, data interface{}) {
	payload, err := encodeFrame(event, data)
	if err != nil {
		log.Error("编码消息失败", zap.String("event", event), zap.Error(err))
		return
	}
	c.reply(payload)
}

// reply 只发给自己
func (c *Client) reply(payload []byte) {
	if !c.hub.safeSend(c, payload) {
		c.hub.removeFailedClients([]*Client{c})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 每帧一个事件，前端按帧解析
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				if !isExpectedCloseError(err) {
					log.Warn("写入 WebSocket 消息失败", zap.String("client_id", c.id), zap.Error(err))
				}
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// isExpectedCloseError 连接关闭过程中的正常错误
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close sent") ||
		strings.Contains(msg, "broken pipe")
}
