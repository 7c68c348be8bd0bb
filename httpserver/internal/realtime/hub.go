package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"chat-group/httpserver/pkg/metrics"
	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
)

var ErrHubClosed = errors.New("Hub 已关闭")

// Options 连接参数
type Options struct {
	MaxFrameBytes int64
	SendBuffer    int
	RateBurst     int
	RateRefill    time.Duration
	RPCTimeout    time.Duration
}

func (o *Options) applyDefaults() {
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = 8 * 1024
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 5
	}
	if o.RateRefill <= 0 {
		o.RateRefill = time.Second
	}
	if o.RPCTimeout <= 0 {
		o.RPCTimeout = 3 * time.Second
	}
}

// frameLimiter 每个连接一个令牌桶：RateRefill 内补满 RateBurst 个
func (o *Options) frameLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(o.RateRefill/time.Duration(o.RateBurst)), o.RateBurst)
}

// Identity 连接所属用户，握手前由网关通过 GetProfile 确认
type Identity struct {
	UserID uint64
	Name   string
	Token  string
}

// Hub 管理所有连接和房间
// clients/rooms/Client.room/Client.closed 都由 mutex 保护
type Hub struct {
	clients    map[*Client]struct{}
	rooms      map[uint64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	started    bool

	channels chat.ChannelServiceClient
	broker   Broker
	opts     Options
	render   func(*Envelope, *time.Location) ([]byte, error)
}

// NewHub 创建 Hub，Start 之后才处理连接
func NewHub(channels chat.ChannelServiceClient, broker Broker, opts Options) *Hub {
	opts.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[uint64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		channels:   channels,
		broker:     broker,
		opts:       opts,
		render:     renderEnvelope,
	}
}

// Start 订阅房间事件并启动事件循环
func (h *Hub) Start() error {
	if err := h.broker.Subscribe(h.ctx, h.deliver); err != nil {
		return err
	}
	h.mutex.Lock()
	h.started = true
	h.mutex.Unlock()
	go h.Run()
	return nil
}

// Run 事件循环：注册、注销
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mutex.Unlock()
			metrics.WSConnections.Inc()

			log.Info("WebSocket 连接建立",
				zap.String("client_id", client.id),
				zap.Uint64("user_id", client.user.UserID),
				zap.String("addr", client.addr),
				zap.Int("total", count))

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			if h.remove(client) {
				log.Info("WebSocket 连接断开",
					zap.String("client_id", client.id),
					zap.Uint64("user_id", client.user.UserID))
			}
		}
	}
}

// Attach 把已升级的连接交给 Hub
func (h *Hub) Attach(conn *websocket.Conn, user Identity, loc *time.Location, addr string) error {
	if loc == nil {
		loc = time.UTC
	}
	conn.SetReadLimit(h.opts.MaxFrameBytes)
	client := &Client{
		id:      ulid.Make().String(),
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, h.opts.SendBuffer),
		user:    user,
		loc:     loc,
		addr:    addr,
		limiter: h.opts.frameLimiter(),
	}

	select {
	case h.register <- client:
		return nil
	case <-h.ctx.Done():
		_ = conn.Close()
		return ErrHubClosed
	}
}

// ============================================================================
// 房间
// ============================================================================

// joinRoom 切换到新房间（先离开旧房间）
func (h *Hub) joinRoom(c *Client, channelID uint64) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[c]; !ok || c.closed {
		return false
	}
	h.leaveLocked(c)

	room, ok := h.rooms[channelID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[channelID] = room
	}
	room[c] = struct{}{}
	c.room = channelID
	metrics.WSRooms.Set(float64(len(h.rooms)))
	return true
}

func (h *Hub) leaveRoom(c *Client) {
	h.mutex.Lock()
	h.leaveLocked(c)
	metrics.WSRooms.Set(float64(len(h.rooms)))
	h.mutex.Unlock()
}

func (h *Hub) leaveLocked(c *Client) {
	if c.room == 0 {
		return
	}
	if room, ok := h.rooms[c.room]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = 0
}

func (h *Hub) currentRoom(c *Client) uint64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return c.room
}

// RoomSize 房间内连接数
func (h *Hub) RoomSize(channelID uint64) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[channelID])
}

// ClientCount 连接总数
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ============================================================================
// 广播
// ============================================================================

// PublishMessage 广播新消息，exclude 为空时房间内所有连接都会收到
func (h *Hub) PublishMessage(ctx context.Context, msg *chat.ChatMessage, exclude string) error {
	return h.broker.Publish(ctx, &Envelope{
		ChannelID: msg.ChannelID,
		Event:     EventNewMessage,
		Exclude:   exclude,
		Message:   msg,
	})
}

// PublishMember 广播新成员加入
func (h *Hub) PublishMember(ctx context.Context, channelID uint64, member *chat.Member, exclude string) error {
	return h.broker.Publish(ctx, &Envelope{
		ChannelID: channelID,
		Event:     EventNewMember,
		Exclude:   exclude,
		Member:    member,
	})
}

// deliver Broker 回调：投递给本实例房间内的连接
func (h *Hub) deliver(env *Envelope) {
	targets := h.roomSnapshot(env.ChannelID)
	if len(targets) == 0 {
		return
	}

	// 同一时区只编码一次
	rendered := make(map[*time.Location][]byte)
	broken := make(map[*time.Location]bool)
	var failed []*Client

	for _, c := range targets {
		if env.Exclude != "" && c.id == env.Exclude {
			continue
		}
		if broken[c.loc] {
			continue
		}
		payload, ok := rendered[c.loc]
		if !ok {
			var err error
			payload, err = h.render(env, c.loc)
			if err != nil {
				// 只跳过该时区的连接，其余连接照常投递
				broken[c.loc] = true
				log.Error("渲染房间事件失败", zap.String("event", env.Event), zap.Error(err))
				continue
			}
			rendered[c.loc] = payload
		}
		if !h.safeSend(c, payload) {
			failed = append(failed, c)
			continue
		}
		metrics.WSEventsDelivered.WithLabelValues(env.Event).Inc()
	}

	h.removeFailedClients(failed)
}

func renderEnvelope(env *Envelope, loc *time.Location) ([]byte, error) {
	switch env.Event {
	case EventNewMessage:
		if env.Message == nil {
			return nil, errors.New("消息为空")
		}
		return encodeFrame(EventNewMessage, RenderMessage(env.Message, loc))
	case EventNewMember:
		if env.Member == nil {
			return nil, errors.New("成员为空")
		}
		return encodeFrame(EventNewMember, RenderMember(env.Member))
	default:
		return nil, ErrUnknownEvent
	}
}

func (h *Hub) roomSnapshot(channelID uint64) []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	room := h.rooms[channelID]
	clients := make([]*Client, 0, len(room))
	for c := range room {
		clients = append(clients, c)
	}
	return clients
}

// safeSend 非阻塞写入发送队列，队列满或连接已关闭返回 false
func (h *Hub) safeSend(c *Client, payload []byte) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, ok := h.clients[c]; !ok || c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// removeFailedClients 丢弃消费过慢的连接
func (h *Hub) removeFailedClients(clients []*Client) {
	for _, c := range clients {
		if h.remove(c) {
			metrics.WSDroppedClients.Inc()
			log.Warn("发送队列已满，断开连接",
				zap.String("client_id", c.id),
				zap.Uint64("user_id", c.user.UserID))
		}
	}
}

// remove 从 Hub 中移除并关闭发送队列，writePump 随后关闭连接
func (h *Hub) remove(c *Client) bool {
	h.mutex.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mutex.Unlock()
		return false
	}
	delete(h.clients, c)
	h.leaveLocked(c)
	c.closed = true
	metrics.WSRooms.Set(float64(len(h.rooms)))
	h.mutex.Unlock()

	close(c.send)
	metrics.WSConnections.Dec()
	return true
}

// shutdownClients 关闭所有连接
func (h *Hub) shutdownClients() {
	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mutex.RUnlock()

	for _, c := range clients {
		h.remove(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Warn("关闭连接失败", zap.String("client_id", c.id), zap.Error(err))
		}
	}
	log.Info("已关闭所有 WebSocket 连接", zap.Int("count", len(clients)))
}

// Shutdown 停止 Hub，等待所有连接协程退出或超时
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Info("开始关闭 Hub...")
	h.cancel()

	// 未启动或启动失败时事件循环不存在，done 永远不会关闭
	h.mutex.RLock()
	started := h.started
	h.mutex.RUnlock()
	if started {
		<-h.done
	}

	if err := h.broker.Close(); err != nil {
		log.Warn("关闭 Broker 失败", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Hub 已关闭")
		return nil
	case <-time.After(timeout):
		log.Warn("Hub 关闭超时，部分连接协程仍在运行")
		return context.DeadlineExceeded
	}
}
