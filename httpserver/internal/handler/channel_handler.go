package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-group/httpserver/internal/middleware"
	"chat-group/httpserver/internal/realtime"
	"chat-group/httpserver/pkg/response"
	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
)

type ChannelHandler struct {
	channels    chat.ChannelServiceClient
	broadcaster Broadcaster
	timeout     time.Duration
	defaultLoc  *time.Location
}

// NewChannelHandler defaultLoc 为请求未带 tz 时的渲染时区
func NewChannelHandler(channels chat.ChannelServiceClient, broadcaster Broadcaster, timeout time.Duration, defaultLoc *time.Location) *ChannelHandler {
	return &ChannelHandler{
		channels:    channels,
		broadcaster: broadcaster,
		timeout:     timeout,
		defaultLoc:  defaultLoc,
	}
}

type CreateChannelRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

type ChannelView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AdminID     string `json:"admin_id"`
	CreatedAt   int64  `json:"created_at"`
}

type MemberView struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture"`
	Initials       string `json:"initials"`
	JoinedAt       int64  `json:"joined_at"`
}

func toChannelView(ch *chat.Channel) *ChannelView {
	if ch == nil {
		return nil
	}
	return &ChannelView{
		ID:          formatID(ch.ID),
		Name:        ch.Name,
		Description: ch.Description,
		AdminID:     formatID(ch.AdminID),
		CreatedAt:   ch.CreatedAt,
	}
}

func toChannelViews(list []*chat.Channel) []*ChannelView {
	views := make([]*ChannelView, 0, len(list))
	for _, ch := range list {
		views = append(views, toChannelView(ch))
	}
	return views
}

func toMemberViews(list []*chat.Member) []*MemberView {
	views := make([]*MemberView, 0, len(list))
	for _, m := range list {
		views = append(views, &MemberView{
			UserID:         formatID(m.UserID),
			Name:           m.Name,
			ProfilePicture: m.ProfilePicture,
			Initials:       initials(m.Name),
			JoinedAt:       m.JoinedAt,
		})
	}
	return views
}

// CreateChannel 创建频道，创建者为管理员
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.CodeBadRequest, "请求参数错误")
		return
	}

	ctx, cancel := rpcContext(c, h.timeout, middleware.GetToken(c))
	defer cancel()

	resp, err := h.channels.CreateChannel(ctx, &chat.CreateChannelRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		rpcError(c, "CreateChannel", err)
		return
	}
	if rpcFailed(c, resp.Code, resp.Message) {
		return
	}

	response.Success(c, toChannelView(resp.Channel))
}

// SearchChannels 按名称或描述搜索，q 为空时列出全部
func (h *ChannelHandler) SearchChannels(c *gin.Context) {
	page, size := pageParams(c)

	ctx, cancel := rpcContext(c, h.timeout, middleware.GetToken(c))
	defer cancel()

	resp, err := h.channels.SearchChannels(ctx, &chat.SearchChannelsRequest{
		Query:    c.Query("q"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		rpcError(c, "SearchChannels", err)
		return
	}
	if rpcFailed(c, resp.Code, resp.Message) {
		return
	}

	response.Success(c, gin.H{
		"items":     toChannelViews(resp.Channels),
		"page":      page,
		"page_size": size,
		"has_more":  resp.HasMore,
	})
}

// ListMyChannels 已加入的频道
func (h *ChannelHandler) ListMyChannels(c *gin.Context) {
	ctx, cancel := rpcContext(c, h.timeout, middleware.GetToken(c))
	defer cancel()

	resp, err := h.channels.ListMyChannels(ctx, &chat.ListMyChannelsRequest{})
	if err != nil {
		rpcError(c, "ListMyChannels", err)
		return
	}
	if rpcFailed(c, resp.Code, resp.Message) {
		return
	}

	response.Success(c, gin.H{"items": toChannelViews(resp.Channels)})
}

// VisitChannel 进入频道，首次进入自动加入并通知房间
func (h *ChannelHandler) VisitChannel(c *gin.Context) {
	channelID, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := rpcContext(c, h.timeout, middleware.GetToken(c))
	defer cancel()

	resp, err := h.channels.VisitChannel(ctx, &chat.VisitChannelRequest{ChannelID: channelID})
	if err != nil {
		rpcError(c, "VisitChannel", err)
		return
	}
	if rpcFailed(c, resp.Code, resp.Message) {
		return
	}

	if resp.NewlyJoined && resp.Self != nil {
		if err := h.broadcaster.PublishMember(ctx, channelID, resp.Self, ""); err != nil {
			log.Error("广播新成员失败", zap.Uint64("channel_id", channelID), zap.Error(err))
		}
	}

	response.Success(c, gin.H{
		"channel":      toChannelView(resp.Channel),
		"members":      toMemberViews(resp.Members),
		"newly_joined": resp.NewlyJoined,
	})
}

// ListMessages 消息分页，最新的在前，时间按 tz 渲染
func (h *ChannelHandler) ListMessages(c *gin.Context) {
	channelID, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, size := pageParams(c)
	loc := realtime.LoadLocation(c.Query("tz"), h.defaultLoc)

	ctx, cancel := rpcContext(c, h.timeout, middleware.GetToken(c))
	defer cancel()

	resp, err := h.channels.ListMessages(ctx, &chat.ListMessagesRequest{
		ChannelID: channelID,
		Page:      page,
		PageSize:  size,
	})
	if err != nil {
		rpcError(c, "ListMessages", err)
		return
	}
	if rpcFailed(c, resp.Code, resp.Message) {
		return
	}

	items := make([]realtime.MessagePayload, 0, len(resp.Items))
	for _, m := range resp.Items {
		items = append(items, realtime.RenderMessage(m, loc))
	}

	response.Success(c, gin.H{
		"items":     items,
		"page":      page,
		"page_size": size,
		"has_more":  resp.HasMore,
	})
}

// SendMessage 发送消息并广播给房间内所有连接
func (h *ChannelHandler) SendMessage(c *gin.Context) {
	channelID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, response.CodeBadRequest, "请求参数错误")
		return
	}

	ctx, cancel := rpcContext(c, h.timeout, middleware.GetToken(c))
	defer cancel()

	resp, err := h.channels.SendMessage(ctx, &chat.SendMessageRequest{
		ChannelID: channelID,
		Text:      req.Message,
	})
	if err != nil {
		rpcError(c, "SendMessage", err)
		return
	}
	if rpcFailed(c, resp.Code, resp.Message) {
		return
	}

	// 消息已落库，广播失败只记录日志
	if err := h.broadcaster.PublishMessage(ctx, resp.Item, ""); err != nil {
		log.Error("广播消息失败",
			zap.Uint64("channel_id", channelID),
			zap.Uint64("message_id", resp.Item.ID),
			zap.Error(err))
	}

	loc := realtime.LoadLocation(c.Query("tz"), h.defaultLoc)
	response.Success(c, realtime.RenderMessage(resp.Item, loc))
}
