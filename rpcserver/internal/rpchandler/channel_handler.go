package rpchandler

import (
	"context"

	"go.uber.org/zap"

	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
	"chat-group/rpcserver/internal/dto"
	"chat-group/rpcserver/internal/service"
)

// ChannelServiceHandler 频道与消息
type ChannelServiceHandler struct {
	channelService service.ChannelService
}

func NewChannelServiceHandler(channelService service.ChannelService) *ChannelServiceHandler {
	return &ChannelServiceHandler{channelService: channelService}
}

// ============================================================================
// CreateChannel 创建频道
// ============================================================================

func (h *ChannelServiceHandler) CreateChannel(ctx context.Context, req *chat.CreateChannelRequest) (*chat.CreateChannelResponse, error) {
	userID, ok := currentUser(ctx)
	if !ok {
		return &chat.CreateChannelResponse{Code: chat.CodeUnauthorized, Message: msgUnauthorized}, nil
	}

	channel, err := h.channelService.Create(ctx, dto.FromProtoCreateChannelRequest(req, userID))
	if err != nil {
		code, message := mapServiceError(err)
		log.Warn("创建频道失败",
			zap.Uint64("user_id", userID),
			zap.String("name", req.Name),
			zap.Int32("code", code),
			zap.Error(err))
		return &chat.CreateChannelResponse{Code: code, Message: message}, nil
	}

	log.Info("创建频道成功", zap.Uint64("channel_id", channel.ID), zap.Uint64("admin_id", userID))
	return &chat.CreateChannelResponse{Code: chat.CodeSuccess, Message: "创建成功", Channel: channel.ToProto()}, nil
}

// ============================================================================
// SearchChannels 搜索频道
// ============================================================================

func (h *ChannelServiceHandler) SearchChannels(ctx context.Context, req *chat.SearchChannelsRequest) (*chat.SearchChannelsResponse, error) {
	if _, ok := currentUser(ctx); !ok {
		return &chat.SearchChannelsResponse{Code: chat.CodeUnauthorized, Message: msgUnauthorized}, nil
	}

	page, err := h.channelService.Search(ctx, dto.FromProtoSearchChannelsRequest(req))
	if err != nil {
		code, message := mapServiceError(err)
		log.Warn("搜索频道失败", zap.String("query", req.Query), zap.Error(err))
		return &chat.SearchChannelsResponse{Code: code, Message: message, Channels: []*chat.Channel{}}, nil
	}

	return &chat.SearchChannelsResponse{
		Code:     chat.CodeSuccess,
		Message:  "获取成功",
		Channels: dto.ChannelsToProto(page.Channels),
		HasMore:  page.HasMore,
	}, nil
}

// ============================================================================
// ListMyChannels 我加入的频道
// ============================================================================

func (h *ChannelServiceHandler) ListMyChannels(ctx context.Context, _ *chat.ListMyChannelsRequest) (*chat.ListMyChannelsResponse, error) {
	userID, ok := currentUser(ctx)
	if !ok {
		return &chat.ListMyChannelsResponse{Code: chat.CodeUnauthorized, Message: msgUnauthorized}, nil
	}

	channels, err := h.channelService.ListMine(ctx, userID)
	if err != nil {
		code, message := mapServiceError(err)
		log.Warn("获取我的频道失败", zap.Uint64("user_id", userID), zap.Error(err))
		return &chat.ListMyChannelsResponse{Code: code, Message: message, Channels: []*chat.Channel{}}, nil
	}

	return &chat.ListMyChannelsResponse{
		Code:     chat.CodeSuccess,
		Message:  "获取成功",
		Channels: dto.ChannelsToProto(channels),
	}, nil
}

// ============================================================================
// VisitChannel 访问频道
// ============================================================================

func (h *ChannelServiceHandler) VisitChannel(ctx context.Context, req *chat.VisitChannelRequest) (*chat.VisitChannelResponse, error) {
	userID, ok := currentUser(ctx)
	if !ok {
		return &chat.VisitChannelResponse{Code: chat.CodeUnauthorized, Message: msgUnauthorized}, nil
	}

	result, err := h.channelService.Visit(ctx, dto.FromProtoVisitChannelRequest(req, userID))
	if err != nil {
		code, message := mapServiceError(err)
		log.Warn("访问频道失败",
			zap.Uint64("user_id", userID),
			zap.Uint64("channel_id", req.ChannelID),
			zap.Int32("code", code),
			zap.Error(err))
		return &chat.VisitChannelResponse{Code: code, Message: message, Members: []*chat.Member{}}, nil
	}

	if result.NewlyJoined {
		log.Info("用户加入频道", zap.Uint64("user_id", userID), zap.Uint64("channel_id", req.ChannelID))
	}
	return &chat.VisitChannelResponse{
		Code:        chat.CodeSuccess,
		Message:     "获取成功",
		Channel:     result.Channel.ToProto(),
		Members:     dto.MembersToProto(result.Members),
		Self:        result.Self.ToProto(),
		NewlyJoined: result.NewlyJoined,
	}, nil
}

// ============================================================================
// SendMessage 发送消息
// ============================================================================

func (h *ChannelServiceHandler) SendMessage(ctx context.Context, req *chat.SendMessageRequest) (*chat.SendMessageResponse, error) {
	userID, ok := currentUser(ctx)
	if !ok {
		return &chat.SendMessageResponse{Code: chat.CodeUnauthorized, Message: msgUnauthorized}, nil
	}

	msg, err := h.channelService.SendMessage(ctx, dto.FromProtoSendMessageRequest(req, userID))
	if err != nil {
		code, message := mapServiceError(err)
		log.Warn("发送消息失败",
			zap.Uint64("user_id", userID),
			zap.Uint64("channel_id", req.ChannelID),
			zap.Int32("code", code),
			zap.Error(err))
		return &chat.SendMessageResponse{Code: code, Message: message}, nil
	}

	log.Debug("发送消息成功", zap.Uint64("message_id", msg.ID), zap.Uint64("channel_id", msg.ChannelID))
	return &chat.SendMessageResponse{Code: chat.CodeSuccess, Message: "发送成功", Item: msg.ToProto()}, nil
}

// ============================================================================
// ListMessages 消息分页
// ============================================================================

func (h *ChannelServiceHandler) ListMessages(ctx context.Context, req *chat.ListMessagesRequest) (*chat.ListMessagesResponse, error) {
	userID, ok := currentUser(ctx)
	if !ok {
		return &chat.ListMessagesResponse{Code: chat.CodeUnauthorized, Message: msgUnauthorized}, nil
	}

	page, err := h.channelService.ListMessages(ctx, dto.FromProtoListMessagesRequest(req, userID))
	if err != nil {
		code, message := mapServiceError(err)
		log.Warn("获取消息失败",
			zap.Uint64("user_id", userID),
			zap.Uint64("channel_id", req.ChannelID),
			zap.Error(err))
		return &chat.ListMessagesResponse{Code: code, Message: message, Items: []*chat.ChatMessage{}}, nil
	}

	return &chat.ListMessagesResponse{
		Code:    chat.CodeSuccess,
		Message: "获取成功",
		Items:   dto.MessagesToProto(page.Items),
		HasMore: page.HasMore,
	}, nil
}
