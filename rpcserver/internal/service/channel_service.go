package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	log "chat-group/pkg/logger"
	"chat-group/rpcserver/internal/dto"
	"chat-group/rpcserver/internal/model"
	"chat-group/rpcserver/internal/repository"
	"chat-group/rpcserver/pkg/db"
	"chat-group/rpcserver/pkg/metrics"
)

// ChatOptions 频道与消息的业务参数
type ChatOptions struct {
	MaxMessageLength int
	DefaultPageSize  int
	MaxPageSize      int
	// Location 判断“新的一天”所用的时区
	Location *time.Location
}

// ============================================================================
// ChannelService 接口
// ============================================================================

type ChannelService interface {
	// Create 创建频道，创建者成为管理员和第一个成员
	Create(ctx context.Context, createDTO *dto.CreateChannelDTO) (*dto.ChannelDTO, error)

	// Search 搜索频道
	Search(ctx context.Context, searchDTO *dto.SearchChannelsDTO) (*dto.ChannelPageDTO, error)

	// ListMine 我加入的频道
	ListMine(ctx context.Context, userID uint64) ([]*dto.ChannelDTO, error)

	// Visit 访问频道，不是成员时自动加入
	Visit(ctx context.Context, visitDTO *dto.VisitChannelDTO) (*dto.VisitResultDTO, error)

	// SendMessage 发送消息
	SendMessage(ctx context.Context, sendDTO *dto.SendMessageDTO) (*dto.MessageDTO, error)

	// ListMessages 消息分页，最新的在前
	ListMessages(ctx context.Context, listDTO *dto.ListMessagesDTO) (*dto.MessagePageDTO, error)
}

type channelService struct {
	channelRepo    repository.ChannelRepository
	membershipRepo repository.MembershipRepository
	messageRepo    repository.MessageRepository
	idGen          db.IDGenerator
	opts           ChatOptions
}

// NewChannelService 创建ChannelService实例
func NewChannelService(
	channelRepo repository.ChannelRepository,
	membershipRepo repository.MembershipRepository,
	messageRepo repository.MessageRepository,
	idGen db.IDGenerator,
	opts ChatOptions,
) ChannelService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &channelService{
		channelRepo:    channelRepo,
		membershipRepo: membershipRepo,
		messageRepo:    messageRepo,
		idGen:          idGen,
		opts:           opts,
	}
}

func nowMilli() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ============================================================================
// 频道
// ============================================================================

func (s *channelService) Create(ctx context.Context, createDTO *dto.CreateChannelDTO) (*dto.ChannelDTO, error) {
	if err := createDTO.Validate(); err != nil {
		log.Warn("创建频道参数验证失败", zap.Error(err), zap.Uint64("user_id", createDTO.UserID))
		return nil, err
	}

	id, err := s.idGen.NextID()
	if err != nil {
		return nil, fmt.Errorf("生成频道ID失败: %w", err)
	}

	channel := &model.Channel{
		ID:          id,
		Name:        createDTO.Name,
		Description: createDTO.Description,
		AdminID:     createDTO.UserID,
		CreatedAt:   nowMilli(),
	}
	if err := s.channelRepo.CreateWithAdmin(ctx, channel); err != nil {
		if errors.Is(err, repository.ErrReference) {
			return nil, ErrUserNotFound
		}
		log.Error("创建频道失败", zap.Error(err), zap.Uint64("user_id", createDTO.UserID))
		return nil, fmt.Errorf("创建频道失败: %w", err)
	}

	metrics.ChannelsCreated.Inc()
	log.Info("创建频道成功",
		zap.Uint64("channel_id", channel.ID),
		zap.String("name", channel.Name),
		zap.Uint64("admin_id", channel.AdminID))
	return dto.ChannelFromModel(channel), nil
}

func (s *channelService) Search(ctx context.Context, searchDTO *dto.SearchChannelsDTO) (*dto.ChannelPageDTO, error) {
	searchDTO.Normalize(s.opts.DefaultPageSize, s.opts.MaxPageSize)
	query := strings.TrimSpace(searchDTO.Query)

	// 多取一条判断是否还有下一页
	channels, err := s.channelRepo.Search(ctx, query, searchDTO.Offset(), searchDTO.PageSize+1)
	if err != nil {
		log.Error("搜索频道失败", zap.Error(err), zap.String("query", query))
		return nil, fmt.Errorf("搜索频道失败: %w", err)
	}

	hasMore := len(channels) > searchDTO.PageSize
	if hasMore {
		channels = channels[:searchDTO.PageSize]
	}
	return &dto.ChannelPageDTO{Channels: dto.ChannelsFromModel(channels), HasMore: hasMore}, nil
}

func (s *channelService) ListMine(ctx context.Context, userID uint64) ([]*dto.ChannelDTO, error) {
	if userID == 0 {
		return nil, dto.ErrUserIDInvalid
	}

	channels, err := s.channelRepo.ListByMember(ctx, userID)
	if err != nil {
		log.Error("查询我的频道失败", zap.Error(err), zap.Uint64("user_id", userID))
		return nil, fmt.Errorf("查询我的频道失败: %w", err)
	}
	return dto.ChannelsFromModel(channels), nil
}

func (s *channelService) Visit(ctx context.Context, visitDTO *dto.VisitChannelDTO) (*dto.VisitResultDTO, error) {
	if err := visitDTO.Validate(); err != nil {
		return nil, err
	}

	// 1. 频道必须存在
	channel, err := s.getChannel(ctx, visitDTO.ChannelID)
	if err != nil {
		return nil, err
	}

	// 2. 首次访问自动加入
	joined, err := s.membershipRepo.Join(ctx, visitDTO.ChannelID, visitDTO.UserID, nowMilli())
	if err != nil {
		if errors.Is(err, repository.ErrReference) {
			return nil, ErrChannelNotFound
		}
		log.Error("加入频道失败", zap.Error(err),
			zap.Uint64("channel_id", visitDTO.ChannelID), zap.Uint64("user_id", visitDTO.UserID))
		return nil, fmt.Errorf("加入频道失败: %w", err)
	}

	// 3. 成员列表
	members, err := s.membershipRepo.ListMembers(ctx, visitDTO.ChannelID)
	if err != nil {
		log.Error("查询成员失败", zap.Error(err), zap.Uint64("channel_id", visitDTO.ChannelID))
		return nil, fmt.Errorf("查询成员失败: %w", err)
	}

	result := &dto.VisitResultDTO{
		Channel:     dto.ChannelFromModel(channel),
		Members:     dto.MembersFromModel(members),
		NewlyJoined: joined,
	}
	for _, m := range result.Members {
		if m.UserID == visitDTO.UserID {
			result.Self = m
			break
		}
	}

	if joined {
		metrics.MembersJoined.Inc()
		log.Info("新成员加入频道",
			zap.Uint64("channel_id", visitDTO.ChannelID),
			zap.Uint64("user_id", visitDTO.UserID))
	}
	return result, nil
}

// ============================================================================
// 消息
// ============================================================================

func (s *channelService) SendMessage(ctx context.Context, sendDTO *dto.SendMessageDTO) (*dto.MessageDTO, error) {
	// 1. 验证DTO
	if err := sendDTO.Validate(s.opts.MaxMessageLength); err != nil {
		return nil, err
	}

	// 2. 频道存在且发送者是成员
	if err := s.checkMember(ctx, sendDTO.ChannelID, sendDTO.UserID); err != nil {
		return nil, err
	}

	// 3. 写库（事务内计算 StartOfDay）
	id, err := s.idGen.NextID()
	if err != nil {
		return nil, fmt.Errorf("生成消息ID失败: %w", err)
	}
	msg := &model.Message{
		ID:        id,
		ChannelID: sendDTO.ChannelID,
		UserID:    sendDTO.UserID,
		Text:      sendDTO.Text,
		CreatedAt: nowMilli(),
	}
	if err := s.messageRepo.Insert(ctx, msg, s.opts.Location); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrChannelNotFound
		case errors.Is(err, repository.ErrReference):
			return nil, ErrUserNotFound
		}
		log.Error("写入消息失败", zap.Error(err), zap.Uint64("channel_id", msg.ChannelID))
		return nil, fmt.Errorf("写入消息失败: %w", err)
	}

	// 4. 带上发送者信息返回
	stored, err := s.messageRepo.GetWithSender(ctx, msg.ID)
	if err != nil {
		log.Error("读取消息失败", zap.Error(err), zap.Uint64("message_id", msg.ID))
		return nil, fmt.Errorf("读取消息失败: %w", err)
	}

	metrics.MessagesStored.WithLabelValues(strconv.FormatBool(msg.StartOfDay)).Inc()
	log.Debug("消息已保存",
		zap.Uint64("message_id", msg.ID),
		zap.Uint64("channel_id", msg.ChannelID),
		zap.Bool("start_of_day", msg.StartOfDay))
	return dto.MessageFromModel(stored), nil
}

func (s *channelService) ListMessages(ctx context.Context, listDTO *dto.ListMessagesDTO) (*dto.MessagePageDTO, error) {
	if err := listDTO.Validate(); err != nil {
		return nil, err
	}
	listDTO.Normalize(s.opts.DefaultPageSize, s.opts.MaxPageSize)

	if err := s.checkMember(ctx, listDTO.ChannelID, listDTO.UserID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListByChannel(ctx, listDTO.ChannelID, listDTO.Offset(), listDTO.PageSize+1)
	if err != nil {
		log.Error("查询消息失败", zap.Error(err), zap.Uint64("channel_id", listDTO.ChannelID))
		return nil, fmt.Errorf("查询消息失败: %w", err)
	}

	hasMore := len(messages) > listDTO.PageSize
	if hasMore {
		messages = messages[:listDTO.PageSize]
	}
	return &dto.MessagePageDTO{Items: dto.MessagesFromModel(messages), HasMore: hasMore}, nil
}

// ============================================================================
// 辅助方法
// ============================================================================

func (s *channelService) getChannel(ctx context.Context, channelID uint64) (*model.Channel, error) {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		log.Error("查询频道失败", zap.Error(err), zap.Uint64("channel_id", channelID))
		return nil, fmt.Errorf("查询频道失败: %w", err)
	}
	return channel, nil
}

func (s *channelService) checkMember(ctx context.Context, channelID, userID uint64) error {
	if _, err := s.getChannel(ctx, channelID); err != nil {
		return err
	}

	isMember, err := s.membershipRepo.IsMember(ctx, channelID, userID)
	if err != nil {
		return fmt.Errorf("查询成员关系失败: %w", err)
	}
	if !isMember {
		return ErrNotMember
	}
	return nil
}
