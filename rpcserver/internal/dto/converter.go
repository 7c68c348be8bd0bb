package dto

import (
	"time"

	"chat-group/proto/chat"
	"chat-group/rpcserver/internal/model"
	"chat-group/rpcserver/pkg/redis"
)

// ============================================================================
// Proto → DTO (gRPC 请求 → Service 层)
// ============================================================================

func FromProtoRegisterRequest(req *chat.RegisterRequest) *RegisterDTO {
	return &RegisterDTO{
		Username:        req.Username,
		Email:           req.Email,
		Name:            req.Name,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}
}

func FromProtoLoginRequest(req *chat.LoginRequest) *LoginDTO {
	return &LoginDTO{
		Username: req.Username,
		Password: req.Password,
	}
}

func FromProtoUpdateProfileRequest(req *chat.UpdateProfileRequest, userID uint64) *UpdateProfileDTO {
	return &UpdateProfileDTO{
		UserID: userID,
		Name:   req.Name,
		Email:  req.Email,
	}
}

func FromProtoChangePasswordRequest(req *chat.ChangePasswordRequest, userID uint64) *ChangePasswordDTO {
	return &ChangePasswordDTO{
		UserID:          userID,
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	}
}

func FromProtoUpdateProfilePictureRequest(req *chat.UpdateProfilePictureRequest, userID uint64) *UpdateProfilePictureDTO {
	return &UpdateProfilePictureDTO{
		UserID:         userID,
		ProfilePicture: req.ProfilePicture,
	}
}

func FromProtoCreateChannelRequest(req *chat.CreateChannelRequest, userID uint64) *CreateChannelDTO {
	return &CreateChannelDTO{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	}
}

func FromProtoSearchChannelsRequest(req *chat.SearchChannelsRequest) *SearchChannelsDTO {
	return &SearchChannelsDTO{
		Query:  req.Query,
		Paging: Paging{Page: int(req.Page), PageSize: int(req.PageSize)},
	}
}

func FromProtoVisitChannelRequest(req *chat.VisitChannelRequest, userID uint64) *VisitChannelDTO {
	return &VisitChannelDTO{UserID: userID, ChannelID: req.ChannelID}
}

func FromProtoSendMessageRequest(req *chat.SendMessageRequest, userID uint64) *SendMessageDTO {
	return &SendMessageDTO{UserID: userID, ChannelID: req.ChannelID, Text: req.Text}
}

func FromProtoListMessagesRequest(req *chat.ListMessagesRequest, userID uint64) *ListMessagesDTO {
	return &ListMessagesDTO{
		UserID:    userID,
		ChannelID: req.ChannelID,
		Paging:    Paging{Page: int(req.Page), PageSize: int(req.PageSize)},
	}
}

// ============================================================================
// DTO → Proto (Service 层 → gRPC 响应)，时间统一为 Unix 毫秒
// ============================================================================

func (p *UserProfileDTO) ToProto() *chat.UserProfile {
	if p == nil {
		return nil
	}
	return &chat.UserProfile{
		ID:             p.ID,
		Username:       p.Username,
		Email:          p.Email,
		Name:           p.Name,
		ProfilePicture: p.ProfilePicture,
		CreatedAt:      p.CreatedAt.UnixMilli(),
	}
}

func (c *ChannelDTO) ToProto() *chat.Channel {
	if c == nil {
		return nil
	}
	return &chat.Channel{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		AdminID:     c.AdminID,
		CreatedAt:   c.CreatedAt.UnixMilli(),
	}
}

func (m *MemberDTO) ToProto() *chat.Member {
	if m == nil {
		return nil
	}
	return &chat.Member{
		UserID:         m.UserID,
		Name:           m.Name,
		ProfilePicture: m.ProfilePicture,
		JoinedAt:       m.JoinedAt.UnixMilli(),
	}
}

func (m *MessageDTO) ToProto() *chat.ChatMessage {
	if m == nil {
		return nil
	}
	return &chat.ChatMessage{
		ID:             m.ID,
		ChannelID:      m.ChannelID,
		UserID:         m.UserID,
		Name:           m.Name,
		ProfilePicture: m.ProfilePicture,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt.UnixMilli(),
		StartOfDay:     m.StartOfDay,
	}
}

// ChannelsToProto 空结果返回空切片（JSON 为 []）
func ChannelsToProto(channels []*ChannelDTO) []*chat.Channel {
	out := make([]*chat.Channel, 0, len(channels))
	for _, c := range channels {
		out = append(out, c.ToProto())
	}
	return out
}

func MembersToProto(members []*MemberDTO) []*chat.Member {
	out := make([]*chat.Member, 0, len(members))
	for _, m := range members {
		out = append(out, m.ToProto())
	}
	return out
}

func MessagesToProto(messages []*MessageDTO) []*chat.ChatMessage {
	out := make([]*chat.ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ToProto())
	}
	return out
}

// ============================================================================
// Model → DTO (Repository 层 → Service 层)
// ============================================================================

func ProfileFromModel(user *model.User) *UserProfileDTO {
	if user == nil {
		return nil
	}
	return &UserProfileDTO{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		Name:           user.Name,
		ProfilePicture: user.ProfilePicture,
		CreatedAt:      user.CreatedAt,
	}
}

func ProfileFromCache(cached *redis.CachedUser) *UserProfileDTO {
	if cached == nil {
		return nil
	}
	return &UserProfileDTO{
		ID:             cached.ID,
		Username:       cached.Username,
		Email:          cached.Email,
		Name:           cached.Name,
		ProfilePicture: cached.ProfilePicture,
		CreatedAt:      time.UnixMilli(cached.CreatedAt).UTC(),
	}
}

func ChannelFromModel(c *model.Channel) *ChannelDTO {
	if c == nil {
		return nil
	}
	return &ChannelDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		AdminID:     c.AdminID,
		CreatedAt:   c.CreatedAt,
	}
}

func ChannelsFromModel(channels []*model.Channel) []*ChannelDTO {
	out := make([]*ChannelDTO, 0, len(channels))
	for _, c := range channels {
		out = append(out, ChannelFromModel(c))
	}
	return out
}

func MemberFromModel(m *model.Member) *MemberDTO {
	if m == nil {
		return nil
	}
	return &MemberDTO{
		UserID:         m.UserID,
		Name:           m.Name,
		ProfilePicture: m.ProfilePicture,
		JoinedAt:       m.JoinedAt,
	}
}

func MembersFromModel(members []*model.Member) []*MemberDTO {
	out := make([]*MemberDTO, 0, len(members))
	for _, m := range members {
		out = append(out, MemberFromModel(m))
	}
	return out
}

func MessageFromModel(m *model.MessageWithSender) *MessageDTO {
	if m == nil {
		return nil
	}
	return &MessageDTO{
		ID:             m.ID,
		ChannelID:      m.ChannelID,
		UserID:         m.UserID,
		Name:           m.SenderName,
		ProfilePicture: m.SenderProfilePicture,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
		StartOfDay:     m.StartOfDay,
	}
}

func MessagesFromModel(messages []*model.MessageWithSender) []*MessageDTO {
	out := make([]*MessageDTO, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageFromModel(m))
	}
	return out
}
