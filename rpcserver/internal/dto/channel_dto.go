package dto

import "time"

// ============================================================================
// 频道 DTO
// ============================================================================

type ChannelDTO struct {
	ID          uint64
	Name        string
	Description string
	AdminID     uint64
	CreatedAt   time.Time
}

type MemberDTO struct {
	UserID         uint64
	Name           string
	ProfilePicture string
	JoinedAt       time.Time
}

// MessageDTO 消息及发送者
type MessageDTO struct {
	ID             uint64
	ChannelID      uint64
	UserID         uint64
	Name           string
	ProfilePicture string
	Text           string
	CreatedAt      time.Time
	StartOfDay     bool
}

// CreateChannelDTO 创建频道
type CreateChannelDTO struct {
	UserID      uint64
	Name        string
	Description string
}

// SearchChannelsDTO 搜索频道，Query 为空时列出全部
type SearchChannelsDTO struct {
	Query string
	Paging
}

// ChannelPageDTO 频道分页结果
type ChannelPageDTO struct {
	Channels []*ChannelDTO
	HasMore  bool
}

// VisitChannelDTO 访问频道（首次访问自动加入）
type VisitChannelDTO struct {
	UserID    uint64
	ChannelID uint64
}

// VisitResultDTO 访问结果
type VisitResultDTO struct {
	Channel     *ChannelDTO
	Members     []*MemberDTO
	Self        *MemberDTO
	NewlyJoined bool
}

// SendMessageDTO 发送消息
type SendMessageDTO struct {
	UserID    uint64
	ChannelID uint64
	Text      string
}

// ListMessagesDTO 消息分页
type ListMessagesDTO struct {
	UserID    uint64
	ChannelID uint64
	Paging
}

// MessagePageDTO 消息分页结果，最新的在前
type MessagePageDTO struct {
	Items   []*MessageDTO
	HasMore bool
}

// ============================================================================
// 分页
// ============================================================================

// Paging 页码从 1 开始
type Paging struct {
	Page     int
	PageSize int
}

// Normalize 修正非法页码，PageSize 缺省为 def，上限 max
func (p *Paging) Normalize(def, max int) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = def
	}
	if p.PageSize > max {
		p.PageSize = max
	}
}

// Offset 当前页的起始偏移
func (p *Paging) Offset() int {
	return (p.Page - 1) * p.PageSize
}
