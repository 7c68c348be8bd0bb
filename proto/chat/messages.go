// Package chat rpcserver 与 httpserver 之间的 RPC 契约
package chat

// ============================================================================
// 公共结构
// ============================================================================

// UserProfile 用户公开信息
type UserProfile struct {
	ID             uint64 `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture"`
	CreatedAt      int64  `json:"created_at"` // Unix 毫秒
}

// Channel 频道
type Channel struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AdminID     uint64 `json:"admin_id"`
	CreatedAt   int64  `json:"created_at"`
}

// Member 频道成员
type Member struct {
	UserID         uint64 `json:"user_id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture"`
	JoinedAt       int64  `json:"joined_at"`
}

// ChatMessage 频道消息（带发送者信息）
type ChatMessage struct {
	ID             uint64 `json:"id"`
	ChannelID      uint64 `json:"channel_id"`
	UserID         uint64 `json:"user_id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture"`
	Text           string `json:"text"`
	CreatedAt      int64  `json:"created_at"`
	StartOfDay     bool   `json:"start_of_day"`
}

// ============================================================================
// UserService
// ============================================================================

type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type RegisterResponse struct {
	Code    int32        `json:"code"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *UserProfile `json:"user,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Code    int32        `json:"code"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *UserProfile `json:"user,omitempty"`
}

// LogoutRequest Token 走 metadata
type LogoutRequest struct{}

type LogoutResponse struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

type GetProfileRequest struct{}

type GetProfileResponse struct {
	Code    int32        `json:"code"`
	Message string       `json:"message"`
	User    *UserProfile `json:"user,omitempty"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UpdateProfileResponse struct {
	Code    int32        `json:"code"`
	Message string       `json:"message"`
	User    *UserProfile `json:"user,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type ChangePasswordResponse struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

type UpdateProfilePictureRequest struct {
	ProfilePicture string `json:"profile_picture"`
}

type UpdateProfilePictureResponse struct {
	Code    int32        `json:"code"`
	Message string       `json:"message"`
	User    *UserProfile `json:"user,omitempty"`
}

// ============================================================================
// ChannelService
// ============================================================================

type CreateChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateChannelResponse struct {
	Code    int32    `json:"code"`
	Message string   `json:"message"`
	Channel *Channel `json:"channel,omitempty"`
}

type SearchChannelsRequest struct {
	Query    string `json:"query"`
	Page     int32  `json:"page"`
	PageSize int32  `json:"page_size"`
}

type SearchChannelsResponse struct {
	Code     int32      `json:"code"`
	Message  string     `json:"message"`
	Channels []*Channel `json:"channels"`
	HasMore  bool       `json:"has_more"`
}

type ListMyChannelsRequest struct{}

type ListMyChannelsResponse struct {
	Code     int32      `json:"code"`
	Message  string     `json:"message"`
	Channels []*Channel `json:"channels"`
}

type VisitChannelRequest struct {
	ChannelID uint64 `json:"channel_id"`
}

type VisitChannelResponse struct {
	Code        int32     `json:"code"`
	Message     string    `json:"message"`
	Channel     *Channel  `json:"channel,omitempty"`
	Members     []*Member `json:"members"`
	Self        *Member   `json:"self,omitempty"`
	NewlyJoined bool      `json:"newly_joined"`
}

type SendMessageRequest struct {
	ChannelID uint64 `json:"channel_id"`
	Text      string `json:"text"`
}

type SendMessageResponse struct {
	Code    int32        `json:"code"`
	Message string       `json:"message"`
	Item    *ChatMessage `json:"item,omitempty"`
}

type ListMessagesRequest struct {
	ChannelID uint64 `json:"channel_id"`
	Page      int32  `json:"page"`
	PageSize  int32  `json:"page_size"`
}

type ListMessagesResponse struct {
	Code    int32          `json:"code"`
	Message string         `json:"message"`
	Items   []*ChatMessage `json:"items"`
	HasMore bool           `json:"has_more"`
}
