// Package realtime 频道房间的 WebSocket 推送
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fastjson"

	"chat-group/proto/chat"
)

// 客户端 -> 服务端
const (
	EventJoinRoom   = "join_room"
	EventResetRoom  = "reset_room"
	EventNewMessage = "new_message"
)

// 服务端 -> 客户端
const (
	EventMessageSent = "message_sent"
	EventNewMember   = "new_member"
	EventRoomJoined  = "room_joined"
	EventRoomLeft    = "room_left"
	EventError       = "error"
)

const (
	timeLabelLayout = "3:04 PM"
	dayLabelLayout  = "Monday, January 2, 2006"
)

var (
	ErrBadFrame     = errors.New("无法解析的消息")
	ErrUnknownEvent = errors.New("未知事件")
)

var parserPool fastjson.ParserPool

// inbound 解析后的客户端帧
type inbound struct {
	Event     string
	ChannelID uint64
	Text      string
}

// parseFrame 解析 {"event": ..., "data": ...}
func parseFrame(raw []byte) (*inbound, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, ErrBadFrame
	}

	in := &inbound{Event: string(v.GetStringBytes("event"))}
	data := v.Get("data")

	switch in.Event {
	case EventJoinRoom:
		if data == nil {
			return nil, ErrBadFrame
		}
		id, err := parseID(data.Get("channel_id"))
		if err != nil {
			return nil, err
		}
		in.ChannelID = id
	case EventNewMessage:
		if data == nil {
			return nil, ErrBadFrame
		}
		in.Text = string(data.GetStringBytes("message"))
	case EventResetRoom:
	default:
		return nil, ErrUnknownEvent
	}
	return in, nil
}

// parseID 支持字符串和数字两种写法，前端拿到的 ID 都是字符串
func parseID(v *fastjson.Value) (uint64, error) {
	if v == nil {
		return 0, ErrBadFrame
	}
	switch v.Type() {
	case fastjson.TypeString:
		id, err := strconv.ParseUint(string(v.GetStringBytes()), 10, 64)
		if err != nil || id == 0 {
			return 0, ErrBadFrame
		}
		return id, nil
	case fastjson.TypeNumber:
		id, err := v.Uint64()
		if err != nil || id == 0 {
			return 0, ErrBadFrame
		}
		return id, nil
	default:
		return 0, ErrBadFrame
	}
}

// ============================================================================
// 下行 payload
// ============================================================================

// MessagePayload 消息按接收者时区渲染后的结构
type MessagePayload struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channel_id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	ProfileURL  string `json:"profile_url"`
	Message     string `json:"message"`
	CreatedAt   string `json:"created_at"`
	StartDateAt string `json:"start_date_at"`
	Timestamp   int64  `json:"timestamp"` // Unix 毫秒
}

// MemberPayload 新成员
type MemberPayload struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	ProfileURL string `json:"profile_url"`
}

// RenderMessage 时间标签用接收者的时区，start_of_day 时附带日期分隔标签
func RenderMessage(m *chat.ChatMessage, loc *time.Location) MessagePayload {
	created := time.UnixMilli(m.CreatedAt).In(loc)
	p := MessagePayload{
		ID:         strconv.FormatUint(m.ID, 10),
		ChannelID:  strconv.FormatUint(m.ChannelID, 10),
		UserID:     strconv.FormatUint(m.UserID, 10),
		Name:       m.Name,
		ProfileURL: m.ProfilePicture,
		Message:    m.Text,
		CreatedAt:  created.Format(timeLabelLayout),
		Timestamp:  m.CreatedAt,
	}
	if m.StartOfDay {
		p.StartDateAt = created.Format(dayLabelLayout)
	}
	return p
}

// RenderMember 新成员 payload
func RenderMember(m *chat.Member) MemberPayload {
	return MemberPayload{
		UserID:     strconv.FormatUint(m.UserID, 10),
		Name:       m.Name,
		ProfileURL: m.ProfilePicture,
	}
}

type frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	if data == nil {
		data = struct{}{}
	}
	b, err := json.Marshal(frame{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("编码 %s 失败: %w", event, err)
	}
	return b, nil
}

func errorFrame(msg string) []byte {
	b, _ := encodeFrame(EventError, map[string]string{"message": msg})
	return b
}

// LoadLocation 解析客户端传来的时区，失败时用默认值
func LoadLocation(name string, fallback *time.Location) *time.Location {
	if name == "" {
		return fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return loc
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
