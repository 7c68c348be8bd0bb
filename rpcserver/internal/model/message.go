package model

import "time"

type Message struct {
	ID         uint64    `db:"id"`
	ChannelID  uint64    `db:"channel_id"`
	UserID     uint64    `db:"user_id"`
	Text       string    `db:"text"`
	CreatedAt  time.Time `db:"created_at"`
	StartOfDay bool      `db:"start_of_day"`
}

// MessageWithSender 消息列表行（messages JOIN users）
type MessageWithSender struct {
	Message
	SenderName           string `db:"sender_name"`
	SenderProfilePicture string `db:"sender_profile_picture"`
}

// StartsNewDay 判断 cur 是否是频道在 loc 时区下新一天的第一条消息
// prev 为同频道上一条消息的时间，nil 表示频道还没有消息
func StartsNewDay(prev *time.Time, cur time.Time, loc *time.Location) bool {
	if prev == nil {
		return true
	}
	if loc == nil {
		loc = time.UTC
	}
	py, pm, pd := prev.In(loc).Date()
	cy, cm, cd := cur.In(loc).Date()
	return py != cy || pm != cm || pd != cd
}
