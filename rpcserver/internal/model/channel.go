package model

import "time"

type Channel struct {
	ID          uint64    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	AdminID     uint64    `db:"admin_id"`
	CreatedAt   time.Time `db:"created_at"`
}

type Membership struct {
	ChannelID uint64    `db:"channel_id"`
	UserID    uint64    `db:"user_id"`
	JoinedAt  time.Time `db:"joined_at"`
}

// Member 成员列表行（memberships JOIN users）
type Member struct {
	UserID         uint64    `db:"user_id"`
	Name           string    `db:"name"`
	ProfilePicture string    `db:"profile_picture"`
	JoinedAt       time.Time `db:"joined_at"`
}
