package model

import "time"

type User struct {
	ID             uint64    `db:"id"`
	Username       string    `db:"username"`
	Email          string    `db:"email"`
	Name           string    `db:"name"`
	PasswordHash   string    `db:"password_hash"`
	ProfilePicture string    `db:"profile_picture"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
