package entities

import (
	"time"

	"github.com/google/uuid"
)

// User 平台用户
type User struct {
	ID             uuid.UUID `json:"userId" db:"user_id"`
	Email          string    `json:"email" db:"email"`
	Nickname       string    `json:"nickname" db:"nickname"`
	HashedPassword string    `json:"-" db:"hashed_password"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// NewUser 创建用户记录
func NewUser(email, nickname, hashedPassword string) *User {
	return &User{
		ID:             uuid.New(),
		Email:          email,
		Nickname:       nickname,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now(),
	}
}
