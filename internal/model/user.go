package model

import "time"

// User owns tasks and authenticates API calls with a bearer token.
type User struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string
	APIToken       string `gorm:"uniqueIndex"`
	TelegramChatID int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
