package model

import "time"

// User represents a registered account.
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string     `gorm:"uniqueIndex;size:128;not null" json:"email"`
	FullName     string     `gorm:"size:64" json:"full_name"`
	PasswordHash string     `gorm:"size:64;not null" json:"-"`
	Currency     string     `gorm:"size:3;default:'USD'" json:"currency"`
	AvatarURL    string     `gorm:"size:255" json:"avatar_url"`
	Status       int        `gorm:"default:1" json:"status"` // 0=disabled 1=active
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	LastLoginIP  string     `gorm:"size:45" json:"last_login_ip"`
}
