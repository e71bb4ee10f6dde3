package model

import "time"

// Chat message kinds.
const (
	ChatKindUser   = "user"
	ChatKindSystem = "system"
)

// ChatMessage is one message in a group's chat. System messages (expense
// added, payment recorded) carry a nil UserID and may reference an expense.
type ChatMessage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID   int64     `gorm:"index:idx_chat_group;not null" json:"group_id"`
	UserID    *int64    `json:"user_id,omitempty"` // nil for system messages
	Kind      string    `gorm:"size:8;default:'user'" json:"kind"`
	Body      string    `gorm:"size:500;not null" json:"body"`
	ExpenseID *int64    `json:"expense_id,omitempty"`
	CreatedAt time.Time `gorm:"index:idx_chat_created;autoCreateTime" json:"created_at"`
}
