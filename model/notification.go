package model

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types.
const (
	NotifyFriendRequest   = "friend_request"
	NotifyFriendAccepted  = "friend_accepted"
	NotifyExpenseAdded    = "expense_added"
	NotifyPaymentReceived = "payment_received"
	NotifyPaymentReminder = "payment_reminder"
	NotifyGroupInvite     = "group_invite"
)

// Notification is a stored user notification. Delivery (push, email) is the
// responsibility of whatever consumes the notification pubsub channel.
type Notification struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64          `gorm:"index:idx_notify_user;not null" json:"user_id"`
	Type      string         `gorm:"size:32;not null" json:"type"`
	Title     string         `gorm:"size:100" json:"title"`
	Message   string         `gorm:"size:255" json:"message"`
	Data      datatypes.JSON `json:"data"` // typed payload, see notify package constructors
	IsRead    bool           `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time      `gorm:"index:idx_notify_created;autoCreateTime" json:"created_at"`
}
