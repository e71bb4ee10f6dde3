package model

import "time"

// FriendStatus is the lifecycle state of a friendship edge.
type FriendStatus = int

const (
	FriendPending  FriendStatus = 0
	FriendAccepted FriendStatus = 1
	FriendBlocked  FriendStatus = 2
	FriendInvited  FriendStatus = 3 // invited by email, no account yet
)

// Friendship is one direction of a friend relationship. Every accepted
// friendship is stored as two mirror rows (A→B and B→A) whose Balance
// fields are kept as additive inverses of each other: positive means the
// owner is owed money by the friend.
type Friendship struct {
	ID           int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64        `gorm:"uniqueIndex:idx_friend_pair;not null" json:"user_id"`
	FriendID     int64        `gorm:"uniqueIndex:idx_friend_pair;not null" json:"friend_id"`
	Status       FriendStatus `gorm:"default:0" json:"status"`
	Balance      float64      `gorm:"default:0" json:"balance"`
	Currency     string       `gorm:"size:3;default:'USD'" json:"currency"`
	LastActivity time.Time    `gorm:"autoCreateTime" json:"last_activity"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
}
