package model

import (
	"time"

	"gorm.io/datatypes"
)

// GroupRole represents a member's role within a group.
type GroupRole = string

const (
	GroupRoleAdmin  GroupRole = "admin"
	GroupRoleMember GroupRole = "member"
)

// Group represents an expense-sharing group.
type Group struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string         `gorm:"size:64;not null" json:"name"`
	Currency      string         `gorm:"size:3;default:'USD'" json:"currency"`
	TotalExpenses float64        `gorm:"default:0" json:"total_expenses"`
	Settings      datatypes.JSON `json:"settings"` // {"simplify_debts":true,"allow_member_invites":false}
	CreatedBy     int64          `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// GroupMember links a user to a group with a role and a running balance.
// Within one group the member balances always sum to zero: every cent a
// member is owed is a cent some other member owes.
type GroupMember struct {
	GroupID  int64     `gorm:"primaryKey;index:idx_group_member" json:"group_id"`
	UserID   int64     `gorm:"primaryKey;index:idx_user_group" json:"user_id"`
	Role     GroupRole `gorm:"size:8;default:'member'" json:"role"`
	Balance  float64   `gorm:"default:0" json:"balance"`
	IsActive bool      `gorm:"default:true" json:"is_active"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}
