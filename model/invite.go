package model

import "time"

// GroupInvite is a shareable invite code for a group, optionally rendered
// as a QR image on disk.
type GroupInvite struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID   int64      `gorm:"index:idx_invite_group;not null" json:"group_id"`
	Code      string     `gorm:"uniqueIndex;size:12;not null" json:"code"`
	CreatedBy int64      `gorm:"not null" json:"created_by"`
	QRPath    string     `gorm:"size:255" json:"qr_path"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedBy    *int64     `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
