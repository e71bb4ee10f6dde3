package model

import "time"

// Bank account link status.
const (
	BankStatusPending  = "pending"
	BankStatusVerified = "verified"
)

// BankAccount is a linked bank account. Only a masked account number is
// stored; verification against the provider is stubbed out and handled by
// an external service.
type BankAccount struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"index:idx_bank_user;not null" json:"user_id"`
	BankName    string    `gorm:"size:64;not null" json:"bank_name"`
	AccountMask string    `gorm:"size:8;not null" json:"account_mask"` // last 4 digits only
	Currency    string    `gorm:"size:3;default:'USD'" json:"currency"`
	Status      string    `gorm:"size:16;default:'pending'" json:"status"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
