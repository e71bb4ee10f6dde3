package model

import "time"

// SplitType determines how an expense amount is divided among participants.
type SplitType = string

const (
	SplitEqual      SplitType = "equal"
	SplitCustom     SplitType = "custom"
	SplitPercentage SplitType = "percentage"
)

// Expense represents a shared expense within a group.
type Expense struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID     int64     `gorm:"index:idx_expense_group;not null" json:"group_id"`
	Description string    `gorm:"size:200" json:"description"`
	Amount      float64   `gorm:"not null" json:"amount"`
	Currency    string    `gorm:"size:3;default:'USD'" json:"currency"`
	PaidBy      int64     `gorm:"index:idx_expense_payer;not null" json:"paid_by"`
	SplitType   SplitType `gorm:"size:16;default:'equal'" json:"split_type"`
	IsSettled   bool      `gorm:"default:false" json:"is_settled"`
	ReceiptURL  string    `gorm:"size:255" json:"receipt_url"` // uploaded by an external receipt service
	CreatedBy   int64     `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Splits []ExpenseSplit `gorm:"foreignKey:ExpenseID" json:"splits,omitempty"`
}

// ExpenseSplit is one participant's share of an expense. The split amounts
// of an expense always sum to the expense amount (within cent rounding).
type ExpenseSplit struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ExpenseID  int64      `gorm:"index:idx_split_expense;not null" json:"expense_id"`
	UserID     int64      `gorm:"index:idx_split_user;not null" json:"user_id"`
	Amount     float64    `gorm:"not null" json:"amount"`
	Percentage *float64   `json:"percentage,omitempty"` // set only for percentage splits
	IsPaid     bool       `gorm:"default:false" json:"is_paid"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}
