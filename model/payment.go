package model

import "time"

// Payment method and status values.
const (
	PaymentMethodManual = "manual"
	PaymentMethodBank   = "bank"

	PaymentStatusCompleted = "completed"
	PaymentStatusPending   = "pending"
)

// Payment is an append-only record of money changing hands outside the
// expense-creation flow. Payments are never updated or deleted; the
// balance mutation happens alongside their creation, in the same
// transaction, but the record itself is pure audit trail.
type Payment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FromUserID  int64     `gorm:"index:idx_payment_from;not null" json:"from_user_id"`
	ToUserID    int64     `gorm:"index:idx_payment_to;not null" json:"to_user_id"`
	Amount      float64   `gorm:"not null" json:"amount"`
	Currency    string    `gorm:"size:3;default:'USD'" json:"currency"`
	Method      string    `gorm:"size:16;default:'manual'" json:"method"`
	Status      string    `gorm:"size:16;default:'completed'" json:"status"`
	GroupID     *int64    `gorm:"index:idx_payment_group" json:"group_id,omitempty"`
	ExpenseID   *int64    `json:"expense_id,omitempty"`
	Description string    `gorm:"size:200" json:"description"`
	SettledAt   time.Time `gorm:"autoCreateTime" json:"settled_at"`
}
