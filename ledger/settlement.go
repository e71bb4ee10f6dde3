package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sree030289/spendy-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentInput describes a peer-to-peer payment to record. FromUserID is
// the payer (debtor settling up), ToUserID the payee.
type PaymentInput struct {
	FromUserID  int64
	ToUserID    int64
	Amount      float64
	Currency    string
	Method      string
	GroupID     *int64
	ExpenseID   *int64
	Description string
}

// PaymentResult reports the outcome of MarkPaymentAsPaid.
type PaymentResult struct {
	PaymentID int64
	Report
}

// MarkPaymentAsPaid appends a completed Payment record and moves the
// payer's balances toward zero: the friend mirror pair always, and the
// group member balances when a group is named. No expense record is
// touched; this is an out-of-band transfer. Payments are the only
// settlement path that moves ledger balances (see UpdateExpenseSettlement).
func (s *Service) MarkPaymentAsPaid(ctx context.Context, in PaymentInput) (*PaymentResult, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}
	if in.FromUserID == in.ToUserID {
		return nil, fmt.Errorf("%w: payer and payee must differ", ErrValidation)
	}
	if in.Currency == "" {
		in.Currency = s.cfg.DefaultCurrency
	}
	if in.Method == "" {
		in.Method = model.PaymentMethodManual
	}

	payment := model.Payment{
		FromUserID:  in.FromUserID,
		ToUserID:    in.ToUserID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Method:      in.Method,
		Status:      model.PaymentStatusCompleted,
		GroupID:     in.GroupID,
		ExpenseID:   in.ExpenseID,
		Description: in.Description,
	}

	result := &PaymentResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		// Paying reduces the payer's debt: their side of the mirror moves up.
		err := s.AdjustFriendBalance(tx, in.FromUserID, in.ToUserID, in.Amount)
		if errors.Is(err, ErrNotFriends) {
			result.Report.add(EffectFriendBalance, "no accepted friendship, friend balances unchanged", err)
		} else if err != nil {
			return err
		}
		if in.GroupID != nil {
			if err := s.AdjustGroupMemberBalance(tx, *in.GroupID, in.FromUserID, in.Amount); err != nil {
				return err
			}
			if err := s.AdjustGroupMemberBalance(tx, *in.GroupID, in.ToUserID, -in.Amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.PaymentID = payment.ID

	if in.GroupID != nil && s.chat != nil {
		body := fmt.Sprintf("User %d paid user %d %s%.2f", in.FromUserID, in.ToUserID, SymbolFor(in.Currency), in.Amount)
		if err := s.chat.PostSystemMessage(ctx, *in.GroupID, body, in.ExpenseID); err != nil {
			result.Report.add(EffectChatMessage, "system chat message failed", err)
		}
	}
	if s.notify != nil {
		if err := s.notify.PaymentReceived(ctx, in.ToUserID, in.FromUserID, payment.ID, in.Amount, in.Currency); err != nil {
			result.Report.add(EffectNotification, "payment notification failed", err)
		}
	}

	s.logger.Info("payment recorded",
		zap.Int64("payment_id", payment.ID),
		zap.Int64("from", in.FromUserID),
		zap.Int64("to", in.ToUserID),
		zap.Float64("amount", in.Amount))
	return result, nil
}

// SplitPaidUpdate marks one participant's share paid or unpaid for display.
type SplitPaidUpdate struct {
	UserID int64 `json:"user_id"`
	IsPaid bool  `json:"is_paid"`
}

// UpdateExpenseSettlement flips per-split IsPaid flags and the expense's
// IsSettled flag. It deliberately never moves ledger balances: recorded
// Payments are the single source of balance movement, and these flags are
// display state layered on top.
func (s *Service) UpdateExpenseSettlement(ctx context.Context, expenseID int64, updates []SplitPaidUpdate, isSettled bool) error {
	var expense model.Expense
	err := s.db.WithContext(ctx).First(&expense, expenseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrExpenseNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			fields := map[string]interface{}{"is_paid": u.IsPaid}
			if u.IsPaid {
				fields["paid_at"] = now
			} else {
				fields["paid_at"] = nil
			}
			res := tx.Model(&model.ExpenseSplit{}).
				Where("expense_id = ? AND user_id = ?", expenseID, u.UserID).
				Updates(fields)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: user %d has no split on expense %d", ErrValidation, u.UserID, expenseID)
			}
		}
		return tx.Model(&model.Expense{}).Where("id = ?", expenseID).
			Update("is_settled", isSettled).Error
	})
}

// SettleAllBalancesBetweenFriends records a single payment clearing the
// whole outstanding balance between two friends. Direction follows the
// balance sign; a zero balance is an error.
func (s *Service) SettleAllBalancesBetweenFriends(ctx context.Context, userID, friendID int64, groupID *int64) (*PaymentResult, error) {
	balance, err := s.FriendBalance(ctx, userID, friendID)
	if err != nil {
		return nil, err
	}
	if math.Abs(balance) <= Epsilon {
		return nil, ErrNoOutstandingBalance
	}

	in := PaymentInput{
		Amount:      roundCents(math.Abs(balance)),
		GroupID:     groupID,
		Description: "Settle all balances",
	}
	if balance > 0 {
		// userID is owed; the friend pays them.
		in.FromUserID, in.ToUserID = friendID, userID
	} else {
		in.FromUserID, in.ToUserID = userID, friendID
	}
	return s.MarkPaymentAsPaid(ctx, in)
}

// Suggestion is one proposed settling payment within a group.
type Suggestion struct {
	FromUserID int64   `json:"from_user_id"`
	ToUserID   int64   `json:"to_user_id"`
	Amount     float64 `json:"amount"`
}

// GroupSettlementSuggestions pairs members who owe money against members
// who are owed, walking both lists in member order. It is a read-only
// heuristic, not a minimum-transaction solver; the result is capped and
// sorted by amount descending.
func (s *Service) GroupSettlementSuggestions(ctx context.Context, groupID int64) ([]Suggestion, error) {
	var members []model.GroupMember
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND is_active = ?", groupID, true).
		Order("user_id").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, ErrGroupNotFound
	}

	type side struct {
		userID int64
		amount float64
	}
	var debtors, creditors []side
	for _, m := range members {
		switch {
		case m.Balance < -Epsilon:
			debtors = append(debtors, side{m.UserID, -m.Balance})
		case m.Balance > Epsilon:
			creditors = append(creditors, side{m.UserID, m.Balance})
		}
	}

	var suggestions []Suggestion
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := math.Min(debtors[i].amount, creditors[j].amount)
		if amount > Epsilon {
			suggestions = append(suggestions, Suggestion{
				FromUserID: debtors[i].userID,
				ToUserID:   creditors[j].userID,
				Amount:     roundCents(amount),
			})
		}
		debtors[i].amount -= amount
		creditors[j].amount -= amount
		if debtors[i].amount <= Epsilon {
			i++
		}
		if creditors[j].amount <= Epsilon {
			j++
		}
	}

	sort.Slice(suggestions, func(a, b int) bool { return suggestions[a].Amount > suggestions[b].Amount })
	if len(suggestions) > s.cfg.SuggestionCap {
		suggestions = suggestions[:s.cfg.SuggestionCap]
	}
	return suggestions, nil
}
