package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/sree030289/spendy-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddExpenseInput describes a new shared expense.
type AddExpenseInput struct {
	GroupID     int64
	Description string
	Amount      float64
	Currency    string
	PaidBy      int64
	SplitType   model.SplitType
	Splits      []SplitInput
	ActorID     int64 // who performed the action (usually PaidBy)
}

// AddExpenseResult reports the outcome of AddExpense.
type AddExpenseResult struct {
	ExpenseID int64
	Report
}

// AddExpense persists the expense and its splits, bumps the group's expense
// total, and applies the balance effects to group members and friend
// mirrors, all in one transaction. The chat message and notifications go
// out after commit; their failures land in the result's Report.
func (s *Service) AddExpense(ctx context.Context, in AddExpenseInput) (*AddExpenseResult, error) {
	splits, err := ComputeSplits(in.SplitType, in.Amount, in.Splits)
	if err != nil {
		return nil, err
	}
	if in.Currency == "" {
		in.Currency = s.cfg.DefaultCurrency
	}

	var group model.Group
	if err := s.db.WithContext(ctx).First(&group, in.GroupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	participants := make([]int64, 0, len(splits)+1)
	participants = append(participants, in.PaidBy)
	for _, sp := range splits {
		participants = append(participants, sp.UserID)
	}
	if err := s.requireActiveMembers(ctx, in.GroupID, participants); err != nil {
		return nil, err
	}

	expense := model.Expense{
		GroupID:     in.GroupID,
		Description: in.Description,
		Amount:      in.Amount,
		Currency:    in.Currency,
		PaidBy:      in.PaidBy,
		SplitType:   in.SplitType,
		CreatedBy:   in.ActorID,
	}

	result := &AddExpenseResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&expense).Error; err != nil {
			return err
		}
		for i := range splits {
			splits[i].ExpenseID = expense.ID
		}
		if err := tx.Create(&splits).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Group{}).Where("id = ?", in.GroupID).
			Update("total_expenses", gorm.Expr("round((total_expenses + ?) * 100) / 100", in.Amount)).Error; err != nil {
			return err
		}
		return s.applyEffects(tx, in.GroupID, memberEffects(in.PaidBy, splits), pairEffects(in.PaidBy, splits), &result.Report)
	})
	if err != nil {
		return nil, err
	}
	result.ExpenseID = expense.ID

	s.postExpenseMessage(ctx, &result.Report, expenseMessage{
		GroupID:   in.GroupID,
		ExpenseID: expense.ID,
		Body:      fmt.Sprintf("Added expense %q for %s%.2f", in.Description, SymbolFor(in.Currency), in.Amount),
	})
	for _, sp := range splits {
		if sp.UserID == in.PaidBy || s.notify == nil {
			continue
		}
		if err := s.notify.ExpenseAdded(ctx, sp.UserID, in.GroupID, expense.ID, in.Description, sp.Amount, in.Currency); err != nil {
			result.Report.add(EffectNotification, "expense notification failed", err)
		}
	}

	s.logger.Info("expense added",
		zap.Int64("expense_id", expense.ID),
		zap.Int64("group_id", in.GroupID),
		zap.Float64("amount", in.Amount),
		zap.Int("side_effect_failures", len(result.SideEffects)))
	return result, nil
}

// UpdateExpenseInput describes an amendment to an existing expense.
type UpdateExpenseInput struct {
	ExpenseID   int64
	Description string
	Amount      float64
	Currency    string
	PaidBy      int64
	SplitType   model.SplitType
	Splits      []SplitInput
	ActorID     int64
}

// UpdateExpenseResult reports the outcome of UpdateExpense.
type UpdateExpenseResult struct {
	Report
	AmountDifference float64
}

// UpdateExpense amends an expense. Balance corrections are the explicit
// diff between the old and new per-user effects, so an edit that changes
// nothing moves no balances, and an edit that only shifts one share touches
// only the affected members.
func (s *Service) UpdateExpense(ctx context.Context, in UpdateExpenseInput) (*UpdateExpenseResult, error) {
	newSplits, err := ComputeSplits(in.SplitType, in.Amount, in.Splits)
	if err != nil {
		return nil, err
	}

	var old model.Expense
	err = s.db.WithContext(ctx).Preload("Splits").First(&old, in.ExpenseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrExpenseNotFound
	}
	if err != nil {
		return nil, err
	}
	if in.Currency == "" {
		in.Currency = old.Currency
	}

	participants := make([]int64, 0, len(newSplits)+1)
	participants = append(participants, in.PaidBy)
	for _, sp := range newSplits {
		participants = append(participants, sp.UserID)
	}
	if err := s.requireActiveMembers(ctx, old.GroupID, participants); err != nil {
		return nil, err
	}

	amountDiff := roundCents(in.Amount - old.Amount)
	memberDiff := diffEffects(memberEffects(old.PaidBy, old.Splits), memberEffects(in.PaidBy, newSplits))
	pairDiff := diffEffects(pairEffects(old.PaidBy, old.Splits), pairEffects(in.PaidBy, newSplits))

	result := &UpdateExpenseResult{AmountDifference: amountDiff}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"description": in.Description,
			"amount":      in.Amount,
			"currency":    in.Currency,
			"paid_by":     in.PaidBy,
			"split_type":  in.SplitType,
		}
		if err := tx.Model(&model.Expense{}).Where("id = ?", in.ExpenseID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("expense_id = ?", in.ExpenseID).Delete(&model.ExpenseSplit{}).Error; err != nil {
			return err
		}
		for i := range newSplits {
			newSplits[i].ExpenseID = in.ExpenseID
		}
		if err := tx.Create(&newSplits).Error; err != nil {
			return err
		}
		if amountDiff != 0 {
			if err := tx.Model(&model.Group{}).Where("id = ?", old.GroupID).
				Update("total_expenses", gorm.Expr("round((total_expenses + ?) * 100) / 100", amountDiff)).Error; err != nil {
				return err
			}
		}
		return s.applyEffects(tx, old.GroupID, memberDiff, pairDiff, &result.Report)
	})
	if err != nil {
		return nil, err
	}

	s.postExpenseMessage(ctx, &result.Report, expenseMessage{
		GroupID:   old.GroupID,
		ExpenseID: in.ExpenseID,
		Body:      fmt.Sprintf("Updated expense %q to %s%.2f", in.Description, SymbolFor(in.Currency), in.Amount),
	})

	s.logger.Info("expense updated",
		zap.Int64("expense_id", in.ExpenseID),
		zap.Float64("amount_difference", amountDiff),
		zap.Int("members_touched", len(memberDiff)))
	return result, nil
}

// DeleteExpenseResult reports the outcome of DeleteExpense.
type DeleteExpenseResult struct {
	Report
}

// DeleteExpense removes an expense and reverses every balance effect it
// applied, returning all touched balances to their pre-add values.
func (s *Service) DeleteExpense(ctx context.Context, expenseID, actorID int64) (*DeleteExpenseResult, error) {
	var expense model.Expense
	err := s.db.WithContext(ctx).Preload("Splits").First(&expense, expenseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrExpenseNotFound
	}
	if err != nil {
		return nil, err
	}

	// Inverse of the original effects.
	members := memberEffects(expense.PaidBy, expense.Splits)
	for k := range members {
		members[k] = -members[k]
	}
	pairs := pairEffects(expense.PaidBy, expense.Splits)
	for k := range pairs {
		pairs[k] = -pairs[k]
	}

	result := &DeleteExpenseResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expense_id = ?", expenseID).Delete(&model.ExpenseSplit{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Expense{}, expenseID).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Group{}).Where("id = ?", expense.GroupID).
			Update("total_expenses", gorm.Expr("round((total_expenses - ?) * 100) / 100", expense.Amount)).Error; err != nil {
			return err
		}
		return s.applyEffects(tx, expense.GroupID, members, pairs, &result.Report)
	})
	if err != nil {
		return nil, err
	}

	s.postExpenseMessage(ctx, &result.Report, expenseMessage{
		GroupID: expense.GroupID,
		Body:    fmt.Sprintf("Expense %q (%s%.2f) was deleted by user %d", expense.Description, SymbolFor(expense.Currency), expense.Amount, actorID),
	})

	s.logger.Info("expense deleted",
		zap.Int64("expense_id", expenseID),
		zap.Int64("actor_id", actorID))
	return result, nil
}

type expenseMessage struct {
	GroupID   int64
	ExpenseID int64
	Body      string
}

func (s *Service) postExpenseMessage(ctx context.Context, report *Report, msg expenseMessage) {
	if s.chat == nil {
		return
	}
	var ref *int64
	if msg.ExpenseID != 0 {
		id := msg.ExpenseID
		ref = &id
	}
	if err := s.chat.PostSystemMessage(ctx, msg.GroupID, msg.Body, ref); err != nil {
		report.add(EffectChatMessage, "system chat message failed", err)
	}
}
