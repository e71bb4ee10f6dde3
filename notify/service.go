package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sree030289/spendy-server/cache"
	"github.com/sree030289/spendy-server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ChannelFor returns the pubsub channel carrying one user's notifications.
func ChannelFor(userID int64) string {
	return fmt.Sprintf("notify:user:%d", userID)
}

// Service stores notifications and fans them out over pubsub so connected
// clients see them without polling. One method per event type; the Data
// payload is shaped here, not by callers.
type Service struct {
	db     *gorm.DB
	ps     cache.PubSub
	kv     cache.Cache
	logger *zap.Logger
}

func New(db *gorm.DB, ps cache.PubSub, kv cache.Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, ps: ps, kv: kv, logger: logger}
}

func (s *Service) create(ctx context.Context, n *model.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("notify: store: %w", err)
	}
	if s.ps != nil {
		payload, _ := json.Marshal(n)
		if err := s.ps.Publish(ctx, ChannelFor(n.UserID), string(payload)); err != nil {
			// The row is stored; live delivery is best effort.
			s.logger.Warn("notification publish failed",
				zap.Int64("user_id", n.UserID),
				zap.String("type", n.Type),
				zap.Error(err))
		}
	}
	return nil
}

func mustJSON(v interface{}) datatypes.JSON {
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}

// ExpenseAdded tells a participant they owe a share of a new expense.
func (s *Service) ExpenseAdded(ctx context.Context, userID, groupID, expenseID int64, description string, share float64, currency string) error {
	return s.create(ctx, &model.Notification{
		UserID:  userID,
		Type:    model.NotifyExpenseAdded,
		Title:   "New expense",
		Message: fmt.Sprintf("%s: your share is %.2f %s", description, share, currency),
		Data: mustJSON(map[string]interface{}{
			"group_id":   groupID,
			"expense_id": expenseID,
			"share":      share,
			"currency":   currency,
		}),
	})
}

// PaymentReceived tells a payee that a payment to them was recorded.
func (s *Service) PaymentReceived(ctx context.Context, payeeID, payerID, paymentID int64, amount float64, currency string) error {
	return s.create(ctx, &model.Notification{
		UserID:  payeeID,
		Type:    model.NotifyPaymentReceived,
		Title:   "Payment received",
		Message: fmt.Sprintf("You received %.2f %s", amount, currency),
		Data: mustJSON(map[string]interface{}{
			"payer_id":   payerID,
			"payment_id": paymentID,
			"amount":     amount,
			"currency":   currency,
		}),
	})
}

// FriendRequest tells a user someone wants to add them.
func (s *Service) FriendRequest(ctx context.Context, userID, fromUserID int64, fromName string) error {
	return s.create(ctx, &model.Notification{
		UserID:  userID,
		Type:    model.NotifyFriendRequest,
		Title:   "Friend request",
		Message: fmt.Sprintf("%s wants to add you as a friend", fromName),
		Data:    mustJSON(map[string]interface{}{"from_user_id": fromUserID}),
	})
}

// FriendAccepted tells the original requester their request was accepted.
func (s *Service) FriendAccepted(ctx context.Context, userID, friendID int64, friendName string) error {
	return s.create(ctx, &model.Notification{
		UserID:  userID,
		Type:    model.NotifyFriendAccepted,
		Title:   "Friend request accepted",
		Message: fmt.Sprintf("%s accepted your friend request", friendName),
		Data:    mustJSON(map[string]interface{}{"friend_id": friendID}),
	})
}

// GroupInvite tells a user they were added to a group.
func (s *Service) GroupInvite(ctx context.Context, userID, groupID int64, groupName string) error {
	return s.create(ctx, &model.Notification{
		UserID:  userID,
		Type:    model.NotifyGroupInvite,
		Title:   "Added to group",
		Message: fmt.Sprintf("You were added to %s", groupName),
		Data:    mustJSON(map[string]interface{}{"group_id": groupID}),
	})
}

// List returns a user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var out []model.Notification
	err := q.Order("id desc").Limit(limit).Find(&out).Error
	return out, err
}

// MarkRead marks one notification read. Unknown or foreign IDs are a no-op.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true).Error
}

// MarkAllRead marks every notification of a user read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

// SendPaymentReminders nudges debtors whose friend balance has been
// negative with no activity for at least age. A cache key dedupes so a
// debtor is reminded at most once per age window per creditor.
func (s *Service) SendPaymentReminders(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	var debts []model.Friendship
	err := s.db.WithContext(ctx).
		Where("status = ? AND balance < ? AND last_activity < ?", model.FriendAccepted, -0.01, cutoff).
		Find(&debts).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, d := range debts {
		if s.kv != nil {
			key := fmt.Sprintf("reminder:%d:%d", d.UserID, d.FriendID)
			ok, err := s.kv.SetNX(ctx, key, "1", age)
			if err != nil {
				s.logger.Warn("reminder dedup failed", zap.Error(err))
			} else if !ok {
				continue
			}
		}
		err := s.create(ctx, &model.Notification{
			UserID:  d.UserID,
			Type:    model.NotifyPaymentReminder,
			Title:   "Payment reminder",
			Message: fmt.Sprintf("You owe %.2f %s", -d.Balance, d.Currency),
			Data: mustJSON(map[string]interface{}{
				"friend_id": d.FriendID,
				"amount":    -d.Balance,
				"currency":  d.Currency,
			}),
		})
		if err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
