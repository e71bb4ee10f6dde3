package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/sree030289/spendy-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotGroupMember is returned when a user posts into a group they are
// not an active member of.
var ErrNotGroupMember = errors.New("chat: not an active group member")

const historyLimit = 50

// Service stores and serves group chat messages. System messages are
// authored by ledger operations (expense added, payment recorded) and
// carry no user ID.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func New(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// PostSystemMessage writes a system-authored message into the group feed.
func (s *Service) PostSystemMessage(ctx context.Context, groupID int64, body string, expenseID *int64) error {
	msg := model.ChatMessage{
		GroupID:   groupID,
		Kind:      model.ChatKindSystem,
		Body:      body,
		ExpenseID: expenseID,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("chat: post system message: %w", err)
	}
	return nil
}

// PostUserMessage writes a user-authored message after checking membership.
func (s *Service) PostUserMessage(ctx context.Context, groupID, userID int64, body string) (*model.ChatMessage, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotGroupMember
	}

	msg := model.ChatMessage{
		GroupID: groupID,
		UserID:  &userID,
		Kind:    model.ChatKindUser,
		Body:    body,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// History returns the newest messages for a group, oldest first. beforeID
// pages backwards; zero means from the latest.
func (s *Service) History(ctx context.Context, groupID int64, beforeID int64, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	q := s.db.WithContext(ctx).Where("group_id = ?", groupID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	var msgs []model.ChatMessage
	if err := q.Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
