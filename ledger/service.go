package ledger

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sree030289/spendy-server/config"
	"github.com/sree030289/spendy-server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChatSink posts system messages into a group's chat. Implementations must
// not block on delivery; failures are reported back to the caller via the
// operation's Report, never swallowed.
type ChatSink interface {
	PostSystemMessage(ctx context.Context, groupID int64, body string, expenseID *int64) error
}

// NotificationSink records user notifications. One method per event type so
// required fields are enforced at the call site instead of a loose data bag.
type NotificationSink interface {
	ExpenseAdded(ctx context.Context, userID, groupID, expenseID int64, description string, share float64, currency string) error
	PaymentReceived(ctx context.Context, payeeID, payerID, paymentID int64, amount float64, currency string) error
}

// SideEffectKind labels the channel a side-effect failure came from.
type SideEffectKind string

const (
	EffectFriendBalance SideEffectKind = "friend_balance"
	EffectChatMessage   SideEffectKind = "chat_message"
	EffectNotification  SideEffectKind = "notification"
)

// SideEffectFailure is one non-fatal failure that happened alongside a
// successful ledger operation. The primary operation committed; the caller
// decides whether to log, retry, or surface these.
type SideEffectFailure struct {
	Kind SideEffectKind `json:"kind"`
	Err  error          `json:"-"`
	Note string         `json:"note"`
}

// Report collects the side-effect failures of one ledger operation.
type Report struct {
	SideEffects []SideEffectFailure
}

func (r *Report) add(kind SideEffectKind, note string, err error) {
	r.SideEffects = append(r.SideEffects, SideEffectFailure{Kind: kind, Err: err, Note: note})
}

// Clean reports whether every side channel succeeded.
func (r *Report) Clean() bool { return len(r.SideEffects) == 0 }

// Service is the balance-settlement ledger. All balance-moving operations
// run their writes in a single transaction; chat and notification sinks are
// invoked after commit and their failures collected into the Report.
type Service struct {
	db     *gorm.DB
	chat   ChatSink
	notify NotificationSink
	cfg    config.LedgerConfig
	logger *zap.Logger
}

// New creates a ledger Service. Sinks may be nil, in which case the
// corresponding side effects are skipped.
func New(db *gorm.DB, chat ChatSink, notify NotificationSink, cfg config.LedgerConfig, logger *zap.Logger) *Service {
	if cfg.SuggestionCap <= 0 {
		cfg.SuggestionCap = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, chat: chat, notify: notify, cfg: cfg, logger: logger}
}

// ---- Balance store ----

// AdjustFriendBalance moves the balance of the userID→friendID mirror by
// delta and the friendID→userID mirror by -delta, in the caller's
// transaction, so the inverse-pair invariant cannot be observed broken.
// Positive balance means the owner of the row is owed money.
// Returns ErrNotFriends when no accepted friendship exists; callers treat
// that as a tolerated side-effect failure, not an operation error. When only
// one mirror row is accepted the pair is corrupt and ErrFriendPairMismatch
// aborts the surrounding transaction.
func (s *Service) AdjustFriendBalance(tx *gorm.DB, userID, friendID int64, delta float64) error {
	now := time.Now()
	res := tx.Model(&model.Friendship{}).
		Where("user_id = ? AND friend_id = ? AND status = ?", userID, friendID, model.FriendAccepted).
		Updates(map[string]interface{}{
			"balance":       gorm.Expr("round((balance + ?) * 100) / 100", delta),
			"last_activity": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFriends
	}

	res = tx.Model(&model.Friendship{}).
		Where("user_id = ? AND friend_id = ? AND status = ?", friendID, userID, model.FriendAccepted).
		Updates(map[string]interface{}{
			"balance":       gorm.Expr("round((balance - ?) * 100) / 100", delta),
			"last_activity": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Half a pair is worse than none; the first mirror already moved in
		// this transaction, so abort it with a structural error.
		return ErrFriendPairMismatch
	}
	return nil
}

// AdjustGroupMemberBalance increments one member's balance by delta using a
// server-side atomic update, so concurrent expense operations on the same
// group cannot clobber each other.
func (s *Service) AdjustGroupMemberBalance(tx *gorm.DB, groupID, userID int64, delta float64) error {
	res := tx.Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
		Update("balance", gorm.Expr("round((balance + ?) * 100) / 100", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotGroupMember
	}
	return nil
}

// FriendBalance returns the balance of the userID→friendID mirror.
func (s *Service) FriendBalance(ctx context.Context, userID, friendID int64) (float64, error) {
	var f model.Friendship
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ? AND status = ?", userID, friendID, model.FriendAccepted).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFriends
	}
	if err != nil {
		return 0, err
	}
	return f.Balance, nil
}

// ---- Effect maps ----

// pairKey identifies an unordered friend pair; Low < High always.
type pairKey struct {
	Low, High int64
}

// memberEffects computes the per-user group balance deltas an expense
// applies: the payer is owed every other participant's share, each
// participant owes their own.
func memberEffects(paidBy int64, splits []model.ExpenseSplit) map[int64]float64 {
	eff := make(map[int64]float64)
	for _, sp := range splits {
		if sp.UserID == paidBy {
			continue
		}
		eff[sp.UserID] = roundCents(eff[sp.UserID] - sp.Amount)
		eff[paidBy] = roundCents(eff[paidBy] + sp.Amount)
	}
	return eff
}

// pairEffects computes the friend-pair balance deltas of an expense, keyed
// by unordered pair and expressed from the lower user ID's point of view.
func pairEffects(paidBy int64, splits []model.ExpenseSplit) map[pairKey]float64 {
	eff := make(map[pairKey]float64)
	for _, sp := range splits {
		if sp.UserID == paidBy {
			continue
		}
		// The payer is owed sp.Amount by this participant.
		if paidBy < sp.UserID {
			k := pairKey{Low: paidBy, High: sp.UserID}
			eff[k] = roundCents(eff[k] + sp.Amount)
		} else {
			k := pairKey{Low: sp.UserID, High: paidBy}
			eff[k] = roundCents(eff[k] - sp.Amount)
		}
	}
	return eff
}

// diffEffects returns newEff minus oldEff, dropping deltas below Epsilon.
// A no-op edit therefore produces an empty diff and touches no balances.
func diffEffects[K comparable](oldEff, newEff map[K]float64) map[K]float64 {
	diff := make(map[K]float64)
	for k, v := range newEff {
		diff[k] = v
	}
	for k, v := range oldEff {
		diff[k] = roundCents(diff[k] - v)
	}
	for k, v := range diff {
		if math.Abs(v) <= Epsilon {
			delete(diff, k)
		}
	}
	return diff
}

// applyEffects applies member and pair deltas inside tx. Missing
// friendships are tolerated and collected into report; anything else
// aborts.
func (s *Service) applyEffects(tx *gorm.DB, groupID int64, members map[int64]float64, pairs map[pairKey]float64, report *Report) error {
	for userID, delta := range members {
		if err := s.AdjustGroupMemberBalance(tx, groupID, userID, delta); err != nil {
			return err
		}
	}
	for pair, delta := range pairs {
		err := s.AdjustFriendBalance(tx, pair.Low, pair.High, delta)
		if errors.Is(err, ErrNotFriends) {
			report.add(EffectFriendBalance, "no accepted friendship, friend balances unchanged", err)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// requireActiveMembers verifies every listed user is an active member of
// the group.
func (s *Service) requireActiveMembers(ctx context.Context, groupID int64, userIDs []int64) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id IN ? AND is_active = ?", groupID, userIDs, true).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count != int64(len(uniqueIDs(userIDs))) {
		return ErrNotGroupMember
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
