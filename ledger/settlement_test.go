package ledger

import (
	"context"
	"testing"

	"github.com/sree030289/spendy-server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkPaymentAsPaid_MovesBalancesTowardZero(t *testing.T) {
	f, ids, groupID, _ := seedDinner(t)
	a, b, c := ids[0], ids[1], ids[2]

	// B owes A 30 after the dinner; B pays up.
	res, err := f.svc.MarkPaymentAsPaid(context.Background(), PaymentInput{
		FromUserID: b,
		ToUserID:   a,
		Amount:     30,
		GroupID:    &groupID,
	})
	require.NoError(t, err)
	require.True(t, res.Clean())
	assert.Positive(t, res.PaymentID)

	assert.Equal(t, 30.0, f.memberBalance(t, groupID, a))
	assert.Equal(t, 0.0, f.memberBalance(t, groupID, b))
	assert.Equal(t, -30.0, f.memberBalance(t, groupID, c))
	assert.Equal(t, 0.0, f.friendBalance(t, a, b))
	assert.Equal(t, 0.0, f.friendBalance(t, b, a))
	assert.Equal(t, 30.0, f.friendBalance(t, a, c), "the remaining claim is against C")
	f.assertConservation(t, groupID)

	var p model.Payment
	require.NoError(t, f.db.First(&p, res.PaymentID).Error)
	assert.Equal(t, model.PaymentStatusCompleted, p.Status)
	assert.Equal(t, model.PaymentMethodManual, p.Method)
	assert.Equal(t, b, p.FromUserID)
	assert.Equal(t, a, p.ToUserID)

	assert.Contains(t, f.notify.paymentReceived, a)
}

func TestMarkPaymentAsPaid_WithoutGroupTouchesOnlyFriends(t *testing.T) {
	f := newFixture(t)
	ids := f.seedUsers(t, 2)
	f.befriend(t, ids[0], ids[1])

	res, err := f.svc.MarkPaymentAsPaid(context.Background(), PaymentInput{
		FromUserID: ids[0],
		ToUserID:   ids[1],
		Amount:     12.50,
	})
	require.NoError(t, err)
	require.True(t, res.Clean())

	assert.Equal(t, 12.50, f.friendBalance(t, ids[0], ids[1]))
	assert.Equal(t, -12.50, f.friendBalance(t, ids[1], ids[0]))
	assert.Empty(t, f.chat.messages, "no group, no chat message")
}

func TestMarkPaymentAsPaid_NoFriendshipReported(t *testing.T) {
	f := newFixture(t)
	ids := f.seedUsers(t, 2)

	res, err := f.svc.MarkPaymentAsPaid(context.Background(), PaymentInput{
		FromUserID: ids[0],
		ToUserID:   ids[1],
		Amount:     5,
	})
	require.NoError(t, err, "payment still recorded without a friendship")
	require.Len(t, res.SideEffects, 1)
	assert.Equal(t, EffectFriendBalance, res.SideEffects[0].Kind)
}

func TestMarkPaymentAsPaid_BlockedPairLeavesBothMirrors(t *testing.T) {
	f := newFixture(t)
	ids := f.seedUsers(t, 2)
	f.befriend(t, ids[0], ids[1])
	f.setFriendStatus(t, ids[0], ids[1], model.FriendBlocked)
	f.setFriendStatus(t, ids[1], ids[0], model.FriendBlocked)

	res, err := f.svc.MarkPaymentAsPaid(context.Background(), PaymentInput{
		FromUserID: ids[0],
		ToUserID:   ids[1],
		Amount:     10,
	})
	require.NoError(t, err)
	require.Len(t, res.SideEffects, 1)
	assert.Equal(t, EffectFriendBalance, res.SideEffects[0].Kind)

	assert.Equal(t, 0.0, f.rawFriendBalance(t, ids[0], ids[1]))
	assert.Equal(t, 0.0, f.rawFriendBalance(t, ids[1], ids[0]))
}

func TestMarkPaymentAsPaid_AsymmetricPairRollsBack(t *testing.T) {
	f := newFixture(t)
	ids := f.seedUsers(t, 2)
	f.befriend(t, ids[0], ids[1])
	// One accepted mirror and one blocked mirror is a corrupt pair; moving
	// only half of it must abort the whole payment.
	f.setFriendStatus(t, ids[1], ids[0], model.FriendBlocked)

	_, err := f.svc.MarkPaymentAsPaid(context.Background(), PaymentInput{
		FromUserID: ids[0],
		ToUserID:   ids[1],
		Amount:     10,
	})
	require.ErrorIs(t, err, ErrFriendPairMismatch)

	assert.Equal(t, 0.0, f.rawFriendBalance(t, ids[0], ids[1]))
	assert.Equal(t, 0.0, f.rawFriendBalance(t, ids[1], ids[0]))

	var count int64
	require.NoError(t, f.db.Model(&model.Payment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "payment must not be recorded")
}

func TestMarkPaymentAsPaid_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.MarkPaymentAsPaid(context.Background(), PaymentInput{FromUserID: 1, ToUserID: 2, Amount: 0})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.MarkPaymentAsPaid(context.Background(), PaymentInput{FromUserID: 1, ToUserID: 1, Amount: 5})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateExpenseSettlement_FlagsOnly(t *testing.T) {
	f, ids, groupID, expenseID := seedDinner(t)
	a, b := ids[0], ids[1]
	before := f.friendBalance(t, a, b)

	err := f.svc.UpdateExpenseSettlement(context.Background(), expenseID,
		[]SplitPaidUpdate{{UserID: b, IsPaid: true}}, true)
	require.NoError(t, err)

	var sp model.ExpenseSplit
	require.NoError(t, f.db.Where("expense_id = ? AND user_id = ?", expenseID, b).First(&sp).Error)
	assert.True(t, sp.IsPaid)
	require.NotNil(t, sp.PaidAt)

	var e model.Expense
	require.NoError(t, f.db.First(&e, expenseID).Error)
	assert.True(t, e.IsSettled)

	// flags never move money
	assert.Equal(t, before, f.friendBalance(t, a, b))
	assert.Equal(t, 60.0, f.memberBalance(t, groupID, a))

	// unpaid again clears the timestamp
	err = f.svc.UpdateExpenseSettlement(context.Background(), expenseID,
		[]SplitPaidUpdate{{UserID: b, IsPaid: false}}, false)
	require.NoError(t, err)
	sp = model.ExpenseSplit{} // gorm leaves stale fields when scanning NULL into a reused struct
	require.NoError(t, f.db.Where("expense_id = ? AND user_id = ?", expenseID, b).First(&sp).Error)
	assert.False(t, sp.IsPaid)
	assert.Nil(t, sp.PaidAt)
}

func TestUpdateExpenseSettlement_UnknownParticipant(t *testing.T) {
	f, _, _, expenseID := seedDinner(t)

	err := f.svc.UpdateExpenseSettlement(context.Background(), expenseID,
		[]SplitPaidUpdate{{UserID: 999, IsPaid: true}}, false)
	assert.ErrorIs(t, err, ErrValidation)

	err = f.svc.UpdateExpenseSettlement(context.Background(), 404, nil, true)
	assert.ErrorIs(t, err, ErrExpenseNotFound)
}

func TestSettleAllBalancesBetweenFriends_ZeroesThePair(t *testing.T) {
	f, ids, groupID, _ := seedDinner(t)
	a, b := ids[0], ids[1]

	// called from the debtor's side
	res, err := f.svc.SettleAllBalancesBetweenFriends(context.Background(), b, a, &groupID)
	require.NoError(t, err)
	require.True(t, res.Clean())

	assert.InDelta(t, 0.0, f.friendBalance(t, a, b), Epsilon)
	assert.InDelta(t, 0.0, f.friendBalance(t, b, a), Epsilon)
	assert.Equal(t, 0.0, f.memberBalance(t, groupID, b))
	f.assertConservation(t, groupID)

	var p model.Payment
	require.NoError(t, f.db.First(&p, res.PaymentID).Error)
	assert.Equal(t, b, p.FromUserID, "debtor pays")
	assert.Equal(t, a, p.ToUserID)
	assert.Equal(t, 30.0, p.Amount)

	_, err = f.svc.SettleAllBalancesBetweenFriends(context.Background(), b, a, nil)
	assert.ErrorIs(t, err, ErrNoOutstandingBalance)
}

func TestSettleAllBalancesBetweenFriends_CreditorSide(t *testing.T) {
	f, ids, _, _ := seedDinner(t)
	a, c := ids[0], ids[2]

	// called from the creditor's side: the friend still pays them
	res, err := f.svc.SettleAllBalancesBetweenFriends(context.Background(), a, c, nil)
	require.NoError(t, err)

	var p model.Payment
	require.NoError(t, f.db.First(&p, res.PaymentID).Error)
	assert.Equal(t, c, p.FromUserID)
	assert.Equal(t, a, p.ToUserID)
	assert.InDelta(t, 0.0, f.friendBalance(t, a, c), Epsilon)
}

func TestSettleAllBalancesBetweenFriends_NotFriends(t *testing.T) {
	f := newFixture(t)
	ids := f.seedUsers(t, 2)
	_, err := f.svc.SettleAllBalancesBetweenFriends(context.Background(), ids[0], ids[1], nil)
	assert.ErrorIs(t, err, ErrNotFriends)
}

func TestGroupSettlementSuggestions_Greedy(t *testing.T) {
	f, ids, groupID, _ := seedDinner(t)
	a, b, c := ids[0], ids[1], ids[2]

	suggestions, err := f.svc.GroupSettlementSuggestions(context.Background(), groupID)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	// both debtors pay the single creditor, equal amounts
	assert.Equal(t, a, suggestions[0].ToUserID)
	assert.Equal(t, a, suggestions[1].ToUserID)
	assert.ElementsMatch(t, []int64{b, c}, []int64{suggestions[0].FromUserID, suggestions[1].FromUserID})
	assert.Equal(t, 30.0, suggestions[0].Amount)
	assert.Equal(t, 30.0, suggestions[1].Amount)
}

func TestGroupSettlementSuggestions_SettledGroupIsEmpty(t *testing.T) {
	f := newFixture(t)
	ids := f.seedUsers(t, 2)
	groupID := f.seedGroup(t, ids...)

	suggestions, err := f.svc.GroupSettlementSuggestions(context.Background(), groupID)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestGroupSettlementSuggestions_CapAndOrder(t *testing.T) {
	f := newFixture(t)
	ids := f.seedUsers(t, 5)
	groupID := f.seedGroup(t, ids...)

	// one big creditor, four debtors of decreasing size
	set := func(userID int64, balance float64) {
		require.NoError(t, f.db.Model(&model.GroupMember{}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Update("balance", balance).Error)
	}
	set(ids[0], 100)
	set(ids[1], -40)
	set(ids[2], -30)
	set(ids[3], -20)
	set(ids[4], -10)

	suggestions, err := f.svc.GroupSettlementSuggestions(context.Background(), groupID)
	require.NoError(t, err)
	require.Len(t, suggestions, 4)
	for i := 1; i < len(suggestions); i++ {
		assert.GreaterOrEqual(t, suggestions[i-1].Amount, suggestions[i].Amount)
	}
	total := 0.0
	for _, s := range suggestions {
		total += s.Amount
		assert.Equal(t, ids[0], s.ToUserID)
	}
	assert.InDelta(t, 100.0, total, Epsilon)
}

func TestGroupSettlementSuggestions_UnknownGroup(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GroupSettlementSuggestions(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}
