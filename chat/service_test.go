package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/sree030289/spendy-server/model"
	"github.com/sree030289/spendy-server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedMember(t *testing.T, db *gorm.DB, groupID, userID int64) {
	t.Helper()
	gm := model.GroupMember{GroupID: groupID, UserID: userID, IsActive: true}
	require.NoError(t, db.Create(&gm).Error)
}

func TestPostSystemMessage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nil)

	expenseID := int64(42)
	require.NoError(t, svc.PostSystemMessage(context.Background(), 1, "Added expense", &expenseID))

	var msg model.ChatMessage
	require.NoError(t, db.First(&msg).Error)
	assert.Equal(t, model.ChatKindSystem, msg.Kind)
	assert.Nil(t, msg.UserID)
	require.NotNil(t, msg.ExpenseID)
	assert.Equal(t, expenseID, *msg.ExpenseID)
}

func TestPostUserMessage_RequiresMembership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nil)
	seedMember(t, db, 1, 10)

	msg, err := svc.PostUserMessage(context.Background(), 1, 10, "hello")
	require.NoError(t, err)
	require.NotNil(t, msg.UserID)
	assert.Equal(t, int64(10), *msg.UserID)
	assert.Equal(t, model.ChatKindUser, msg.Kind)

	_, err = svc.PostUserMessage(context.Background(), 1, 99, "intruder")
	assert.ErrorIs(t, err, ErrNotGroupMember)
}

func TestHistory_OrderAndPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nil)
	seedMember(t, db, 1, 10)

	var ids []int64
	for i := 0; i < 5; i++ {
		msg, err := svc.PostUserMessage(context.Background(), 1, 10, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	msgs, err := svc.History(context.Background(), 1, 0, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	// newest three, oldest first
	assert.Equal(t, "msg 2", msgs[0].Body)
	assert.Equal(t, "msg 4", msgs[2].Body)

	older, err := svc.History(context.Background(), 1, msgs[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, "msg 0", older[0].Body)
	assert.Equal(t, ids[1], older[1].ID)
}
