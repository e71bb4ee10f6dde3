package ledger

import (
	"errors"
	"testing"

	"github.com/sree030289/spendy-server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSplits_EqualThreeWay(t *testing.T) {
	splits, err := ComputeSplits(model.SplitEqual, 90, []SplitInput{{UserID: 1}, {UserID: 2}, {UserID: 3}})
	require.NoError(t, err)
	require.Len(t, splits, 3)
	for _, sp := range splits {
		assert.InDelta(t, 30.0, sp.Amount, Epsilon)
	}
}

func TestComputeSplits_EqualRemainderOnLast(t *testing.T) {
	splits, err := ComputeSplits(model.SplitEqual, 100, []SplitInput{{UserID: 1}, {UserID: 2}, {UserID: 3}})
	require.NoError(t, err)
	assert.Equal(t, 33.33, splits[0].Amount)
	assert.Equal(t, 33.33, splits[1].Amount)
	assert.Equal(t, 33.34, splits[2].Amount)

	sum := 0.0
	for _, sp := range splits {
		sum += sp.Amount
	}
	assert.InDelta(t, 100.0, sum, Epsilon)
}

func TestComputeSplits_CustomExact(t *testing.T) {
	splits, err := ComputeSplits(model.SplitCustom, 50, []SplitInput{
		{UserID: 1, Amount: 20}, {UserID: 2, Amount: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, 20.0, splits[0].Amount)
	assert.Equal(t, 30.0, splits[1].Amount)
}

func TestComputeSplits_CustomMismatchRejected(t *testing.T) {
	_, err := ComputeSplits(model.SplitCustom, 50, []SplitInput{
		{UserID: 1, Amount: 20}, {UserID: 2, Amount: 20},
	})
	require.Error(t, err)
	var mismatch *SplitMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 50.0, mismatch.Want)
	assert.Equal(t, 40.0, mismatch.Got)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestComputeSplits_PercentageRemainderOnLast(t *testing.T) {
	splits, err := ComputeSplits(model.SplitPercentage, 100, []SplitInput{
		{UserID: 1, Percentage: 33.33}, {UserID: 2, Percentage: 33.33}, {UserID: 3, Percentage: 33.34},
	})
	require.NoError(t, err)
	sum := 0.0
	for _, sp := range splits {
		require.NotNil(t, sp.Percentage)
		sum += sp.Amount
	}
	assert.InDelta(t, 100.0, sum, Epsilon)
}

func TestComputeSplits_PercentageMustSumTo100(t *testing.T) {
	_, err := ComputeSplits(model.SplitPercentage, 100, []SplitInput{
		{UserID: 1, Percentage: 60}, {UserID: 2, Percentage: 50},
	})
	require.Error(t, err)
	var mismatch *PercentageMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 110.0, mismatch.Got)
}

func TestComputeSplits_Validation(t *testing.T) {
	_, err := ComputeSplits(model.SplitEqual, 0, []SplitInput{{UserID: 1}})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = ComputeSplits(model.SplitEqual, 10, nil)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = ComputeSplits(model.SplitCustom, 10, []SplitInput{{UserID: 1, Amount: -5}, {UserID: 2, Amount: 15}})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = ComputeSplits("weekly", 10, []SplitInput{{UserID: 1}})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestComputeSplits_DuplicateParticipantRejected(t *testing.T) {
	_, err := ComputeSplits(model.SplitEqual, 30, []SplitInput{{UserID: 1}, {UserID: 2}, {UserID: 2}})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = ComputeSplits(model.SplitCustom, 30, []SplitInput{{UserID: 1, Amount: 10}, {UserID: 1, Amount: 20}})
	assert.True(t, errors.Is(err, ErrValidation))
}
