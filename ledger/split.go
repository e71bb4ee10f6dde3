package ledger

import (
	"fmt"
	"math"

	"github.com/sree030289/spendy-server/model"
)

// Epsilon is the cent tolerance used for all float comparisons in the ledger.
const Epsilon = 0.01

// SplitInput is one participant's requested share of an expense. Amount is
// used for custom splits, Percentage for percentage splits; equal splits
// need only the UserID.
type SplitInput struct {
	UserID     int64   `json:"user_id"`
	Amount     float64 `json:"amount,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
}

// roundCents rounds to two decimal places.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeSplits turns split inputs into concrete per-participant amounts.
// Rounding remainders land on the last participant so the shares always sum
// to the expense amount exactly. Custom and percentage inputs are
// re-validated here rather than trusting the client.
func ComputeSplits(splitType model.SplitType, amount float64, inputs []SplitInput) ([]model.ExpenseSplit, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one participant required", ErrValidation)
	}
	seen := make(map[int64]struct{}, len(inputs))
	for _, in := range inputs {
		if _, ok := seen[in.UserID]; ok {
			return nil, fmt.Errorf("%w: duplicate participant %d", ErrValidation, in.UserID)
		}
		seen[in.UserID] = struct{}{}
	}

	splits := make([]model.ExpenseSplit, len(inputs))
	switch splitType {
	case model.SplitEqual:
		per := roundCents(amount / float64(len(inputs)))
		running := 0.0
		for i, in := range inputs {
			share := per
			if i == len(inputs)-1 {
				share = roundCents(amount - running)
			}
			splits[i] = model.ExpenseSplit{UserID: in.UserID, Amount: share}
			running = roundCents(running + share)
		}

	case model.SplitCustom:
		sum := 0.0
		for i, in := range inputs {
			if in.Amount < 0 {
				return nil, fmt.Errorf("%w: negative split amount", ErrValidation)
			}
			splits[i] = model.ExpenseSplit{UserID: in.UserID, Amount: roundCents(in.Amount)}
			sum = roundCents(sum + in.Amount)
		}
		if math.Abs(sum-amount) > Epsilon {
			return nil, &SplitMismatchError{Want: amount, Got: sum}
		}

	case model.SplitPercentage:
		pctSum := 0.0
		for _, in := range inputs {
			pctSum += in.Percentage
		}
		if math.Abs(pctSum-100) > Epsilon {
			return nil, &PercentageMismatchError{Got: pctSum}
		}
		running := 0.0
		for i, in := range inputs {
			share := roundCents(amount * in.Percentage / 100)
			if i == len(inputs)-1 {
				share = roundCents(amount - running)
			}
			pct := in.Percentage
			splits[i] = model.ExpenseSplit{UserID: in.UserID, Amount: share, Percentage: &pct}
			running = roundCents(running + share)
		}

	default:
		return nil, fmt.Errorf("%w: unknown split type %q", ErrValidation, splitType)
	}

	return splits, nil
}
