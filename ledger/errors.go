package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors, compared with errors.Is. Structural errors abort the
// whole operation and roll back its transaction; ErrNotFriends is the one
// tolerated case, reported as a side-effect failure instead (see Report).
var (
	ErrExpenseNotFound      = errors.New("expense not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrNotGroupMember       = errors.New("user is not an active group member")
	ErrNotFriends           = errors.New("no accepted friendship between users")
	ErrFriendPairMismatch   = errors.New("friendship mirror rows out of sync")
	ErrNoOutstandingBalance = errors.New("no outstanding balance to settle")
	ErrValidation           = errors.New("validation failed")
)

// SplitMismatchError reports split amounts that do not add up to the
// expense amount.
type SplitMismatchError struct {
	Want float64
	Got  float64
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("split amounts sum to %.2f, expense amount is %.2f", e.Got, e.Want)
}

func (e *SplitMismatchError) Unwrap() error { return ErrValidation }

// PercentageMismatchError reports split percentages that do not sum to 100.
type PercentageMismatchError struct {
	Got float64
}

func (e *PercentageMismatchError) Error() string {
	return fmt.Sprintf("split percentages sum to %.2f, expected 100", e.Got)
}

func (e *PercentageMismatchError) Unwrap() error { return ErrValidation }

// IsValidation returns true if the error is due to invalid caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrExpenseNotFound) ||
		errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}
