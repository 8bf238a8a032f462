// Package ledger holds the pure credit balance operations. Every function
// takes the current user value and an amount and returns the updated user or
// an error; committing the result is the dispatcher's job.
package ledger

import (
	"fmt"

	"github.com/hasanrafi/aistudio/internal/common"
	"github.com/hasanrafi/aistudio/internal/models"
)

// Debit reduces the balance by amount. A debit that would cross zero is
// rejected, never clamped.
func Debit(u models.User, amount int) (models.User, error) {
	if amount <= 0 {
		return u, fmt.Errorf("%w: debit amount must be positive, got %d", common.ErrInvalidInput, amount)
	}
	if u.Credits < amount {
		return u, common.ErrInsufficientBalance
	}
	u.Credits -= amount
	return u, nil
}

// Credit unconditionally increases the balance. Used as the payment approval
// side effect and for administrator adjustments.
func Credit(u models.User, amount int) (models.User, error) {
	if amount <= 0 {
		return u, fmt.Errorf("%w: credit amount must be positive, got %d", common.ErrInvalidInput, amount)
	}
	u.Credits += amount
	return u, nil
}

// Remove is the administrator-initiated counterpart of Debit. Unlike a spend
// it is invoked explicitly, but the same bound applies: removing more than
// the user holds fails.
func Remove(u models.User, amount int) (models.User, error) {
	if amount <= 0 {
		return u, fmt.Errorf("%w: removal amount must be positive, got %d", common.ErrInvalidInput, amount)
	}
	if u.Credits < amount {
		return u, common.ErrInsufficientBalance
	}
	u.Credits -= amount
	return u, nil
}
