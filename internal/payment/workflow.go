// Package payment implements the payment request lifecycle: a request is
// created pending and resolves exactly once to approved or rejected.
package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/hasanrafi/aistudio/internal/common"
	"github.com/hasanrafi/aistudio/internal/models"
)

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Submit builds a new pending request for the given user and package. The
// package name and credit amount are frozen on the request so that editing or
// deleting the package later never changes what this payment buys.
func Submit(id string, user models.User, pkg models.CreditPackage, trxID string, now time.Time) (models.PaymentRequest, error) {
	if strings.TrimSpace(trxID) == "" {
		return models.PaymentRequest{}, fmt.Errorf("%w: transaction id is required", common.ErrInvalidInput)
	}
	if user.Role == models.RoleAdmin {
		return models.PaymentRequest{}, fmt.Errorf("%w: administrators cannot submit payment requests", common.ErrInvalidInput)
	}
	return models.PaymentRequest{
		ID:             id,
		UserID:         user.ID,
		UserEmail:      user.Email,
		PackageID:      pkg.ID,
		PackageName:    pkg.Name,
		PackageCredits: pkg.Credits,
		TrxID:          strings.TrimSpace(trxID),
		Status:         models.PaymentPending,
		CreatedAt:      now,
	}, nil
}

// DecideResult carries the resolved request plus the credit amount to apply
// to its owner. CreditAmount is zero for rejections. Warning is set when an
// approval could not determine the amount; the approval still stands but no
// credits are applied and the caller must surface the message.
type DecideResult struct {
	Request      models.PaymentRequest
	CreditAmount int
	Warning      string
}

// Decide resolves a pending request. Both outcomes are terminal; deciding an
// already resolved request fails with ErrAlreadyResolved. The credited amount
// comes from the value frozen at submission time; lookup is consulted only
// for legacy requests that carry no frozen amount.
func Decide(req models.PaymentRequest, decision Decision, lookup func(packageID string) (models.CreditPackage, bool)) (DecideResult, error) {
	if req.Status != models.PaymentPending {
		return DecideResult{}, common.ErrAlreadyResolved
	}

	switch decision {
	case DecisionRejected:
		req.Status = models.PaymentRejected
		return DecideResult{Request: req}, nil

	case DecisionApproved:
		req.Status = models.PaymentApproved
		amount := req.PackageCredits
		if amount <= 0 {
			pkg, ok := lookup(req.PackageID)
			if !ok {
				return DecideResult{
					Request: req,
					Warning: fmt.Sprintf("package %q no longer exists; payment approved without crediting", req.PackageName),
				}, nil
			}
			amount = pkg.Credits
		}
		return DecideResult{Request: req, CreditAmount: amount}, nil

	default:
		return DecideResult{}, fmt.Errorf("%w: unknown decision %q", common.ErrInvalidInput, decision)
	}
}
