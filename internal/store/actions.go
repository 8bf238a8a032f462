package store

import (
	"time"

	"github.com/hasanrafi/aistudio/internal/models"
	"github.com/hasanrafi/aistudio/internal/payment"
)

// Action is the closed set of intents the dispatcher accepts. The unexported
// marker keeps the set sealed to this package, so the reducer's type switch
// is the single place every intent is handled.
type Action interface {
	isAction()
}

// RegisterUser adds a new user. The caller builds the full record (id,
// starter credits, role, status); the reducer enforces email uniqueness.
type RegisterUser struct {
	User models.User
}

// UpdateUser replaces a user record by id, last-writer-wins. Used for admin
// status edits.
type UpdateUser struct {
	User models.User
}

// AddCredits is an administrator adjustment or a payment approval side
// effect applied through DecidePayment; exposed directly for admin edits.
type AddCredits struct {
	UserID string
	Amount int
}

// RemoveCredits is the explicit administrator removal; bounded by the
// current balance.
type RemoveCredits struct {
	UserID string
	Amount int
}

// SubmitPayment creates a pending payment request. The reducer resolves the
// user and package from the current snapshot and freezes the package fields
// on the request.
type SubmitPayment struct {
	ID        string
	UserID    string
	PackageID string
	TrxID     string
	Now       time.Time
}

// DecidePayment resolves a pending request and, on approval, credits the
// owner in the same step.
type DecidePayment struct {
	RequestID string
	Decision  payment.Decision
}

// UpdatePaymentDetails replaces the process-wide payment details.
type UpdatePaymentDetails struct {
	Details models.PaymentDetails
}

// UpsertCreditPackage creates or replaces a catalog entry by id.
type UpsertCreditPackage struct {
	Package models.CreditPackage
}

// DeleteCreditPackage removes a catalog entry. Historical payment requests
// keep their frozen copies and are not touched.
type DeleteCreditPackage struct {
	PackageID string
}

// RecordGeneration appends a generated image to the history and debits one
// credit from its owner as a single step. If the debit fails the image is
// not recorded.
type RecordGeneration struct {
	Image models.GeneratedImage
}

// DeleteImage removes an image owned by UserID. Images of other users are
// not visible to the caller and report as not found.
type DeleteImage struct {
	ImageID string
	UserID  string
}

func (RegisterUser) isAction()         {}
func (UpdateUser) isAction()           {}
func (AddCredits) isAction()           {}
func (RemoveCredits) isAction()        {}
func (SubmitPayment) isAction()        {}
func (DecidePayment) isAction()        {}
func (UpdatePaymentDetails) isAction() {}
func (UpsertCreditPackage) isAction()  {}
func (DeleteCreditPackage) isAction()  {}
func (RecordGeneration) isAction()     {}
func (DeleteImage) isAction()          {}
