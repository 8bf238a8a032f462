package store

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hasanrafi/aistudio/internal/common"
	"github.com/hasanrafi/aistudio/internal/ledger"
	"github.com/hasanrafi/aistudio/internal/models"
	"github.com/hasanrafi/aistudio/internal/payment"
)

// Dispatcher is the single writer over the snapshot. Dispatch applies one
// action to completion before the next is accepted; on error the snapshot is
// left exactly as it was.
type Dispatcher struct {
	log *slog.Logger

	mu    sync.Mutex
	state Snapshot
}

func NewDispatcher(log *slog.Logger, initial Snapshot) *Dispatcher {
	return &Dispatcher{log: log, state: initial.clone()}
}

// Snapshot returns a copy of the current state for rendering and reads.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.clone()
}

// Dispatch applies a single action. The returned warning is non-empty only
// for payment decisions that approved without crediting (see payment.Decide).
func (d *Dispatcher) Dispatch(a Action) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, warning, err := reduce(d.state.clone(), a)
	if err != nil {
		return "", err
	}
	d.state = next
	if warning != "" {
		d.log.Warn("action applied with warning", "action", fmt.Sprintf("%T", a), "warning", warning)
	}
	return warning, nil
}

func reduce(s Snapshot, a Action) (Snapshot, string, error) {
	switch act := a.(type) {
	case RegisterUser:
		return reduceRegisterUser(s, act)
	case UpdateUser:
		return reduceUpdateUser(s, act)
	case AddCredits:
		return reduceAddCredits(s, act)
	case RemoveCredits:
		return reduceRemoveCredits(s, act)
	case SubmitPayment:
		return reduceSubmitPayment(s, act)
	case DecidePayment:
		return reduceDecidePayment(s, act)
	case UpdatePaymentDetails:
		return reduceUpdatePaymentDetails(s, act)
	case UpsertCreditPackage:
		return reduceUpsertCreditPackage(s, act)
	case DeleteCreditPackage:
		return reduceDeleteCreditPackage(s, act)
	case RecordGeneration:
		return reduceRecordGeneration(s, act)
	case DeleteImage:
		return reduceDeleteImage(s, act)
	default:
		return s, "", fmt.Errorf("%w: unhandled action %T", common.ErrInvalidInput, a)
	}
}

func reduceRegisterUser(s Snapshot, a RegisterUser) (Snapshot, string, error) {
	u := a.User
	if strings.TrimSpace(u.Email) == "" || strings.TrimSpace(u.Name) == "" {
		return s, "", fmt.Errorf("%w: name and email are required", common.ErrInvalidInput)
	}
	if _, exists := s.UserByEmail(u.Email); exists {
		return s, "", common.ErrEmailTaken
	}
	s.Users = append(s.Users, u)
	return s, "", nil
}

func reduceUpdateUser(s Snapshot, a UpdateUser) (Snapshot, string, error) {
	if _, ok := s.UserByID(a.User.ID); !ok {
		return s, "", fmt.Errorf("user %s: %w", a.User.ID, common.ErrNotFound)
	}
	return s.replaceUser(a.User), "", nil
}

func reduceAddCredits(s Snapshot, a AddCredits) (Snapshot, string, error) {
	u, ok := s.UserByID(a.UserID)
	if !ok {
		return s, "", fmt.Errorf("user %s: %w", a.UserID, common.ErrNotFound)
	}
	updated, err := ledger.Credit(u, a.Amount)
	if err != nil {
		return s, "", err
	}
	return s.replaceUser(updated), "", nil
}

func reduceRemoveCredits(s Snapshot, a RemoveCredits) (Snapshot, string, error) {
	u, ok := s.UserByID(a.UserID)
	if !ok {
		return s, "", fmt.Errorf("user %s: %w", a.UserID, common.ErrNotFound)
	}
	updated, err := ledger.Remove(u, a.Amount)
	if err != nil {
		return s, "", err
	}
	return s.replaceUser(updated), "", nil
}

func reduceSubmitPayment(s Snapshot, a SubmitPayment) (Snapshot, string, error) {
	user, ok := s.UserByID(a.UserID)
	if !ok {
		return s, "", fmt.Errorf("user %s: %w", a.UserID, common.ErrNotFound)
	}
	pkg, ok := s.PackageByID(a.PackageID)
	if !ok {
		return s, "", fmt.Errorf("package %s: %w", a.PackageID, common.ErrNotFound)
	}
	req, err := payment.Submit(a.ID, user, pkg, a.TrxID, a.Now)
	if err != nil {
		return s, "", err
	}
	// most-recent-first
	s.Payments = append([]models.PaymentRequest{req}, s.Payments...)
	return s, "", nil
}

func reduceDecidePayment(s Snapshot, a DecidePayment) (Snapshot, string, error) {
	req, ok := s.PaymentByID(a.RequestID)
	if !ok {
		return s, "", fmt.Errorf("payment request %s: %w", a.RequestID, common.ErrNotFound)
	}
	res, err := payment.Decide(req, a.Decision, s.PackageByID)
	if err != nil {
		return s, "", err
	}
	if res.CreditAmount > 0 {
		owner, ok := s.UserByID(req.UserID)
		if !ok {
			return s, "", fmt.Errorf("payment owner %s: %w", req.UserID, common.ErrNotFound)
		}
		credited, err := ledger.Credit(owner, res.CreditAmount)
		if err != nil {
			return s, "", err
		}
		s = s.replaceUser(credited)
	}
	return s.replacePayment(res.Request), res.Warning, nil
}

func reduceUpdatePaymentDetails(s Snapshot, a UpdatePaymentDetails) (Snapshot, string, error) {
	if strings.TrimSpace(a.Details.MethodName) == "" || strings.TrimSpace(a.Details.AccountNumber) == "" {
		return s, "", fmt.Errorf("%w: method name and account number are required", common.ErrInvalidInput)
	}
	s.Settings.PaymentDetails = a.Details
	return s, "", nil
}

func reduceUpsertCreditPackage(s Snapshot, a UpsertCreditPackage) (Snapshot, string, error) {
	pkg := a.Package
	if strings.TrimSpace(pkg.Name) == "" {
		return s, "", fmt.Errorf("%w: package name is required", common.ErrInvalidInput)
	}
	if pkg.Credits <= 0 {
		return s, "", fmt.Errorf("%w: package credits must be positive", common.ErrInvalidInput)
	}
	if pkg.Price < 0 {
		return s, "", fmt.Errorf("%w: package price cannot be negative", common.ErrInvalidInput)
	}
	for i := range s.Settings.CreditPackages {
		if s.Settings.CreditPackages[i].ID == pkg.ID {
			s.Settings.CreditPackages[i] = pkg
			return s, "", nil
		}
	}
	s.Settings.CreditPackages = append(s.Settings.CreditPackages, pkg)
	return s, "", nil
}

func reduceDeleteCreditPackage(s Snapshot, a DeleteCreditPackage) (Snapshot, string, error) {
	for i := range s.Settings.CreditPackages {
		if s.Settings.CreditPackages[i].ID == a.PackageID {
			s.Settings.CreditPackages = append(s.Settings.CreditPackages[:i:i], s.Settings.CreditPackages[i+1:]...)
			return s, "", nil
		}
	}
	return s, "", fmt.Errorf("package %s: %w", a.PackageID, common.ErrNotFound)
}

func reduceRecordGeneration(s Snapshot, a RecordGeneration) (Snapshot, string, error) {
	img := a.Image
	if strings.TrimSpace(img.Prompt) == "" || img.Src == "" {
		return s, "", fmt.Errorf("%w: image prompt and payload are required", common.ErrInvalidInput)
	}
	owner, ok := s.UserByID(img.UserID)
	if !ok {
		return s, "", fmt.Errorf("user %s: %w", img.UserID, common.ErrNotFound)
	}
	// debit and record commit together or not at all
	debited, err := ledger.Debit(owner, 1)
	if err != nil {
		return s, "", err
	}
	s = s.replaceUser(debited)
	s.Images = append([]models.GeneratedImage{img}, s.Images...)
	return s, "", nil
}

func reduceDeleteImage(s Snapshot, a DeleteImage) (Snapshot, string, error) {
	for i := range s.Images {
		if s.Images[i].ID == a.ImageID {
			if s.Images[i].UserID != a.UserID {
				break
			}
			s.Images = append(s.Images[:i:i], s.Images[i+1:]...)
			return s, "", nil
		}
	}
	return s, "", fmt.Errorf("image %s: %w", a.ImageID, common.ErrNotFound)
}
