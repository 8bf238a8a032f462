package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hasanrafi/aistudio/internal/common"
	"github.com/hasanrafi/aistudio/internal/models"
)

var (
	testUser = models.User{ID: "u1", Email: "a@example.com", Role: models.RoleUser}
	testPkg  = models.CreditPackage{ID: "pkg1", Name: "Starter Pack", Credits: 100, Price: 50}
)

func noLookup(string) (models.CreditPackage, bool) {
	return models.CreditPackage{}, false
}

func TestSubmit_FreezesPackageFields(t *testing.T) {
	t.Parallel()

	now := time.Now()
	req, err := Submit("p1", testUser, testPkg, "TX1", now)
	require.NoError(t, err)
	require.Equal(t, models.PaymentPending, req.Status)
	require.Equal(t, "Starter Pack", req.PackageName)
	require.Equal(t, 100, req.PackageCredits)
	require.Equal(t, "a@example.com", req.UserEmail)
	require.Equal(t, now, req.CreatedAt)
}

func TestSubmit_BlankTrxID(t *testing.T) {
	t.Parallel()

	for _, trx := range []string{"", "   ", "\t"} {
		_, err := Submit("p1", testUser, testPkg, trx, time.Now())
		require.ErrorIs(t, err, common.ErrInvalidInput)
	}
}

func TestSubmit_AdminRefused(t *testing.T) {
	t.Parallel()

	admin := models.User{ID: "admin", Role: models.RoleAdmin}
	_, err := Submit("p1", admin, testPkg, "TX1", time.Now())
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestDecide_ApprovedUsesFrozenAmount(t *testing.T) {
	t.Parallel()

	req, err := Submit("p1", testUser, testPkg, "TX1", time.Now())
	require.NoError(t, err)

	// the catalog lookup must not matter once the amount is frozen
	res, err := Decide(req, DecisionApproved, noLookup)
	require.NoError(t, err)
	require.Equal(t, models.PaymentApproved, res.Request.Status)
	require.Equal(t, 100, res.CreditAmount)
	require.Empty(t, res.Warning)
}

func TestDecide_Rejected(t *testing.T) {
	t.Parallel()

	req, err := Submit("p1", testUser, testPkg, "TX1", time.Now())
	require.NoError(t, err)

	res, err := Decide(req, DecisionRejected, noLookup)
	require.NoError(t, err)
	require.Equal(t, models.PaymentRejected, res.Request.Status)
	require.Zero(t, res.CreditAmount)
}

func TestDecide_Terminal(t *testing.T) {
	t.Parallel()

	req, err := Submit("p1", testUser, testPkg, "TX1", time.Now())
	require.NoError(t, err)

	res, err := Decide(req, DecisionApproved, noLookup)
	require.NoError(t, err)

	for _, d := range []Decision{DecisionApproved, DecisionRejected} {
		_, err := Decide(res.Request, d, noLookup)
		require.ErrorIs(t, err, common.ErrAlreadyResolved)
	}
}

func TestDecide_LegacyRequestFallsBackToCatalog(t *testing.T) {
	t.Parallel()

	req := models.PaymentRequest{ID: "p1", UserID: "u1", PackageID: "pkg1", Status: models.PaymentPending}

	res, err := Decide(req, DecisionApproved, func(id string) (models.CreditPackage, bool) {
		require.Equal(t, "pkg1", id)
		return testPkg, true
	})
	require.NoError(t, err)
	require.Equal(t, 100, res.CreditAmount)
}

func TestDecide_LegacyRequestDeletedPackageWarns(t *testing.T) {
	t.Parallel()

	req := models.PaymentRequest{ID: "p1", UserID: "u1", PackageID: "gone", PackageName: "Old Pack", Status: models.PaymentPending}

	res, err := Decide(req, DecisionApproved, noLookup)
	require.NoError(t, err)
	require.Equal(t, models.PaymentApproved, res.Request.Status)
	require.Zero(t, res.CreditAmount)
	require.Contains(t, res.Warning, "Old Pack")
}

func TestDecide_UnknownDecision(t *testing.T) {
	t.Parallel()

	req := models.PaymentRequest{Status: models.PaymentPending}
	_, err := Decide(req, Decision("maybe"), noLookup)
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestDecide_ImmutableIdentityFields(t *testing.T) {
	t.Parallel()

	req, err := Submit("p1", testUser, testPkg, "TX1", time.Now())
	require.NoError(t, err)

	res, err := Decide(req, DecisionApproved, noLookup)
	require.NoError(t, err)
	require.Equal(t, req.UserID, res.Request.UserID)
	require.Equal(t, req.PackageID, res.Request.PackageID)
	require.Equal(t, req.TrxID, res.Request.TrxID)
	require.Equal(t, req.CreatedAt, res.Request.CreatedAt)
}
