package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hasanrafi/aistudio/internal/common"
	"github.com/hasanrafi/aistudio/internal/config"
	"github.com/hasanrafi/aistudio/internal/models"
	"github.com/hasanrafi/aistudio/internal/store"
)

func newAuthService(t *testing.T) (*AuthService, *store.Dispatcher) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := store.NewDispatcher(log, store.Snapshot{})
	cfg := config.Config{
		AdminEmail:     "admin@example.com",
		AdminPassword:  "admin-pass",
		JWTSecret:      "test-secret",
		TokenValidity:  time.Hour,
		StarterCredits: 10,
	}
	return NewAuthService(cfg, log, d), d
}

func TestRegister_StarterCredits(t *testing.T) {
	t.Parallel()

	svc, d := newAuthService(t)
	user, token, err := svc.Register("Alice", "a@example.com", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, 10, user.Credits)
	require.Equal(t, models.RoleUser, user.Role)
	require.Equal(t, models.StatusActive, user.Status)

	stored, ok := d.Snapshot().UserByEmail("a@example.com")
	require.True(t, ok)
	require.Equal(t, user.ID, stored.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newAuthService(t)
	_, _, err := svc.Register("Alice", "a@example.com", "pw")
	require.NoError(t, err)

	_, _, err = svc.Register("Alice II", "a@example.com", "pw2")
	require.ErrorIs(t, err, common.ErrEmailTaken)
}

func TestRegister_AdminEmailRefused(t *testing.T) {
	t.Parallel()

	svc, _ := newAuthService(t)
	_, _, err := svc.Register("Imposter", "admin@example.com", "pw")
	require.ErrorIs(t, err, common.ErrEmailTaken)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newAuthService(t)
	_, _, err := svc.Register("", "a@example.com", "pw")
	require.ErrorIs(t, err, common.ErrInvalidInput)

	_, _, err = svc.Register("Alice", "a@example.com", "")
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestLogin_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := newAuthService(t)
	registered, _, err := svc.Register("Alice", "a@example.com", "pw")
	require.NoError(t, err)

	user, token, err := svc.Login("a@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)

	resolved, err := svc.UserFromToken(token)
	require.NoError(t, err)
	require.Equal(t, registered.ID, resolved.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	svc, _ := newAuthService(t)
	_, _, err := svc.Register("Alice", "a@example.com", "pw")
	require.NoError(t, err)

	_, _, err = svc.Login("a@example.com", "nope")
	require.ErrorIs(t, err, common.ErrUnauthorized)

	_, _, err = svc.Login("ghost@example.com", "pw")
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLogin_BlockedUser(t *testing.T) {
	t.Parallel()

	svc, d := newAuthService(t)
	user, _, err := svc.Register("Alice", "a@example.com", "pw")
	require.NoError(t, err)

	user.Status = models.StatusBlocked
	_, err = d.Dispatch(store.UpdateUser{User: user})
	require.NoError(t, err)

	_, _, err = svc.Login("a@example.com", "pw")
	require.ErrorIs(t, err, common.ErrBlocked)
}

func TestLogin_Admin(t *testing.T) {
	t.Parallel()

	svc, _ := newAuthService(t)
	admin, token, err := svc.Login("admin@example.com", "admin-pass")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, admin.Role)
	require.Equal(t, AdminUserID, admin.ID)

	resolved, err := svc.UserFromToken(token)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, resolved.Role)
}

func TestVerifyAdmin(t *testing.T) {
	t.Parallel()

	svc, _ := newAuthService(t)
	require.True(t, svc.VerifyAdmin("admin@example.com", "admin-pass"))
	require.False(t, svc.VerifyAdmin("admin@example.com", "wrong"))
	require.False(t, svc.VerifyAdmin("user@example.com", "admin-pass"))
}

func TestUserFromToken_ReflectsCurrentState(t *testing.T) {
	t.Parallel()

	svc, d := newAuthService(t)
	user, token, err := svc.Register("Alice", "a@example.com", "pw")
	require.NoError(t, err)

	_, err = d.Dispatch(store.AddCredits{UserID: user.ID, Amount: 100})
	require.NoError(t, err)

	resolved, err := svc.UserFromToken(token)
	require.NoError(t, err)
	require.Equal(t, 110, resolved.Credits)

	// a blocked user cannot keep using an old token
	resolved.Status = models.StatusBlocked
	_, err = d.Dispatch(store.UpdateUser{User: resolved})
	require.NoError(t, err)

	_, err = svc.UserFromToken(token)
	require.ErrorIs(t, err, common.ErrBlocked)
}
