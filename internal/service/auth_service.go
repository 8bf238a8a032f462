package service

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hasanrafi/aistudio/internal/auth"
	"github.com/hasanrafi/aistudio/internal/common"
	"github.com/hasanrafi/aistudio/internal/config"
	"github.com/hasanrafi/aistudio/internal/models"
	"github.com/hasanrafi/aistudio/internal/store"
)

// AdminUserID is the reserved identity of the administrator account, which
// lives outside the user table.
const AdminUserID = "admin"

type AuthService struct {
	cfg   config.Config
	log   *slog.Logger
	store *store.Dispatcher
}

func NewAuthService(cfg config.Config, log *slog.Logger, dispatcher *store.Dispatcher) *AuthService {
	return &AuthService{cfg: cfg, log: log, store: dispatcher}
}

// Register creates a new active user with the configured starter credits and
// returns the user together with a session token.
func (s *AuthService) Register(name, email, password string) (models.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if password == "" {
		return models.User{}, "", fmt.Errorf("%w: password is required", common.ErrInvalidInput)
	}
	if email == s.cfg.AdminEmail {
		return models.User{}, "", common.ErrEmailTaken
	}

	user := models.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Password:  password,
		Credits:   s.cfg.StarterCredits,
		Role:      models.RoleUser,
		Status:    models.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.store.Dispatch(store.RegisterUser{User: user}); err != nil {
		return models.User{}, "", err
	}

	token, err := auth.GenerateToken(user.ID, []byte(s.cfg.JWTSecret), s.cfg.TokenValidity)
	if err != nil {
		return models.User{}, "", fmt.Errorf("generate token: %w", err)
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, token, nil
}

// Login authenticates either the reserved administrator identity or a
// regular user from the snapshot.
func (s *AuthService) Login(email, password string) (models.User, string, error) {
	if s.isAdminLogin(email, password) {
		admin := s.AdminUser()
		token, err := auth.GenerateToken(admin.ID, []byte(s.cfg.JWTSecret), s.cfg.TokenValidity)
		if err != nil {
			return models.User{}, "", fmt.Errorf("generate token: %w", err)
		}
		return admin, token, nil
	}

	user, ok := s.store.Snapshot().UserByEmail(strings.TrimSpace(email))
	if !ok {
		return models.User{}, "", common.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return models.User{}, "", common.ErrUnauthorized
	}
	if user.Status == models.StatusBlocked {
		return models.User{}, "", common.ErrBlocked
	}

	token, err := auth.GenerateToken(user.ID, []byte(s.cfg.JWTSecret), s.cfg.TokenValidity)
	if err != nil {
		return models.User{}, "", fmt.Errorf("generate token: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves a session token to the current user record, so
// balance and status changes made after login are always visible.
func (s *AuthService) UserFromToken(token string) (models.User, error) {
	userID, err := auth.UserIDFromToken(token, []byte(s.cfg.JWTSecret))
	if err != nil {
		return models.User{}, err
	}
	if userID == AdminUserID {
		return s.AdminUser(), nil
	}
	user, ok := s.store.Snapshot().UserByID(userID)
	if !ok {
		return models.User{}, common.ErrUnauthorized
	}
	if user.Status == models.StatusBlocked {
		return models.User{}, common.ErrBlocked
	}
	return user, nil
}

// AdminUser is the well-known administrator. It never enters the ledger; the
// balance is a sentinel for "unlimited".
func (s *AuthService) AdminUser() models.User {
	return models.User{
		ID:      AdminUserID,
		Name:    "Admin",
		Email:   s.cfg.AdminEmail,
		Credits: math.MaxInt32,
		Role:    models.RoleAdmin,
		Status:  models.StatusActive,
	}
}

// VerifyAdmin checks the administrator credential pair for the admin HTTP
// surface.
func (s *AuthService) VerifyAdmin(email, password string) bool {
	return s.isAdminLogin(email, password)
}

func (s *AuthService) isAdminLogin(email, password string) bool {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.cfg.AdminEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) == 1
	return emailOK && passOK
}
