// Package api exposes the application over HTTP. User routes authenticate
// with session tokens; the administrator surface sits behind basic auth with
// the reserved admin credential.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/hasanrafi/aistudio/internal/common"
	"github.com/hasanrafi/aistudio/internal/favorites"
	"github.com/hasanrafi/aistudio/internal/models"
	"github.com/hasanrafi/aistudio/internal/payment"
	"github.com/hasanrafi/aistudio/internal/service"
	"github.com/hasanrafi/aistudio/internal/store"
)

type ctxKey int

const ctxKeyUser ctxKey = 0

type Server struct {
	addr        string
	log         *slog.Logger
	store       *store.Dispatcher
	auth        *service.AuthService
	generations *service.GenerationService
	favorites   *favorites.Store
	router      *chi.Mux
}

func NewServer(addr string, log *slog.Logger, dispatcher *store.Dispatcher, auth *service.AuthService, generations *service.GenerationService, favs *favorites.Store) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:        addr,
		log:         log,
		store:       dispatcher,
		auth:        auth,
		generations: generations,
		favorites:   favs,
		router:      r,
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(protected chi.Router) {
			protected.Use(s.sessionMiddleware)
			protected.Get("/me", s.handleMe)
			protected.Get("/settings", s.handleSettings)
			protected.Post("/payments", s.handleSubmitPayment)
			protected.Get("/payments", s.handleListOwnPayments)
			protected.Post("/generate", s.handleGenerate)
			protected.Get("/images", s.handleListImages)
			protected.Delete("/images/{id}", s.handleDeleteImage)
			protected.Post("/images/{id}/favorite", s.handleToggleFavorite)
			protected.Get("/favorites", s.handleListFavorites)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.adminAuthMiddleware)
		r.Get("/payments", s.handleListPayments)
		r.Post("/payments/{id}/decision", s.handleDecidePayment)
		r.Get("/users", s.handleListUsers)
		r.Post("/users/{id}/credits", s.handleAdjustCredits)
		r.Post("/users/{id}/status", s.handleSetUserStatus)
		r.Get("/packages", s.handleListPackages)
		r.Post("/packages", s.handleCreatePackage)
		r.Put("/packages/{id}", s.handleUpdatePackage)
		r.Delete("/packages/{id}", s.handleDeletePackage)
		r.Put("/payment-details", s.handleUpdatePaymentDetails)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // generation round trips are slow
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

// --- middleware ---

func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, common.ErrUnauthorized)
			return
		}
		user, err := s.auth.UserFromToken(token)
		if err != nil {
			s.writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUser, user)))
	})
}

func (s *Server) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, pass, ok := r.BasicAuth()
		if !ok || !s.auth.VerifyAdmin(email, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="aistudio"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) models.User {
	user, _ := r.Context().Value(ctxKeyUser).(models.User)
	return user
}

// --- auth handlers ---

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	user, token, err := s.auth.Register(req.Name, req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	user, token, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Snapshot().Settings)
}

// --- payment handlers ---

type submitPaymentRequest struct {
	PackageID string `json:"package_id"`
	TrxID     string `json:"trx_id"`
}

func (s *Server) handleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req submitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	id := uuid.NewString()
	_, err := s.store.Dispatch(store.SubmitPayment{
		ID:        id,
		UserID:    currentUser(r).ID,
		PackageID: req.PackageID,
		TrxID:     req.TrxID,
		Now:       time.Now().UTC(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	created, _ := s.store.Snapshot().PaymentByID(id)
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListOwnPayments(w http.ResponseWriter, r *http.Request) {
	payments := s.store.Snapshot().PaymentsForUser(currentUser(r).ID)
	if payments == nil {
		payments = []models.PaymentRequest{}
	}
	s.writeJSON(w, http.StatusOK, payments)
}

// --- generation handlers ---

type generateRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	AspectRatio    string `json:"aspect_ratio"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	img, err := s.generations.Generate(r.Context(), currentUser(r).ID, req.Prompt, req.NegativePrompt, req.AspectRatio)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, img)
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	images := s.store.Snapshot().ImagesForUser(currentUser(r).ID)
	if images == nil {
		images = []models.GeneratedImage{}
	}
	s.writeJSON(w, http.StatusOK, images)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	_, err := s.store.Dispatch(store.DeleteImage{
		ImageID: chi.URLParam(r, "id"),
		UserID:  currentUser(r).ID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	imageID := chi.URLParam(r, "id")

	img, ok := s.store.Snapshot().ImageByID(imageID)
	if !ok || img.UserID != user.ID {
		s.writeError(w, fmt.Errorf("image %s: %w", imageID, common.ErrNotFound))
		return
	}
	fav := s.favorites.Toggle(user.ID, imageID)
	s.writeJSON(w, http.StatusOK, map[string]any{"image_id": imageID, "favorite": fav})
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"image_ids": s.favorites.List(currentUser(r).ID)})
}

// --- admin handlers ---

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	payments := snap.Payments
	if r.URL.Query().Get("status") == string(models.PaymentPending) {
		payments = snap.PendingPayments()
	}
	if payments == nil {
		payments = []models.PaymentRequest{}
	}
	s.writeJSON(w, http.StatusOK, payments)
}

type decisionRequest struct {
	Decision payment.Decision `json:"decision"`
}

type decisionResponse struct {
	Request models.PaymentRequest `json:"request"`
	Warning string                `json:"warning,omitempty"`
}

func (s *Server) handleDecidePayment(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	warning, err := s.store.Dispatch(store.DecidePayment{RequestID: id, Decision: req.Decision})
	if err != nil {
		s.writeError(w, err)
		return
	}
	decided, _ := s.store.Snapshot().PaymentByID(id)
	s.writeJSON(w, http.StatusOK, decisionResponse{Request: decided, Warning: warning})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users := s.store.Snapshot().Users
	if users == nil {
		users = []models.User{}
	}
	s.writeJSON(w, http.StatusOK, users)
}

type adjustCreditsRequest struct {
	Operation string `json:"operation"` // add | remove
	Amount    int    `json:"amount"`
}

func (s *Server) handleAdjustCredits(w http.ResponseWriter, r *http.Request) {
	var req adjustCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	userID := chi.URLParam(r, "id")

	var err error
	switch req.Operation {
	case "add":
		_, err = s.store.Dispatch(store.AddCredits{UserID: userID, Amount: req.Amount})
	case "remove":
		_, err = s.store.Dispatch(store.RemoveCredits{UserID: userID, Amount: req.Amount})
	default:
		err = fmt.Errorf("%w: operation must be add or remove", common.ErrInvalidInput)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, _ := s.store.Snapshot().UserByID(userID)
	s.writeJSON(w, http.StatusOK, user)
}

type userStatusRequest struct {
	Status models.UserStatus `json:"status"`
}

func (s *Server) handleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	var req userStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Status != models.StatusActive && req.Status != models.StatusBlocked {
		s.writeError(w, fmt.Errorf("%w: status must be active or blocked", common.ErrInvalidInput))
		return
	}
	userID := chi.URLParam(r, "id")
	user, ok := s.store.Snapshot().UserByID(userID)
	if !ok {
		s.writeError(w, fmt.Errorf("user %s: %w", userID, common.ErrNotFound))
		return
	}
	user.Status = req.Status
	if _, err := s.store.Dispatch(store.UpdateUser{User: user}); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

type packageRequest struct {
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Price   int    `json:"price"`
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	packages := s.store.Snapshot().Settings.CreditPackages
	if packages == nil {
		packages = []models.CreditPackage{}
	}
	s.writeJSON(w, http.StatusOK, packages)
}

func (s *Server) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	var req packageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	pkg := models.CreditPackage{ID: uuid.NewString(), Name: req.Name, Credits: req.Credits, Price: req.Price}
	if _, err := s.store.Dispatch(store.UpsertCreditPackage{Package: pkg}); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, pkg)
}

func (s *Server) handleUpdatePackage(w http.ResponseWriter, r *http.Request) {
	var req packageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := s.store.Snapshot().PackageByID(id); !ok {
		s.writeError(w, fmt.Errorf("package %s: %w", id, common.ErrNotFound))
		return
	}
	pkg := models.CreditPackage{ID: id, Name: req.Name, Credits: req.Credits, Price: req.Price}
	if _, err := s.store.Dispatch(store.UpsertCreditPackage{Package: pkg}); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pkg)
}

func (s *Server) handleDeletePackage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Dispatch(store.DeleteCreditPackage{PackageID: chi.URLParam(r, "id")}); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdatePaymentDetails(w http.ResponseWriter, r *http.Request) {
	var details models.PaymentDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if _, err := s.store.Dispatch(store.UpdatePaymentDetails{Details: details}); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, details)
}

// --- helpers ---

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= 500 {
		s.log.Error("handler error", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, common.ErrBlocked):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrAlreadyResolved),
		errors.Is(err, common.ErrEmailTaken),
		errors.Is(err, common.ErrGenerationInFlight):
		return http.StatusConflict
	case errors.Is(err, common.ErrPromptRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrInvalidAPIKey),
		errors.Is(err, common.ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
