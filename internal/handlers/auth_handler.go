package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"suzukitracker/internal/models"
	"suzukitracker/internal/security"
	"suzukitracker/internal/service"
)

// AuthService is the account API the auth handler drives
type AuthService interface {
	Authenticator
	Register(ctx context.Context, in service.TeacherInput) (*models.Teacher, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	CurrentTeacher(ctx context.Context) (*models.Teacher, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService AuthService
	log         *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Register creates a teacher account and signs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.TeacherInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	if _, err := h.authService.Register(r.Context(), in); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	// Auto-login after registration
	session, err := h.authService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, session.Token, session.ExpiresAt))
	respondWithJSON(w, http.StatusCreated, session)
}

// Login verifies credentials and issues a session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	session, err := h.authService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, session.Token, session.ExpiresAt))
	respondWithJSON(w, http.StatusOK, session)
}

// Logout clears the session cookie. Tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, security.CreateDeleteCookie(r))
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in teacher
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	teacher, err := h.authService.CurrentTeacher(r.Context())
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, teacher)
}

// RequestPasswordReset emails a reset link. It answers 202 whether or not the address exists.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var in resetRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), in.Email); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ResetPassword redeems a reset token
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in resetConfirmRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: ErrInvalidJSON})
		return
	}

	if err := h.authService.ResetPassword(r.Context(), in.Token, in.Password); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
