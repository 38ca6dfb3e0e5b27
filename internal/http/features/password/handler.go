package password

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tendant/simple-accounts/internal/httputil"
	"github.com/tendant/simple-accounts/pkg/auth"
	"github.com/tendant/simple-accounts/pkg/domain"
)

// Handler handles login and password reset endpoints.
type Handler struct {
	logger         *slog.Logger
	authentication *auth.AuthenticationService
	reset          *auth.PasswordResetService
}

// NewHandler creates a new password handler.
func NewHandler(logger *slog.Logger, authentication *auth.AuthenticationService, reset *auth.PasswordResetService) *Handler {
	return &Handler{
		logger:         logger,
		authentication: authentication,
		reset:          reset,
	}
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents a successful login.
type LoginResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// ForgotPasswordRequest asks for a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest redeems a reset token.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// MessageResponse is a plain message envelope.
type MessageResponse struct {
	Message string `json:"message"`
}

// Login handles credential verification.
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	acct, err := h.authentication.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var lockedOut *domain.LockedOutError
		switch {
		case errors.As(err, &lockedOut):
			minutes := int(lockedOut.Remaining(time.Now()).Minutes()) + 1
			httputil.Error(w, http.StatusForbidden,
				fmt.Sprintf("account is locked, please try again in %d minutes", minutes))
		case errors.Is(err, domain.ErrEmailNotConfirmed):
			httputil.Error(w, http.StatusForbidden, "confirm your account before logging in")
		case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrAccountNotFound):
			httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
		default:
			h.logger.Error("login failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, LoginResponse{
		AccountID: acct.ID.String(),
		Email:     acct.Email,
	})
}

// ForgotPassword sends a reset link. Always answers 202 so the endpoint
// cannot be used to enumerate registered addresses.
// POST /v1/auth/forgot-password
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.reset.RequestReset(r.Context(), req.Email); err != nil {
		h.logger.Error("failed to process reset request", "error", err)
	}

	httputil.JSON(w, http.StatusAccepted, MessageResponse{
		Message: "If the address is registered, a password reset link has been sent",
	})
}

// ResetPassword redeems a reset token and sets a new password.
// POST /v1/auth/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Token == "" || req.NewPassword == "" {
		httputil.Error(w, http.StatusBadRequest, "email, token and new_password are required")
		return
	}

	if err := h.reset.ResetPassword(r.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, domain.ErrAccountNotFound):
			httputil.Error(w, http.StatusBadRequest, "no account matches this email address")
		case errors.Is(err, domain.ErrInvalidToken):
			httputil.Error(w, http.StatusBadRequest, "invalid or expired reset token")
		default:
			// Password policy violations carry their own message.
			httputil.Error(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{
		Message: "Your password has been changed",
	})
}
