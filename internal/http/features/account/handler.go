package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/simple-accounts/internal/httputil"
	"github.com/tendant/simple-accounts/pkg/auth"
	"github.com/tendant/simple-accounts/pkg/domain"
)

// Handler handles registration and email confirmation endpoints.
type Handler struct {
	logger       *slog.Logger
	registration *auth.RegistrationService
}

// NewHandler creates a new account handler.
func NewHandler(logger *slog.Logger, registration *auth.RegistrationService) *Handler {
	return &Handler{
		logger:       logger,
		registration: registration,
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse represents a created account.
type RegisterResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// MessageResponse is a plain message envelope.
type MessageResponse struct {
	Message string `json:"message"`
}

// ResendRequest asks for a fresh confirmation link.
type ResendRequest struct {
	Email string `json:"email"`
}

// Register handles account creation.
// POST /v1/accounts/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	acct, err := h.registration.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateIdentity):
			httputil.Error(w, http.StatusConflict, "username or email already registered")
		case errors.Is(err, domain.ErrInvalidEmail):
			httputil.Error(w, http.StatusBadRequest, "invalid email address")
		case errors.Is(err, domain.ErrInvalidUsername):
			httputil.Error(w, http.StatusBadRequest, "invalid username format: must be 3-30 characters, alphanumeric/underscore/hyphen, start with alphanumeric")
		default:
			// Password policy violations carry their own message.
			httputil.Error(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.logger.Info("account registered", "account_id", acct.ID)

	httputil.JSON(w, http.StatusCreated, RegisterResponse{
		ID:      acct.ID.String(),
		Email:   acct.Email,
		Message: "Click on the confirmation link in your email to activate your account",
	})
}

// ConfirmEmail redeems a confirmation token.
// GET|POST /v1/accounts/confirm-email?id=<uuid>&token=<token>
func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	token := r.URL.Query().Get("token")
	if id == "" || token == "" {
		httputil.Error(w, http.StatusBadRequest, "id and token are required")
		return
	}

	accountID, err := uuid.Parse(id)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid confirmation token")
		return
	}

	if err := h.registration.ConfirmEmail(r.Context(), accountID, token); err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyConfirmed):
			httputil.Error(w, http.StatusBadRequest, "email already confirmed")
		case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrAccountNotFound):
			httputil.Error(w, http.StatusBadRequest, "invalid confirmation token")
		default:
			h.logger.Error("failed to confirm email", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "confirmation failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{
		Message: "Your account has been confirmed",
	})
}

// ResendConfirmation sends a fresh confirmation link. The response is
// the same whether or not the address is registered.
// POST /v1/accounts/resend-confirmation
func (h *Handler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.registration.ResendConfirmation(r.Context(), req.Email); err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) && !errors.Is(err, domain.ErrAlreadyConfirmed) {
			h.logger.Error("failed to resend confirmation", "error", err)
		}
	}

	httputil.JSON(w, http.StatusAccepted, MessageResponse{
		Message: "If the address is registered and unconfirmed, a confirmation link has been sent",
	})
}
