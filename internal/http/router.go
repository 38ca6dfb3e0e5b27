package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-accounts/internal/http/features/account"
	"github.com/tendant/simple-accounts/internal/http/features/password"
	"github.com/tendant/simple-accounts/internal/http/middleware"
	"github.com/tendant/simple-accounts/internal/httputil"
	"github.com/tendant/simple-accounts/pkg/auth"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger                 *slog.Logger
	Authentication         *auth.AuthenticationService
	Registration           *auth.RegistrationService
	PasswordReset          *auth.PasswordResetService
	RateLimitEnabled       bool
	AuthRequestsPerMinute  int
	ResetRequestsPerWindow int
	ResetWindow            time.Duration
}

// NewRouter creates the HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authLimit := middleware.NoRateLimit()
	resetLimit := middleware.NoRateLimit()
	if cfg.RateLimitEnabled {
		authLimit = middleware.RateLimit(middleware.RateLimitConfig{
			Requests: cfg.AuthRequestsPerMinute,
			Window:   time.Minute,
			Logger:   cfg.Logger,
		})
		resetLimit = middleware.RateLimit(middleware.RateLimitConfig{
			Requests: cfg.ResetRequestsPerWindow,
			Window:   cfg.ResetWindow,
			Logger:   cfg.Logger,
		})
	}

	accountHandler := account.NewHandler(cfg.Logger, cfg.Registration)
	passwordHandler := password.NewHandler(cfg.Logger, cfg.Authentication, cfg.PasswordReset)

	r.Group(func(r chi.Router) {
		r.Use(authLimit)
		r.Post("/v1/accounts/register", accountHandler.Register)
		r.Post("/v1/auth/login", passwordHandler.Login)
	})

	// Confirmation links arrive as GETs from mail clients.
	r.Get("/v1/accounts/confirm-email", accountHandler.ConfirmEmail)
	r.Post("/v1/accounts/confirm-email", accountHandler.ConfirmEmail)

	r.Group(func(r chi.Router) {
		r.Use(resetLimit)
		r.Post("/v1/accounts/resend-confirmation", accountHandler.ResendConfirmation)
		r.Post("/v1/auth/forgot-password", passwordHandler.ForgotPassword)
		r.Post("/v1/auth/reset-password", passwordHandler.ResetPassword)
	})

	return r
}
