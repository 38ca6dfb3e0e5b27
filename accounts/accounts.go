// Package accounts provides an embeddable account-credential lifecycle
// manager: registration with email confirmation, login with time-boxed
// lockout, and password reset via single-use tokens.
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/myapp?sslmode=disable")
//
//	acc, err := accounts.New(accounts.Config{
//	    DB:          db,
//	    TokenSecret: "your-secret-key-at-least-32-chars",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := chi.NewRouter()
//	r.Mount("/", acc.Router())
//	http.ListenAndServe(":8080", r)
//
// Without a database the store falls back to an in-memory
// implementation, which is useful for tests and prototypes.
package accounts

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	internalhttp "github.com/tendant/simple-accounts/internal/http"
	"github.com/tendant/simple-accounts/pkg/auth"
	"github.com/tendant/simple-accounts/pkg/repository"
	"github.com/tendant/simple-accounts/pkg/token"
)

// Config holds the configuration for an accounts instance.
type Config struct {
	// DB is the Postgres connection. When nil, an in-memory store is
	// used instead.
	DB *sql.DB

	// TokenSecret signs confirmation and reset tokens (required, min 32 chars).
	TokenSecret string

	// AppBaseURL prefixes the links embedded in outgoing emails.
	AppBaseURL string

	// Notifier delivers confirmation and reset links. When nil, links
	// are logged instead of dispatched.
	Notifier auth.Notifier

	// ConfirmTokenTTL is the confirm-email token lifetime (default 24h).
	ConfirmTokenTTL time.Duration

	// ResetTokenTTL is the reset-password token lifetime (default 1h).
	ResetTokenTTL time.Duration

	// MaxFailedAttempts is the failure count that locks the account (default 5).
	MaxFailedAttempts int

	// LockoutDuration is how long a locked account stays locked (default 15m).
	LockoutDuration time.Duration

	// ResetCounterOnLockout resets the failure counter to zero when the
	// lockout engages (default true).
	ResetCounterOnLockout *bool

	// UniformLoginFailures reports unknown-email logins as invalid
	// credentials (default true).
	UniformLoginFailures *bool

	// PasswordPolicy overrides the default complexity requirements.
	PasswordPolicy *auth.PasswordPolicy

	// Logger is the structured logger (default: slog JSON to stdout).
	Logger *slog.Logger
}

// Accounts is the wired account lifecycle manager.
type Accounts struct {
	config         Config
	store          auth.CredentialStore
	tokens         *token.Provider
	authentication *auth.AuthenticationService
	registration   *auth.RegistrationService
	passwordReset  *auth.PasswordResetService
}

// New creates a new accounts instance with the given configuration.
func New(cfg Config) (*Accounts, error) {
	if cfg.TokenSecret == "" {
		return nil, errors.New("accounts: TokenSecret is required")
	}
	if len(cfg.TokenSecret) < 32 {
		return nil, errors.New("accounts: TokenSecret must be at least 32 characters")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if cfg.MaxFailedAttempts == 0 {
		cfg.MaxFailedAttempts = auth.DefaultMaxFailedAttempts
	}
	if cfg.LockoutDuration == 0 {
		cfg.LockoutDuration = auth.DefaultLockoutDuration
	}

	var store auth.CredentialStore
	if cfg.DB != nil {
		store = repository.NewAccountsRepository(cfg.DB)
	} else {
		store = repository.NewMemoryStore()
	}

	tokens, err := token.NewProvider(token.Config{
		Secret:           []byte(cfg.TokenSecret),
		ConfirmEmailTTL:  cfg.ConfirmTokenTTL,
		ResetPasswordTTL: cfg.ResetTokenTTL,
	}, store)
	if err != nil {
		return nil, err
	}

	lockout := &auth.LockoutPolicy{
		MaxFailedAttempts:   cfg.MaxFailedAttempts,
		LockoutDuration:     cfg.LockoutDuration,
		ResetCountOnLockout: boolOrDefault(cfg.ResetCounterOnLockout, true),
	}

	authentication := auth.NewAuthenticationService(auth.AuthConfig{
		UniformFailures: boolOrDefault(cfg.UniformLoginFailures, true),
	}, store, lockout, cfg.Logger)

	registration := auth.NewRegistrationService(store, tokens, cfg.Notifier, cfg.PasswordPolicy, cfg.Logger, cfg.AppBaseURL)
	passwordReset := auth.NewPasswordResetService(store, tokens, cfg.Notifier, cfg.PasswordPolicy, cfg.Logger, cfg.AppBaseURL)

	return &Accounts{
		config:         cfg,
		store:          store,
		tokens:         tokens,
		authentication: authentication,
		registration:   registration,
		passwordReset:  passwordReset,
	}, nil
}

// Router returns a chi router with all account routes.
//
// Routes:
//
//	POST /v1/accounts/register            - Create an account
//	GET  /v1/accounts/confirm-email       - Redeem a confirmation token
//	POST /v1/accounts/resend-confirmation - Re-send the confirmation link
//	POST /v1/auth/login                   - Verify credentials
//	POST /v1/auth/forgot-password         - Request a reset link
//	POST /v1/auth/reset-password          - Redeem a reset token
func (a *Accounts) Router() chi.Router {
	r := chi.NewRouter()
	r.Mount("/", internalhttp.NewRouter(internalhttp.RouterConfig{
		Logger:         a.config.Logger,
		Authentication: a.authentication,
		Registration:   a.registration,
		PasswordReset:  a.passwordReset,
	}))
	return r
}

// Handler returns the router as an http.Handler.
func (a *Accounts) Handler() http.Handler {
	return a.Router()
}

// AuthenticationService exposes the login service for direct use.
func (a *Accounts) AuthenticationService() *auth.AuthenticationService {
	return a.authentication
}

// RegistrationService exposes the registration service for direct use.
func (a *Accounts) RegistrationService() *auth.RegistrationService {
	return a.registration
}

// PasswordResetService exposes the reset service for direct use.
func (a *Accounts) PasswordResetService() *auth.PasswordResetService {
	return a.passwordReset
}

// TokenProvider exposes the token provider for direct use.
func (a *Accounts) TokenProvider() *token.Provider {
	return a.tokens
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
