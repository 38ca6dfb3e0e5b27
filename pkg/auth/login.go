package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-accounts/pkg/domain"
)

// AuthConfig tunes the authentication service.
type AuthConfig struct {
	// UniformFailures reports unknown-email logins as invalid
	// credentials, so callers cannot probe which addresses exist.
	// Disabling it restores a distinct not-found error.
	UniformFailures bool
}

// AuthenticationService orchestrates login against the credential store.
type AuthenticationService struct {
	config  AuthConfig
	store   CredentialStore
	lockout *LockoutPolicy
	logger  *slog.Logger
	clock   func() time.Time
}

// NewAuthenticationService creates an authentication service.
func NewAuthenticationService(config AuthConfig, store CredentialStore, lockout *LockoutPolicy, logger *slog.Logger) *AuthenticationService {
	if lockout == nil {
		lockout = DefaultLockoutPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthenticationService{
		config:  config,
		store:   store,
		lockout: lockout,
		logger:  logger,
		clock:   time.Now,
	}
}

// Login verifies the credentials for the given email address.
//
// Checks run in order, each short-circuiting: account lookup, email
// confirmation, lockout, password. A failed password attempt increments
// the failure counter and may engage the lockout; a successful login
// clears both. No token or notification side effects occur here.
func (s *AuthenticationService) Login(ctx context.Context, email, password string) (*domain.Account, error) {
	account, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) && s.config.UniformFailures {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// An unconfirmed account does not consume a lockout attempt.
	if !account.EmailConfirmed {
		return nil, domain.ErrEmailNotConfirmed
	}

	now := s.clock()
	if locked, until := s.lockout.Evaluate(account, now); locked {
		// Locked accounts never reach password verification.
		return nil, &domain.LockedOutError{Until: until}
	}

	if !VerifyPassword(password, account.PasswordHash) {
		if err := s.persist(ctx, account, func(a *domain.Account) {
			s.lockout.RecordFailure(a, now)
		}); err != nil {
			s.logger.Error("failed to record login failure", "error", err, "account_id", account.ID)
		}
		// The attempt that trips the threshold reports the lockout.
		if locked, until := s.lockout.Evaluate(account, now); locked {
			return nil, &domain.LockedOutError{Until: until}
		}
		return nil, domain.ErrInvalidCredentials
	}

	if account.FailedAccessCount > 0 || account.LockoutEnd != nil {
		if err := s.persist(ctx, account, func(a *domain.Account) {
			s.lockout.RecordSuccess(a)
		}); err != nil {
			s.logger.Error("failed to reset login failures", "error", err, "account_id", account.ID)
		}
	}

	return account, nil
}

// persist applies mutate to the account and writes it back, retrying
// once with a fresh read on a concurrency conflict so concurrent login
// attempts against the same account never lose an update.
func (s *AuthenticationService) persist(ctx context.Context, account *domain.Account, mutate func(*domain.Account)) error {
	mutate(account)
	err := s.store.Update(ctx, account)
	if !errors.Is(err, domain.ErrConcurrencyConflict) {
		return err
	}

	fresh, err := s.store.GetByID(ctx, account.ID)
	if err != nil {
		return err
	}
	mutate(fresh)
	if err := s.store.Update(ctx, fresh); err != nil {
		return fmt.Errorf("retry after conflict: %w", err)
	}
	*account = *fresh
	return nil
}
