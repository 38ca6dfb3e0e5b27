package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tendant/simple-accounts/pkg/domain"
	"github.com/tendant/simple-accounts/pkg/token"
)

// PasswordResetService issues and redeems password-reset tokens.
type PasswordResetService struct {
	store      CredentialStore
	tokens     *token.Provider
	notifier   Notifier
	policy     *PasswordPolicy
	logger     *slog.Logger
	appBaseURL string
}

// NewPasswordResetService creates a password reset service.
func NewPasswordResetService(
	store CredentialStore,
	tokens *token.Provider,
	notifier Notifier,
	policy *PasswordPolicy,
	logger *slog.Logger,
	appBaseURL string,
) *PasswordResetService {
	if policy == nil {
		policy = DefaultPasswordPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PasswordResetService{
		store:      store,
		tokens:     tokens,
		notifier:   notifier,
		policy:     policy,
		logger:     logger,
		appBaseURL: appBaseURL,
	}
}

// RequestReset sends a reset link if the address belongs to an account.
// The outward result is identical whether or not the account exists, so
// the endpoint cannot be used to enumerate addresses; only the actual
// dispatch differs.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	account, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.logger.Debug("password reset requested for unknown address")
			return nil
		}
		return err
	}

	rawToken, err := s.tokens.Issue(ctx, account.ID, domain.PurposeResetPassword)
	if err != nil {
		s.logger.Error("failed to issue reset token", "error", err, "account_id", account.ID)
		return nil
	}

	link := fmt.Sprintf("%s/v1/auth/reset-password?token=%s", s.appBaseURL, rawToken)

	if s.notifier == nil {
		s.logger.Warn("notifier not configured, reset link not dispatched", "account_id", account.ID)
		return nil
	}
	if err := s.notifier.SendPasswordResetEmail(account.Email, link); err != nil {
		s.logger.Warn("failed to send password reset email", "error", err, "account_id", account.ID)
		return nil
	}
	s.logger.Info("password reset email sent", "account_id", account.ID)
	return nil
}

// ResetPassword redeems a reset-password token and replaces the
// account's password. The stamp rotation invalidates the token, every
// sibling token, and clears any lockout so the owner regains access
// immediately.
func (s *PasswordResetService) ResetPassword(ctx context.Context, email, rawToken, newPassword string) error {
	account, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}

	tokenAccountID, err := s.tokens.Validate(ctx, rawToken, domain.PurposeResetPassword)
	if err != nil {
		return err
	}
	if tokenAccountID != account.ID {
		return fmt.Errorf("%w: account mismatch", domain.ErrInvalidToken)
	}

	if err := s.policy.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.applyReset(ctx, account, hash); err != nil {
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		// The conflicting write may have rotated the stamp, so the
		// token has to survive re-validation before the retry.
		if _, err := s.tokens.Validate(ctx, rawToken, domain.PurposeResetPassword); err != nil {
			return err
		}
		fresh, err := s.store.GetByID(ctx, account.ID)
		if err != nil {
			return err
		}
		if err := s.applyReset(ctx, fresh, hash); err != nil {
			return err
		}
	}

	s.logger.Info("password reset", "account_id", account.ID)
	return nil
}

func (s *PasswordResetService) applyReset(ctx context.Context, account *domain.Account, hash string) error {
	stamp, err := NewSecurityStamp()
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	account.SecurityStamp = stamp
	account.FailedAccessCount = 0
	account.LockoutEnd = nil
	return s.store.Update(ctx, account)
}

// ValidateResetToken checks a reset token without redeeming it, for a
// transport that wants to render the reset form only for live links.
func (s *PasswordResetService) ValidateResetToken(ctx context.Context, rawToken string) (uuid.UUID, error) {
	return s.tokens.Validate(ctx, rawToken, domain.PurposeResetPassword)
}
