package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-accounts/pkg/domain"
	"github.com/tendant/simple-accounts/pkg/token"
)

// RegistrationService creates accounts and drives email confirmation.
type RegistrationService struct {
	store      CredentialStore
	tokens     *token.Provider
	notifier   Notifier
	policy     *PasswordPolicy
	logger     *slog.Logger
	appBaseURL string
	clock      func() time.Time
}

// NewRegistrationService creates a registration service. The notifier
// may be nil, in which case confirmation links are logged instead of
// dispatched.
func NewRegistrationService(
	store CredentialStore,
	tokens *token.Provider,
	notifier Notifier,
	policy *PasswordPolicy,
	logger *slog.Logger,
	appBaseURL string,
) *RegistrationService {
	if policy == nil {
		policy = DefaultPasswordPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationService{
		store:      store,
		tokens:     tokens,
		notifier:   notifier,
		policy:     policy,
		logger:     logger,
		appBaseURL: appBaseURL,
		clock:      time.Now,
	}
}

// Register validates the input, creates an unconfirmed account, and
// sends a confirmation link to the address. A failure to send is a
// warning, not a rollback: the account and token stay valid and the
// link can be re-requested.
func (s *RegistrationService) Register(ctx context.Context, username, email, password string) (*domain.Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if err := s.policy.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	stamp, err := NewSecurityStamp()
	if err != nil {
		return nil, err
	}

	now := s.clock()
	account := &domain.Account{
		ID:             uuid.New(),
		Username:       username,
		Email:          email,
		PasswordHash:   hash,
		EmailConfirmed: false,
		SecurityStamp:  stamp,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Create(ctx, account); err != nil {
		return nil, err
	}

	s.sendConfirmation(ctx, account)

	return account, nil
}

// ResendConfirmation issues a fresh confirmation link for an
// unconfirmed account.
func (s *RegistrationService) ResendConfirmation(ctx context.Context, email string) error {
	account, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if account.EmailConfirmed {
		return domain.ErrAlreadyConfirmed
	}
	s.sendConfirmation(ctx, account)
	return nil
}

// ConfirmEmail redeems a confirm-email token for the given account.
// Redemption rotates the security stamp, which permanently invalidates
// the token and any siblings. Once confirmed, an account never returns
// to the unconfirmed state.
func (s *RegistrationService) ConfirmEmail(ctx context.Context, accountID uuid.UUID, rawToken string) error {
	tokenAccountID, err := s.tokens.Validate(ctx, rawToken, domain.PurposeConfirmEmail)
	if err != nil {
		return err
	}
	if tokenAccountID != accountID {
		return fmt.Errorf("%w: account mismatch", domain.ErrInvalidToken)
	}

	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.EmailConfirmed {
		return domain.ErrAlreadyConfirmed
	}

	stamp, err := NewSecurityStamp()
	if err != nil {
		return err
	}
	account.EmailConfirmed = true
	account.SecurityStamp = stamp

	if err := s.store.Update(ctx, account); err != nil {
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		return s.confirmRetry(ctx, accountID)
	}

	s.logger.Info("email confirmed", "account_id", account.ID)
	return nil
}

// confirmRetry re-reads the account after a conflicting write and
// re-applies the confirmation.
func (s *RegistrationService) confirmRetry(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.EmailConfirmed {
		return domain.ErrAlreadyConfirmed
	}
	stamp, err := NewSecurityStamp()
	if err != nil {
		return err
	}
	account.EmailConfirmed = true
	account.SecurityStamp = stamp
	return s.store.Update(ctx, account)
}

func (s *RegistrationService) sendConfirmation(ctx context.Context, account *domain.Account) {
	rawToken, err := s.tokens.Issue(ctx, account.ID, domain.PurposeConfirmEmail)
	if err != nil {
		s.logger.Error("failed to issue confirmation token", "error", err, "account_id", account.ID)
		return
	}

	link := fmt.Sprintf("%s/v1/accounts/confirm-email?id=%s&token=%s", s.appBaseURL, account.ID, rawToken)

	if s.notifier == nil {
		s.logger.Warn("notifier not configured, confirmation link not dispatched", "account_id", account.ID)
		return
	}
	if err := s.notifier.SendConfirmationEmail(account.Email, link); err != nil {
		s.logger.Warn("failed to send confirmation email", "error", err, "account_id", account.ID)
		return
	}
	s.logger.Info("confirmation email sent", "account_id", account.ID)
}
