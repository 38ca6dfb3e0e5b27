// Package token issues and validates the single-purpose tokens used for
// email confirmation and password reset.
//
// A token is a signed, self-describing value: it embeds the account id,
// a purpose tag, the issuance time, and the account's security stamp at
// issuance. Binding validity to the rotating stamp instead of a
// server-side used-token table gives storeless single-use enforcement:
// redeeming a token rotates the stamp, which invalidates the token and
// any siblings, and a password change out of band does the same.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-accounts/pkg/domain"
)

// Default per-purpose lifetimes. Confirmation tokens are long-lived,
// reset tokens short-lived.
const (
	DefaultConfirmEmailTTL  = 24 * time.Hour
	DefaultResetPasswordTTL = 1 * time.Hour
)

// AccountSource resolves the current security stamp for an account.
type AccountSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// Config holds token provider configuration.
type Config struct {
	// Secret signs token payloads (required, min 32 bytes).
	Secret []byte
	// ConfirmEmailTTL is the lifetime of confirm-email tokens.
	ConfirmEmailTTL time.Duration
	// ResetPasswordTTL is the lifetime of reset-password tokens.
	ResetPasswordTTL time.Duration
	// Issuer is the iss claim (default "simple-accounts").
	Issuer string
}

// Provider generates and validates purpose-bound tokens.
type Provider struct {
	config   Config
	accounts AccountSource
	clock    func() time.Time
}

type claims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
	Stamp   string `json:"stamp"`
}

// NewProvider creates a token provider backed by the given account source.
func NewProvider(config Config, accounts AccountSource) (*Provider, error) {
	if len(config.Secret) < 32 {
		return nil, fmt.Errorf("token: secret must be at least 32 bytes")
	}
	if config.ConfirmEmailTTL == 0 {
		config.ConfirmEmailTTL = DefaultConfirmEmailTTL
	}
	if config.ResetPasswordTTL == 0 {
		config.ResetPasswordTTL = DefaultResetPasswordTTL
	}
	if config.Issuer == "" {
		config.Issuer = "simple-accounts"
	}
	return &Provider{
		config:   config,
		accounts: accounts,
		clock:    time.Now,
	}, nil
}

// Issue creates a token for the given account and purpose, bound to the
// account's current security stamp.
func (p *Provider) Issue(ctx context.Context, accountID uuid.UUID, purpose domain.TokenPurpose) (string, error) {
	account, err := p.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}

	now := p.clock()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.config.Issuer,
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl(purpose))),
		},
		Purpose: string(purpose),
		Stamp:   account.SecurityStamp,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(p.config.Secret)
}

// Validate checks signature, purpose, expiry, and that the embedded
// security stamp still matches the account's current stamp. Every
// failure mode collapses to domain.ErrInvalidToken so callers cannot
// learn which check failed.
func (p *Provider) Validate(ctx context.Context, rawToken string, purpose domain.TokenPurpose) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(rawToken, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.config.Secret, nil
	}, jwt.WithTimeFunc(p.clock), jwt.WithIssuer(p.config.Issuer))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return uuid.Nil, domain.ErrInvalidToken
	}

	if c.Purpose != string(purpose) {
		return uuid.Nil, fmt.Errorf("%w: purpose mismatch", domain.ErrInvalidToken)
	}

	accountID, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", domain.ErrInvalidToken)
	}

	account, err := p.accounts.GetByID(ctx, accountID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	// Already redeemed or superseded tokens carry a stale stamp.
	if account.SecurityStamp != c.Stamp {
		return uuid.Nil, fmt.Errorf("%w: stale security stamp", domain.ErrInvalidToken)
	}

	return accountID, nil
}

func (p *Provider) ttl(purpose domain.TokenPurpose) time.Duration {
	if purpose == domain.PurposeResetPassword {
		return p.config.ResetPasswordTTL
	}
	return p.config.ConfirmEmailTTL
}
