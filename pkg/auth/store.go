package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/tendant/simple-accounts/pkg/domain"
)

// CredentialStore is the durable record of accounts and their security
// state. Implementations hold no policy; pkg/repository provides a
// Postgres store and an in-memory store.
type CredentialStore interface {
	// GetByID retrieves an account by id, or domain.ErrAccountNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// GetByEmail retrieves an account by email (case-insensitive), or
	// domain.ErrAccountNotFound.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Create stores a new account. Returns domain.ErrDuplicateIdentity
	// if the username or email is already taken.
	Create(ctx context.Context, account *domain.Account) error
	// Update persists an account read earlier. The write succeeds only
	// if the stored version still matches account.Version; otherwise it
	// returns domain.ErrConcurrencyConflict. On success the version is
	// advanced on the passed account.
	Update(ctx context.Context, account *domain.Account) error
}
